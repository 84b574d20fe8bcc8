package jobqueue

import "errors"

// Job is an opaque unit of render work owned by the caller. The queue keeps the
// reference it was given and never copies or inspects the job beyond its ID.
type Job interface {
	JobID() string
}

// Sink accepts jobs once a rendering surface exists.
type Sink interface {
	SubmitJob(job Job)
}

// ErrDrained is returned by Push after the queue has been drained into a surface.
var ErrDrained = errors.New("job queue already drained")

// Queue buffers jobs submitted before the rendering surface exists.
// It is unbounded; jobs are expected to be few.
type Queue struct {
	jobs    []Job
	drained bool
}

func New() *Queue {
	return &Queue{}
}

// Push appends job in submission order.
func (q *Queue) Push(job Job) error {
	if q.drained {
		return ErrDrained
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// DrainInto forwards every buffered job to sink in submission order, empties the
// queue and seals it. Calling it again before Reopen forwards nothing.
func (q *Queue) DrainInto(sink Sink) int {
	if q.drained {
		return 0
	}
	jobs := q.jobs
	q.jobs = nil
	q.drained = true
	for _, job := range jobs {
		sink.SubmitJob(job)
	}
	return len(jobs)
}

// Len returns the number of buffered jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Drained reports whether the queue is sealed.
func (q *Queue) Drained() bool {
	return q.drained
}

// Reopen puts a drained queue back into buffering mode, for when the surface it
// was drained into goes away.
func (q *Queue) Reopen() {
	q.drained = false
}
