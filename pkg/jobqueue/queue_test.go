package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob string

func (j stubJob) JobID() string { return string(j) }

type recordingSink struct {
	got []string
}

func (s *recordingSink) SubmitJob(job Job) {
	s.got = append(s.got, job.JobID())
}

func TestDrainPreservesSubmissionOrder(t *testing.T) {
	q := New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(stubJob(id)))
	}
	assert.Equal(t, 3, q.Len())

	sink := &recordingSink{}
	assert.Equal(t, 3, q.DrainInto(sink))
	assert.Equal(t, []string{"a", "b", "c"}, sink.got)
	assert.Equal(t, 0, q.Len())
}

func TestDrainIsOneShot(t *testing.T) {
	q := New()
	require.NoError(t, q.Push(stubJob("a")))

	sink := &recordingSink{}
	q.DrainInto(sink)

	assert.ErrorIs(t, q.Push(stubJob("late")), ErrDrained)
	assert.Equal(t, 0, q.DrainInto(sink))
	assert.Equal(t, []string{"a"}, sink.got)
}

func TestDrainEmptyQueueStillSeals(t *testing.T) {
	q := New()
	assert.Equal(t, 0, q.DrainInto(&recordingSink{}))
	assert.True(t, q.Drained())
}

func TestReopenReturnsToBuffering(t *testing.T) {
	q := New()
	q.DrainInto(&recordingSink{})
	q.Reopen()

	require.NoError(t, q.Push(stubJob("x")))
	sink := &recordingSink{}
	q.DrainInto(sink)
	assert.Equal(t, []string{"x"}, sink.got)
}

func TestQueueKeepsReference(t *testing.T) {
	type pointerJob struct{ stubJob }
	job := &pointerJob{stubJob: "p"}

	q := New()
	require.NoError(t, q.Push(job))

	var seen Job
	q.DrainInto(sinkFunc(func(j Job) { seen = j }))
	assert.Same(t, job, seen)
}

type sinkFunc func(Job)

func (f sinkFunc) SubmitJob(job Job) { f(job) }
