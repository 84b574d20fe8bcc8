package host

import (
	"context"
	"errors"
	"sync"
)

var ErrLooperStopped = errors.New("looper stopped")

// Looper is the host's event-dispatch thread: one goroutine runs every posted
// task in order, so a session's hooks never run concurrently.
type Looper struct {
	tasks    chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewLooper(buffer int) *Looper {
	if buffer < 0 {
		buffer = 0
	}
	return &Looper{
		tasks: make(chan func(), buffer),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Run executes tasks until Stop is called. Tasks still queued at that point are
// discarded.
func (l *Looper) Run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn without waiting for it to run.
func (l *Looper) Post(fn func()) error {
	return l.post(context.Background(), fn)
}

func (l *Looper) post(ctx context.Context, fn func()) error {
	select {
	case <-l.quit:
		return ErrLooperStopped
	default:
	}
	select {
	case <-l.quit:
		return ErrLooperStopped
	case <-ctx.Done():
		return ctx.Err()
	case l.tasks <- fn:
		return nil
	}
}

// Call queues fn and waits until it has run, ctx is done, or the looper stops.
func (l *Looper) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.post(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLooperStopped
	}
}

// Stop asks Run to return and waits for the current task to finish. Safe to call
// more than once, but not from inside a task.
func (l *Looper) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
	<-l.done
}
