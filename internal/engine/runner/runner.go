// Package runner provides the bounded-parallelism task runner that schedules
// scenario executions.
package runner

import (
	"context"
	"sync"

	"go.trai.ch/replay/internal/core/domain"
)

// Runner executes submitted units of work with at most a fixed number running
// concurrently. Queued units start in submission order; completions are
// delivered per unit, in whatever order the units finish.
type Runner struct {
	mu          sync.Mutex
	parallelism int
	queue       []*Task
	active      int
	closed      bool
}

// Task is one submitted unit of work.
type Task struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan struct{}
	err  error
}

// Wait blocks until the task has completed and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Done returns a channel closed when the task has completed.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task's error; only valid after Done is closed.
func (t *Task) Err() error {
	return t.err
}

// New creates a Runner that runs at most parallelism units concurrently.
// A parallelism below one is treated as one.
func New(parallelism int) *Runner {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Runner{parallelism: parallelism}
}

// Submit enqueues fn and returns its task handle. The unit runs with the
// given context; if the context is already cancelled when the unit is
// dequeued, it completes with the context error without running.
func (r *Runner) Submit(ctx context.Context, fn func(ctx context.Context) error) *Task {
	t := &Task{ctx: ctx, fn: fn, done: make(chan struct{})}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		t.err = domain.ErrRunnerClosed
		close(t.done)
		return t
	}
	r.queue = append(r.queue, t)
	r.dispatchLocked()
	r.mu.Unlock()

	return t
}

// Close rejects all future submissions. Queued and running units are
// unaffected; stopping mid-flight work is the submitter's job via its context.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// dispatchLocked launches queued units while capacity remains.
func (r *Runner) dispatchLocked() {
	for r.active < r.parallelism && len(r.queue) > 0 {
		t := r.queue[0]
		r.queue = r.queue[1:]
		r.active++
		go r.run(t)
	}
}

func (r *Runner) run(t *Task) {
	if err := t.ctx.Err(); err != nil {
		t.err = err
	} else {
		t.err = t.fn(t.ctx)
	}
	close(t.done)

	r.mu.Lock()
	r.active--
	r.dispatchLocked()
	r.mu.Unlock()
}
