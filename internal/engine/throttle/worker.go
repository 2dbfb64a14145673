// Package throttle paces outbound model calls and coordinates backoff across
// concurrent callers of the same model.
package throttle

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"go.trai.ch/replay/internal/core/domain"
)

// Worker spaces dispatches for one model according to a rate limit. Pause
// holds back new dispatches without interrupting anything already dispatched;
// Resume releases everything that accumulated while paused.
type Worker struct {
	limiter *rate.Limiter

	mu      sync.Mutex
	paused  bool
	resumed chan struct{}
}

// NewWorker creates a worker for the given limit. A zero limit disables
// pacing entirely.
func NewWorker(limit domain.RateLimit) *Worker {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if limit.N > 0 && limit.Per > 0 {
		limiter = rate.NewLimiter(rate.Every(limit.Interval()), 1)
	}

	resumed := make(chan struct{})
	close(resumed)

	return &Worker{limiter: limiter, resumed: resumed}
}

// Wait blocks until the caller may dispatch: first until the worker is
// unpaused, then until the limiter grants a slot.
func (w *Worker) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		resumed := w.resumed
		paused := w.paused
		w.mu.Unlock()

		if !paused {
			break
		}
		select {
		case <-resumed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return w.Pace(ctx)
}

// Pace blocks only until the limiter grants a slot, ignoring the pause gate.
// Retries use this: they belong to in-flight work and must not deadlock on a
// pause they themselves caused.
func (w *Worker) Pace(ctx context.Context) error {
	return w.limiter.Wait(ctx)
}

// Pause holds back new dispatches. In-flight work is unaffected.
func (w *Worker) Pause() {
	w.mu.Lock()
	if !w.paused {
		w.paused = true
		w.resumed = make(chan struct{})
	}
	w.mu.Unlock()
}

// Resume releases all dispatches buffered while paused.
func (w *Worker) Resume() {
	w.mu.Lock()
	if w.paused {
		w.paused = false
		close(w.resumed)
	}
	w.mu.Unlock()
}
