package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/replay/internal/core/ports"
)

// Coordinator wraps a paced worker per model and recovers rate-limited
// responses with a bounded, shared backoff. All concurrent retriers for one
// model await a single backoff wait instead of each starting its own timer,
// and the model's worker resumes only once every retrier has settled.
type Coordinator struct {
	limit  domain.RateLimit
	retry  domain.RetrySettings
	logger ports.Logger

	mu        sync.Mutex
	models    map[string]*modelState
	exhausted map[string]int
}

type modelState struct {
	worker   *Worker
	inflight int
	backoff  chan struct{}
}

// NewCoordinator creates a coordinator applying limit and retry to every
// model it encounters.
func NewCoordinator(limit domain.RateLimit, retry domain.RetrySettings, logger ports.Logger) *Coordinator {
	return &Coordinator{
		limit:     limit,
		retry:     retry,
		logger:    logger,
		models:    make(map[string]*modelState),
		exhausted: make(map[string]int),
	}
}

// Execute paces and performs call for model, retrying rate-limited responses
// up to the configured ceiling. An exhausted rate limit is not an error; the
// final rate-limited response is returned as-is and recorded in the health
// tally.
func (c *Coordinator) Execute(ctx context.Context, model string, call ports.CallFunc) (domain.ModelResponse, error) {
	st := c.state(model)

	retries := 0
	defer func() {
		if retries > 0 {
			c.settle(st)
		}
	}()

	for {
		pace := st.worker.Wait
		if retries > 0 {
			// A retry is already in-flight work; it is paced but must not
			// block on the pause it triggered.
			pace = st.worker.Pace
		}
		if err := pace(ctx); err != nil {
			return domain.ModelResponse{}, err
		}

		resp, err := call(ctx)
		if err != nil || !resp.RateLimited {
			return resp, err
		}

		retries++
		if retries > c.retry.Ceiling {
			c.pauseForBackoff(st, retries, 0, true)
			c.recordExhausted(model)
			c.logger.Warn(fmt.Sprintf("model %s exhausted %d retries, giving up", model, c.retry.Ceiling))
			return resp, nil
		}

		delay := resp.RetryAfter
		if delay <= 0 {
			delay = c.retry.BaseDelay * time.Duration(retries)
		}
		c.logger.Warn(fmt.Sprintf("model %s rate limited, backing off %s", model, delay))
		wait := c.pauseForBackoff(st, retries, delay, false)

		select {
		case <-wait:
		case <-ctx.Done():
			return domain.ModelResponse{}, ctx.Err()
		}
	}
}

// Exhausted returns how often each model ran out of retries.
func (c *Coordinator) Exhausted() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int, len(c.exhausted))
	for model, n := range c.exhausted {
		out[model] = n
	}
	return out
}

func (c *Coordinator) state(model string) *modelState {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.models[model]
	if !ok {
		st = &modelState{worker: NewWorker(c.limit)}
		c.models[model] = st
	}
	return st
}

// pauseForBackoff pauses the model's worker, adds the caller to the in-flight
// retry set on its first retry, and returns the shared backoff wait. If a
// sibling already started one, the caller joins it; otherwise a new wait of
// delay is registered as the model's chain and deregistered once elapsed.
// A final (given-up) caller pauses and joins the set but starts no chain.
func (c *Coordinator) pauseForBackoff(st *modelState, retries int, delay time.Duration, final bool) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	st.worker.Pause()
	if retries == 1 {
		st.inflight++
	}
	if final {
		return st.backoff
	}

	if st.backoff == nil {
		ch := make(chan struct{})
		st.backoff = ch
		go func() {
			time.Sleep(delay)

			c.mu.Lock()
			if st.backoff == ch {
				st.backoff = nil
			}
			c.mu.Unlock()

			close(ch)
		}()
	}
	return st.backoff
}

// settle removes one caller from the in-flight retry set and resumes the
// model's worker once the set is empty.
func (c *Coordinator) settle(st *modelState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st.inflight--
	if st.inflight == 0 {
		st.worker.Resume()
	}
}

func (c *Coordinator) recordExhausted(model string) {
	c.mu.Lock()
	c.exhausted[model]++
	c.mu.Unlock()
}
