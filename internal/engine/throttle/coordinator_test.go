package throttle

import (
	"context"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/replay/internal/core/ports/mocks"
)

func coordinatorFixture(t *testing.T, limit domain.RateLimit, retry domain.RetrySettings) *Coordinator {
	t.Helper()

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	return NewCoordinator(limit, retry, logger)
}

func TestCoordinator_SharedBackoff(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinatorFixture(t,
			domain.RateLimit{},
			domain.RetrySettings{BaseDelay: time.Second, Ceiling: 3},
		)

		// The first two calls hit the rate limit with the same retry-after,
		// every call thereafter succeeds.
		var calls atomic.Int64
		call := func(_ context.Context) (domain.ModelResponse, error) {
			if calls.Add(1) <= 2 {
				return domain.ModelResponse{RateLimited: true, RetryAfter: 5 * time.Second}, nil
			}
			return domain.ModelResponse{Content: "ok", Status: 200}, nil
		}

		start := time.Now()
		results := make(chan domain.ModelResponse, 2)
		for range 2 {
			go func() {
				resp, err := c.Execute(t.Context(), "m", call)
				require.NoError(t, err)
				results <- resp
			}()
		}

		for range 2 {
			resp := <-results
			assert.Equal(t, "ok", resp.Content)
		}

		// One shared five second wait, not one per caller.
		assert.Equal(t, 5*time.Second, time.Since(start))
		assert.Equal(t, int64(4), calls.Load())
		assert.Empty(t, c.Exhausted())
	})
}

func TestCoordinator_RetryCeiling(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinatorFixture(t,
			domain.RateLimit{},
			domain.RetrySettings{BaseDelay: time.Second, Ceiling: 3},
		)

		var calls atomic.Int64
		call := func(_ context.Context) (domain.ModelResponse, error) {
			calls.Add(1)
			return domain.ModelResponse{RateLimited: true}, nil
		}

		start := time.Now()
		resp, err := c.Execute(t.Context(), "m", call)
		require.NoError(t, err)

		// Three backoffs of baseDelay x retry count, then the fourth
		// rate-limited response is surfaced as final.
		assert.True(t, resp.RateLimited)
		assert.Equal(t, int64(4), calls.Load())
		assert.Equal(t, 6*time.Second, time.Since(start))
		assert.Equal(t, map[string]int{"m": 1}, c.Exhausted())
	})
}

func TestCoordinator_PausesSiblingsUntilRetrySettles(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinatorFixture(t,
			domain.RateLimit{},
			domain.RetrySettings{BaseDelay: time.Second, Ceiling: 3},
		)

		var calls atomic.Int64
		call := func(_ context.Context) (domain.ModelResponse, error) {
			if calls.Add(1) == 1 {
				return domain.ModelResponse{RateLimited: true, RetryAfter: 3 * time.Second}, nil
			}
			return domain.ModelResponse{Content: "ok", Status: 200}, nil
		}

		first := make(chan domain.ModelResponse, 1)
		go func() {
			resp, err := c.Execute(t.Context(), "m", call)
			require.NoError(t, err)
			first <- resp
		}()

		synctest.Wait()
		require.Equal(t, int64(1), calls.Load())

		// A second caller arrives while the model is backing off; it must
		// not dispatch until the retrier has settled.
		second := make(chan domain.ModelResponse, 1)
		go func() {
			resp, err := c.Execute(t.Context(), "m", call)
			require.NoError(t, err)
			second <- resp
		}()

		synctest.Wait()
		assert.Equal(t, int64(1), calls.Load())

		start := time.Now()
		assert.Equal(t, "ok", (<-first).Content)
		assert.Equal(t, "ok", (<-second).Content)
		assert.Equal(t, 3*time.Second, time.Since(start))
		assert.Equal(t, int64(3), calls.Load())
	})
}

func TestCoordinator_IndependentModels(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinatorFixture(t,
			domain.RateLimit{},
			domain.RetrySettings{BaseDelay: time.Second, Ceiling: 3},
		)

		var aCalls atomic.Int64
		rateLimited := func(_ context.Context) (domain.ModelResponse, error) {
			if aCalls.Add(1) == 1 {
				return domain.ModelResponse{RateLimited: true, RetryAfter: time.Hour}, nil
			}
			return domain.ModelResponse{Content: "a"}, nil
		}

		go func() {
			_, err := c.Execute(t.Context(), "model-a", rateLimited)
			require.NoError(t, err)
		}()
		synctest.Wait()

		// A backoff on model-a must not delay model-b.
		start := time.Now()
		resp, err := c.Execute(t.Context(), "model-b", func(_ context.Context) (domain.ModelResponse, error) {
			return domain.ModelResponse{Content: "b"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "b", resp.Content)
		assert.Equal(t, time.Duration(0), time.Since(start))
	})
}

func TestCoordinator_CallErrorPropagates(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinatorFixture(t, domain.RateLimit{}, domain.RetrySettings{BaseDelay: time.Second, Ceiling: 3})

		_, err := c.Execute(t.Context(), "m", func(_ context.Context) (domain.ModelResponse, error) {
			return domain.ModelResponse{}, domain.ErrEndpointFailed
		})
		require.ErrorIs(t, err, domain.ErrEndpointFailed)
	})
}
