package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/replay/internal/core/domain"
)

func TestRunner_BoundedParallelism(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		const parallelism = 3
		const units = 10

		r := New(parallelism)

		var inside, maxInside atomic.Int64
		tasks := make([]*Task, 0, units)
		for range units {
			tasks = append(tasks, r.Submit(t.Context(), func(_ context.Context) error {
				cur := inside.Add(1)
				for {
					observed := maxInside.Load()
					if cur <= observed || maxInside.CompareAndSwap(observed, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				inside.Add(-1)
				return nil
			}))
		}

		start := time.Now()
		for _, task := range tasks {
			require.NoError(t, task.Wait())
		}

		assert.LessOrEqual(t, maxInside.Load(), int64(parallelism))
		// 10 units over 3 lanes take 4 rounds of 10ms on the fake clock.
		assert.Equal(t, 40*time.Millisecond, time.Since(start))
	})
}

func TestRunner_StartsInSubmissionOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := New(1)

		var mu sync.Mutex
		var started []int
		tasks := make([]*Task, 0, 5)
		for i := range 5 {
			tasks = append(tasks, r.Submit(t.Context(), func(_ context.Context) error {
				mu.Lock()
				started = append(started, i)
				mu.Unlock()
				return nil
			}))
		}

		for _, task := range tasks {
			require.NoError(t, task.Wait())
		}
		assert.Equal(t, []int{0, 1, 2, 3, 4}, started)
	})
}

func TestRunner_ErrorsStayWithTheirTask(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := New(2)

		errUnit := domain.ErrRunFailed
		failing := r.Submit(t.Context(), func(_ context.Context) error {
			return errUnit
		})
		passing := r.Submit(t.Context(), func(_ context.Context) error {
			return nil
		})

		require.ErrorIs(t, failing.Wait(), errUnit)
		require.NoError(t, passing.Wait())
		assert.ErrorIs(t, failing.Err(), errUnit)
	})
}

func TestRunner_CancelledUnitDoesNotRun(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := New(1)

		release := make(chan struct{})
		blocker := r.Submit(t.Context(), func(_ context.Context) error {
			<-release
			return nil
		})

		ctx, cancel := context.WithCancel(t.Context())
		var ran atomic.Bool
		cancelled := r.Submit(ctx, func(_ context.Context) error {
			ran.Store(true)
			return nil
		})

		cancel()
		close(release)

		require.NoError(t, blocker.Wait())
		require.ErrorIs(t, cancelled.Wait(), context.Canceled)
		assert.False(t, ran.Load())
	})
}

func TestRunner_ClosedRejectsSubmissions(t *testing.T) {
	r := New(1)
	r.Close()

	task := r.Submit(t.Context(), func(_ context.Context) error {
		t.Fatal("unit must not run after close")
		return nil
	})

	require.ErrorIs(t, task.Wait(), domain.ErrRunnerClosed)
}
