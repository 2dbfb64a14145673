package ports

import (
	"context"

	"go.trai.ch/replay/internal/core/domain"
)

// CallFunc performs one real outbound model call.
type CallFunc func(ctx context.Context) (domain.ModelResponse, error)

// Fetcher is the cache-aware fetch path: replay the recorded response for a
// (request, slot) pair when present, otherwise perform call once and record
// the result.
//
//go:generate mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// Fetch returns the response for req in the run's slot. replayed reports
	// whether it came from the cache.
	Fetch(ctx context.Context, info domain.RunInfo, model string, req domain.CacheRequest, call CallFunc) (resp domain.ModelResponse, replayed bool, err error)
}

// Throttler paces outbound calls per model and recovers rate-limited
// responses with bounded retries.
type Throttler interface {
	// Execute paces and performs call for model. An exhausted rate limit is
	// surfaced as the final rate-limited response, not as an error.
	Execute(ctx context.Context, model string, call CallFunc) (domain.ModelResponse, error)
}
