package ports

import (
	"context"

	"go.trai.ch/replay/internal/core/domain"
)

// Endpoint is the live model endpoint behind the replay cache.
//
// A rate limited rejection is reported as a response with RateLimited set,
// not as an error: the throttling coordinator owns the retry decision.
// Errors are reserved for transport failures.
//
//go:generate mockgen -source=endpoint.go -destination=mocks/mock_endpoint.go -package=mocks
type Endpoint interface {
	// Complete sends one chat completion request.
	Complete(ctx context.Context, req domain.ModelRequest) (domain.ModelResponse, error)
}
