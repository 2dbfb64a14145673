// Package endpoint implements the live model endpoint using the OpenAI chat
// completion API.
package endpoint

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.trai.ch/zerr"

	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/replay/internal/core/ports"
)

// OpenAI implements ports.Endpoint against an OpenAI-compatible API.
type OpenAI struct {
	client *openai.Client
	logger ports.Logger
}

// NewOpenAI creates the endpoint adapter. A non-empty BaseURL points the
// client at a compatible proxy instead of the public API.
func NewOpenAI(cfg domain.EndpointSettings, apiKey string, logger ports.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

// Complete sends one chat completion request. A 429 rejection is returned as
// a rate-limited response, not an error; the throttling coordinator owns the
// retry decision.
func (o *OpenAI) Complete(ctx context.Context, req domain.ModelRequest) (domain.ModelResponse, error) {
	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, toChatRequest(req))
	elapsed := time.Since(start)

	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			o.logger.Warn("endpoint rejected request with 429 for model " + req.Model)
			return domain.ModelResponse{
				RateLimited: true,
				Status:      http.StatusTooManyRequests,
				Duration:    elapsed,
			}, nil
		}
		return domain.ModelResponse{}, errors.Join(domain.ErrEndpointFailed, err)
	}

	if len(resp.Choices) == 0 {
		return domain.ModelResponse{}, zerr.With(domain.ErrEndpointFailed, "reason", "no choices returned")
	}

	return domain.ModelResponse{
		Content:  resp.Choices[0].Message.Content,
		Status:   http.StatusOK,
		Duration: elapsed,
	}, nil
}

// toChatRequest maps the domain request onto the wire type. Options carries
// no wire representation here; it participates in the content hash only.
func toChatRequest(req domain.ModelRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
}
