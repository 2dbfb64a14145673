package endpoint

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/replay/internal/core/ports/mocks"
)

func testEndpoint(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	return NewOpenAI(domain.EndpointSettings{BaseURL: srv.URL + "/v1"}, "test-key", logger)
}

func testRequest() domain.ModelRequest {
	return domain.ModelRequest{
		Model: "gpt-test",
		Messages: []domain.ChatMessage{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "say hello"},
		},
		Temperature: 0.3,
		MaxTokens:   64,
	}
}

func TestOpenAI_Complete(t *testing.T) {
	var got openai.ChatCompletionRequest
	ep := testEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "hello there"}},
			},
		})
	})

	resp, err := ep.Complete(t.Context(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.False(t, resp.RateLimited)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "say hello", got.Messages[1].Content)
	assert.InDelta(t, 0.3, got.Temperature, 0.001)
	assert.Equal(t, 64, got.MaxTokens)
}

func TestOpenAI_RateLimitedIsAResponse(t *testing.T) {
	ep := testEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded", "type": "requests"}}`))
	})

	resp, err := ep.Complete(t.Context(), testRequest())
	require.NoError(t, err)

	assert.True(t, resp.RateLimited)
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
}

func TestOpenAI_ServerErrorIsAnError(t *testing.T) {
	ep := testEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := ep.Complete(t.Context(), testRequest())
	require.ErrorIs(t, err, domain.ErrEndpointFailed)
}

func TestOpenAI_NoChoicesIsAnError(t *testing.T) {
	ep := testEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
	})

	_, err := ep.Complete(t.Context(), testRequest())
	require.ErrorIs(t, err, domain.ErrEndpointFailed)
}
