package domain

import "time"

// CacheEntry is the stored value for one (namespace, hash, slot) key.
// Entries are immutable once written; a second write for the same key is a
// protocol violation surfaced as ErrEntryExists.
type CacheEntry struct {
	// Content is the response body returned by the endpoint.
	Content string `json:"content"`
	// Status is the HTTP status of the original response.
	Status int `json:"status"`
	// RateLimited records that the original response was a rate limit rejection.
	// Rate limited responses are never written to the cache; the field exists so
	// a replayed entry can be distinguished from a live one in diagnostics.
	RateLimited bool `json:"rateLimited,omitempty"`
	// Duration is the wall-clock duration of the original call.
	Duration time.Duration `json:"duration"`
	// RecordedAt is when the original call completed.
	RecordedAt time.Time `json:"recordedAt"`
	// Scenario is the name of the scenario that originated the entry.
	Scenario string `json:"scenario,omitempty"`
	// Model is the model identifier the entry was recorded against.
	Model string `json:"model,omitempty"`
}

// ModelRequest is the outbound call handed to the endpoint adapter.
type ModelRequest struct {
	Model       string         `json:"model"`
	Messages    []ChatMessage  `json:"messages"`
	Temperature float64        `json:"temperature,omitempty"`
	MaxTokens   int            `json:"maxTokens,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

// ChatMessage is a single prompt message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelResponse is the endpoint's answer to a ModelRequest. A rate limited
// rejection is a response, not an error: the throttling coordinator decides
// whether to retry it.
type ModelResponse struct {
	Content     string
	Status      int
	RateLimited bool
	// RetryAfter is the server-suggested wait before retrying, zero if the
	// server did not provide one.
	RetryAfter time.Duration
	Duration   time.Duration
}

// Entry converts a live response into its cacheable form.
func (r ModelResponse) Entry(scenario, model string) CacheEntry {
	return CacheEntry{
		Content:    r.Content,
		Status:     r.Status,
		Duration:   r.Duration,
		RecordedAt: time.Now().UTC(),
		Scenario:   scenario,
		Model:      model,
	}
}

// Response converts a replayed entry back into the response shape consumers see.
func (e CacheEntry) Response() ModelResponse {
	return ModelResponse{
		Content:  e.Content,
		Status:   e.Status,
		Duration: e.Duration,
	}
}
