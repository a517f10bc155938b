package models

// ChatMessage is a single role-tagged message in a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the caller-facing request shape for a completion.
// Model is optional; when empty the tenant's configured model is used.
type CompletionRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Model       string        `json:"model,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// CompletionResult is the normalized single-shot response.
type CompletionResult struct {
	Content          string                 `json:"content"`
	Model            string                 `json:"model"`
	TokensUsed       int                    `json:"tokens_used"`
	ProcessingTimeMS int64                  `json:"processing_time_ms"`
	FinishReason     string                 `json:"finish_reason"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// Stream event types. A stream emits zero or more content events followed
// by exactly one terminal completed or error event.
const (
	StreamEventContent   = "content"
	StreamEventCompleted = "completed"
	StreamEventError     = "error"
)

// StreamEvent is one frame of a streaming completion.
type StreamEvent struct {
	Type             string `json:"type"`
	Content          string `json:"content,omitempty"`
	FullContent      string `json:"full_content,omitempty"`
	Model            string `json:"model,omitempty"`
	TokensUsed       int    `json:"tokens_used,omitempty"`
	ProcessingTimeMS int64  `json:"processing_time_ms,omitempty"`
	FinishReason     string `json:"finish_reason,omitempty"`
	Error            string `json:"error,omitempty"`
	Timestamp        int64  `json:"timestamp,omitempty"`
}

// ModelInfo describes one model visible to a tenant.
type ModelInfo struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Provider        string  `json:"provider"`
	MaxTokens       int     `json:"max_tokens"`
	CostPer1KTokens float64 `json:"cost_per_1k_tokens"`
}
