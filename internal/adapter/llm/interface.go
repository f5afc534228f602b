// Package llm provides an abstraction for LLM API clients.
package llm

import "context"

// Purpose labels why a completion is requested. It is used for logs,
// metrics and by the mock client to pick a canned answer.
type Purpose string

const (
	PurposeReply           Purpose = "reply"
	PurposeExtractLocation Purpose = "extract_location"
	PurposeClassifySearch  Purpose = "classify_search"
)

// Message is a single chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest describes one model call.
type ChatCompletionRequest struct {
	Purpose     Purpose   `json:"-"`
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Usage represents token usage of a call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamCallback is invoked for each text delta, in arrival order.
type StreamCallback func(delta string) error

// LLMClient defines the interface for LLM API operations.
type LLMClient interface {
	// CreateChatCompletion sends a non-streaming request and returns the
	// assistant text.
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (string, error)

	// CreateChatCompletionStream sends a streaming request.
	// The callback is called for each chunk received.
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
