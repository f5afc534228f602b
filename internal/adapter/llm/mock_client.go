package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient is a mock implementation of LLMClient for local runs and tests.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletion returns a canned answer for the request purpose.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.generateMockResponse(req), nil
}

// CreateChatCompletionStream simulates a streaming response.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	responseContent := m.generateMockResponse(req)

	for _, chunk := range splitIntoChunks(responseContent, 10) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := callback(chunk); err != nil {
			return nil, err
		}
	}

	prompt := estimateTokens(req)
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: len(responseContent) / 4,
		TotalTokens:      prompt + len(responseContent)/4,
	}, nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	switch req.Purpose {
	case PurposeExtractLocation:
		return "NONE"
	case PurposeClassifySearch:
		return `{"shouldShowResults": false}`
	}

	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// estimateTokens provides a rough token count estimate.
func estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

// splitIntoChunks splits a string into chunks of roughly the given rune count.
func splitIntoChunks(s string, chunkSize int) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	for i := 0; i < len(runes); i += chunkSize {
		end := min(i+chunkSize, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

func truncate(s string, maxLen int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen]) + "..."
}
