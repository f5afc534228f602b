package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

const providerName = "llm"

// Client talks to an OpenAI-compatible chat endpoint such as Groq.
type Client struct {
	api          *openai.Client
	defaultModel string
}

// NewClient creates a new LLM client.
func NewClient(baseURL, apiKey, defaultModel string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:          openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
	}
}

// CreateChatCompletion sends a non-streaming chat completion request.
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.toOpenAI(req, false))
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewProviderError(providerName, 0, errors.New("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

// CreateChatCompletionStream sends a streaming chat completion request.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, c.toOpenAI(req, true))
	if err != nil {
		return nil, wrapError(err)
	}
	defer stream.Close()

	var usage *Usage
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return usage, nil
		}
		if err != nil {
			return usage, wrapError(err)
		}

		if resp.Usage != nil {
			usage = &Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
		}

		for _, choice := range resp.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := callback(choice.Delta.Content); err != nil {
				return usage, err
			}
		}
	}
}

func (c *Client) toOpenAI(req *ChatCompletionRequest, stream bool) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	// A zero temperature is dropped by omitempty on the wire.
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewProviderError(providerName, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewProviderError(providerName, reqErr.HTTPStatusCode, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewProviderError(providerName, 0, fmt.Errorf("request failed: %w", err))
}
