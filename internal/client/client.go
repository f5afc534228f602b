// Package client talks to the assistant server over HTTP and WebSocket.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// EventHandler is called for each stream event in arrival order.
type EventHandler func(evt domain.StreamEvent) error

// Client is an HTTP client for the assistant server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no overall timeout; streams end with the context.
	streamClient *http.Client
	logger       zerolog.Logger
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
		logger:       logger.With().Str("component", "client").Logger(),
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// postJSON sends a JSON body and decodes a JSON response. Non-2xx
// responses become ProviderErrors carrying the server's error message.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := sonic.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewProviderError("server", 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewProviderError("server", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewProviderError("server", resp.StatusCode, errors.New(serverMessage(data)))
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// serverMessage extracts {"error": "..."} or falls back to the raw body.
func serverMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(data))
}
