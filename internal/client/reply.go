package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// StreamReply posts a reply request and relays the SSE events to handler.
// Unknown event names are skipped.
func (c *Client) StreamReply(ctx context.Context, req *domain.ReplyRequest, handler EventHandler) error {
	body, err := sonic.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reply", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return domain.NewProviderError("server", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return domain.NewProviderError("server", resp.StatusCode, errors.New(serverMessage(data)))
	}

	return parseSSE(resp.Body, func(e SSEEvent) error {
		evt, err := decodeEvent(domain.StreamEventType(e.Event), []byte(e.Data))
		if err != nil {
			c.logger.Debug().Err(err).Str("event", e.Event).Msg("skipping stream event")
			return nil
		}
		return handler(evt)
	})
}
