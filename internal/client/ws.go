package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// WSStreamer streams reply turns over GET /ws. Each turn uses its own
// connection.
type WSStreamer struct {
	url    string
	dialer *websocket.Dialer
	logger zerolog.Logger
}

// NewWSStreamer creates a streamer for the server at baseURL (http or ws
// scheme).
func NewWSStreamer(baseURL string, logger zerolog.Logger) *WSStreamer {
	url := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	if !strings.HasSuffix(url, "/ws") {
		url += "/ws"
	}
	return &WSStreamer{
		url:    url,
		dialer: websocket.DefaultDialer,
		logger: logger.With().Str("component", "ws_client").Logger(),
	}
}

type wireEvent struct {
	Type      domain.StreamEventType `json:"type"`
	MessageID string                 `json:"message_id"`
	Data      json.RawMessage        `json:"data"`
}

type replyMessage struct {
	Type string `json:"type"`
	*domain.ReplyRequest
}

// StreamReply sends a reply request and relays events until the turn's
// done or error event. Cancelling ctx sends a cancel message.
func (s *WSStreamer) StreamReply(ctx context.Context, req *domain.ReplyRequest, handler EventHandler) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return domain.NewProviderError("server", 0, fmt.Errorf("dial: %w", err))
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = write(map[string]string{"type": "cancel", "message_id": req.MessageID})
		_ = conn.Close()
	})
	defer stop()

	if err := write(replyMessage{Type: "reply", ReplyRequest: req}); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return domain.NewProviderError("server", 0, fmt.Errorf("read: %w", err))
		}

		var w wireEvent
		if err := sonic.Unmarshal(data, &w); err != nil {
			s.logger.Debug().Err(err).Msg("skipping malformed event")
			continue
		}
		evt, err := decodeEvent(w.Type, w.Data)
		if err != nil {
			s.logger.Debug().Err(err).Msg("skipping stream event")
			continue
		}
		if err := handler(evt); err != nil {
			return err
		}
		if w.MessageID == req.MessageID && (w.Type == domain.StreamEventDone || w.Type == domain.StreamEventError) {
			return nil
		}
	}
}
