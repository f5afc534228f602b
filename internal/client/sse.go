package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// SSEEvent represents a parsed SSE event.
type SSEEvent struct {
	Event string
	Data  string
}

// parseSSE parses an SSE stream and calls handler for each event.
func parseSSE(reader io.Reader, handler func(SSEEvent) error) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var event SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line marks end of event
		if line == "" {
			if event.Event != "" || event.Data != "" {
				if err := handler(event); err != nil {
					return err
				}
				event = SSEEvent{}
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			event.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if event.Data != "" {
				event.Data += "\n" + data
			} else {
				event.Data = data
			}
		}
		// Comments and other fields are ignored.
	}

	if event.Event != "" || event.Data != "" {
		if err := handler(event); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// decodeEvent converts a named event payload to its typed form.
func decodeEvent(typ domain.StreamEventType, data []byte) (domain.StreamEvent, error) {
	var v any
	switch typ {
	case domain.StreamEventTurn:
		v = &domain.TurnEventData{}
	case domain.StreamEventDelta:
		v = &domain.DeltaEventData{}
	case domain.StreamEventSideChannel:
		v = &domain.SideChannelEventData{}
	case domain.StreamEventDone:
		v = &domain.DoneEventData{}
	case domain.StreamEventError:
		v = &domain.ErrorEventData{}
	default:
		return domain.StreamEvent{}, fmt.Errorf("unknown event type %q", typ)
	}
	if len(data) > 0 {
		if err := sonic.Unmarshal(data, v); err != nil {
			return domain.StreamEvent{}, fmt.Errorf("failed to parse %s event: %w", typ, err)
		}
	}
	return domain.StreamEvent{Type: typ, Data: v}, nil
}
