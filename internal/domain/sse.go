package domain

// StreamEvent is one event of a reply stream as handed to an emitter.
// Data is one of the *EventData types below.
type StreamEvent struct {
	Type StreamEventType
	Data any
}

// TurnEventData opens a reply stream and announces its correlation id.
type TurnEventData struct {
	MessageID string `json:"message_id"`
}

// DeltaEventData is the data for a delta event.
type DeltaEventData struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

// SideChannelEventData carries search results after the token stream.
type SideChannelEventData struct {
	MessageID        string      `json:"message_id"`
	WebSearchResults []WebResult `json:"webSearchResults"`
}

// DoneEventData is the data for a done event.
type DoneEventData struct {
	MessageID string     `json:"message_id"`
	Usage     *UsageData `json:"usage,omitempty"`
}

// UsageData represents token usage information.
type UsageData struct {
	TotalTokens      int `json:"total_tokens,omitempty"`
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	DurationMs       int `json:"duration_ms,omitempty"`
}

// ErrorEventData is the data for an error event.
type ErrorEventData struct {
	MessageID string `json:"message_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Error codes carried by error events.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeUpstream       = "upstream_error"
	ErrorCodeInternal       = "internal_error"
)

// WireEvent is the JSON envelope used when stream events travel over a
// WebSocket instead of SSE.
type WireEvent struct {
	Type      StreamEventType `json:"type"`
	MessageID string          `json:"message_id"`
	Ts        int64           `json:"ts"`
	Data      any             `json:"data,omitempty"`
}

// MessageIDOf extracts the correlation id from event data.
func MessageIDOf(data any) string {
	switch d := data.(type) {
	case *TurnEventData:
		return d.MessageID
	case *DeltaEventData:
		return d.MessageID
	case *SideChannelEventData:
		return d.MessageID
	case *DoneEventData:
		return d.MessageID
	case *ErrorEventData:
		return d.MessageID
	}
	return ""
}
