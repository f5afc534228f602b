// Package domain defines the core domain models for the assistant.
package domain

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// TurnStatus represents the status of a server-side reply turn.
type TurnStatus string

const (
	TurnStatusRunning   TurnStatus = "RUNNING"
	TurnStatusDone      TurnStatus = "DONE"
	TurnStatusFailed    TurnStatus = "FAILED"
	TurnStatusCancelled TurnStatus = "CANCELLED"
)

// EventType represents the type of a turn trace event.
type EventType string

const (
	EventTypeTurnStarted      EventType = "turn_started"
	EventTypeUserInput        EventType = "user_input"
	EventTypeLocationResolved EventType = "location_resolved"
	EventTypeWeatherFetched   EventType = "weather_fetched"
	EventTypeSearchDecision   EventType = "search_decision"
	EventTypeSearchResults    EventType = "search_results"
	EventTypeEnrichmentDone   EventType = "enrichment_done"
	EventTypeLLMCallStarted   EventType = "llm_call_started"
	EventTypeLLMCallDone      EventType = "llm_call_done"
	EventTypeTurnDone         EventType = "turn_done"
	EventTypeTurnFailed       EventType = "turn_failed"
	EventTypeTurnCancelled    EventType = "turn_cancelled"
)

// StreamEventType names the events of a reply stream.
type StreamEventType string

const (
	StreamEventTurn        StreamEventType = "turn"
	StreamEventDelta       StreamEventType = "delta"
	StreamEventSideChannel StreamEventType = "side_channel"
	StreamEventDone        StreamEventType = "done"
	StreamEventError       StreamEventType = "error"
)
