package domain

import (
	"encoding/json"
	"time"
)

// Turn is the server-side trace record of one reply.
type Turn struct {
	TurnID    string          `json:"turn_id"`
	Locale    string          `json:"locale"`
	Status    TurnStatus      `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
}

// Event represents a trace event for replay.
type Event struct {
	EventID string          `json:"event_id"`
	TurnID  string          `json:"turn_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
