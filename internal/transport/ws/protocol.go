package ws

import "github.com/infernodragon456/travel-chat-app/internal/domain"

// Message types from client to server. Server messages are domain.WireEvent.
const (
	TypeReply  = "reply"
	TypeCancel = "cancel"
)

// BaseMessage contains the fields common to client messages.
type BaseMessage struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id,omitempty"`
}

// ReplyMessage starts a reply turn.
type ReplyMessage struct {
	Type string `json:"type"`
	domain.ReplyRequest
}
