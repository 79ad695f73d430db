package model

import "time"

// EventName identifies a durable broadcast event. Typing signals are not
// events: they travel the ephemeral whisper path and never enter the
// durable stream.
type EventName string

const (
	EventConversationCreated EventName = "conversation.created"
	EventConversationUpdated EventName = "conversation.updated"
	EventConversationDeleted EventName = "conversation.deleted"
	EventMessageSent         EventName = "message.sent"
)

// Event is the envelope published on conversation and tenant channels.
type Event struct {
	ID             string    `json:"id"`
	Name           EventName `json:"name"`
	TenantID       string    `json:"tenant_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`

	// Exactly one of the following is set, matching Name.
	Message      *Message          `json:"message,omitempty"`
	Conversation *ConversationView `json:"conversation,omitempty"`

	// UnreadCounts maps participant user ids to their unread count after
	// this event, for conversation.updated.
	UnreadCounts map[string]int `json:"unread_counts,omitempty"`
}
