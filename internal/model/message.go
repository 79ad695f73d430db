package model

import "time"

// MessageType classifies a message payload.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageFile, MessageImage, MessageSystem:
		return true
	}
	return false
}

// Message is a persisted conversation message. IDs are UUIDv7, so the id is
// monotonically increasing and serves as the tiebreak when two messages share
// a creation timestamp: display order is always (created_at, id).
type Message struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	UserID         string            `json:"user_id"`
	Content        string            `json:"content"`
	Type           MessageType       `json:"type"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	IsEdited       bool              `json:"is_edited"`
	EditedAt       *time.Time        `json:"edited_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// SendMessageRequest is the request to append a message to a conversation.
type SendMessageRequest struct {
	Content  string            `json:"content" validate:"max=100000"`
	Type     MessageType       `json:"type,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// EditMessageRequest is the request to replace a message's content.
type EditMessageRequest struct {
	Content string `json:"content" validate:"required,max=100000"`
}

// ListMessagesResponse is a page of messages in ascending (created_at, id)
// order.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

// TypingRequest is the request to signal the caller's typing state.
type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

// TypingSignal is the ephemeral "user X is typing in conversation Y" state.
// It is broadcast and cached with a short TTL, never persisted.
type TypingSignal struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	IsTyping       bool      `json:"is_typing"`
	Timestamp      time.Time `json:"timestamp"`
}
