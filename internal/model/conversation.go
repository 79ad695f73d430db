package model

import "time"

// ConversationType classifies a conversation.
type ConversationType string

const (
	ConversationDirect  ConversationType = "direct"
	ConversationGroup   ConversationType = "group"
	ConversationChannel ConversationType = "channel"
)

// Valid reports whether t is a known conversation type.
func (t ConversationType) Valid() bool {
	switch t {
	case ConversationDirect, ConversationGroup, ConversationChannel:
		return true
	}
	return false
}

// ParticipantRole is the role of a user within a conversation.
type ParticipantRole string

const (
	ParticipantAdmin  ParticipantRole = "admin"
	ParticipantMember ParticipantRole = "member"
)

// Conversation represents a conversation thread. A direct conversation has
// exactly two participants and no name.
type Conversation struct {
	ID           string           `json:"id"`
	TenantID     string           `json:"tenant_id"`
	Type         ConversationType `json:"type"`
	Name         string           `json:"name,omitempty"`
	Description  string           `json:"description,omitempty"`
	IsPrivate    bool             `json:"is_private"`
	CreatedBy    string           `json:"created_by"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Participants []Participant    `json:"participants,omitempty"`
}

// Participant is a user's membership in a conversation. LastReadAt is the
// read watermark: the unread count is the number of messages from other
// authors created after it (all such messages when it is nil).
type Participant struct {
	ConversationID string          `json:"conversation_id"`
	UserID         string          `json:"user_id"`
	Role           ParticipantRole `json:"role"`
	JoinedAt       time.Time       `json:"joined_at"`
	LastReadAt     *time.Time      `json:"last_read_at,omitempty"`
}

// ConversationView is a conversation annotated for the caller's inbox:
// the newest message and the caller's unread count.
type ConversationView struct {
	Conversation
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
}

// LastActivityAt is the effective last-activity instant used for inbox
// ordering: the newest message's timestamp, or the conversation's creation
// time when no message exists.
func (v ConversationView) LastActivityAt() time.Time {
	if v.LastMessage != nil && v.LastMessage.CreatedAt.After(v.CreatedAt) {
		return v.LastMessage.CreatedAt
	}
	return v.CreatedAt
}

// CreateConversationRequest is the request to create a conversation. For a
// direct conversation ParticipantIDs holds the single other party; the
// creator is implicitly the second participant.
type CreateConversationRequest struct {
	Type           ConversationType `json:"type" validate:"required"`
	ParticipantIDs []string         `json:"participant_ids" validate:"required,min=1,dive,required"`
	Name           string           `json:"name,omitempty" validate:"max=256"`
	Description    string           `json:"description,omitempty" validate:"max=1024"`
	IsPrivate      bool             `json:"is_private"`
}

// AddParticipantRequest is the request to add a member to a group or channel.
type AddParticipantRequest struct {
	UserID string          `json:"user_id" validate:"required"`
	Role   ParticipantRole `json:"role,omitempty"`
}

// ListConversationsResponse is the caller's inbox.
type ListConversationsResponse struct {
	Conversations []ConversationView `json:"conversations"`
	Total         int                `json:"total"`
}
