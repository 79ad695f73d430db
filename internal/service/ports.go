// Package service implements the business logic of the platform core.
// Services receive the caller's Identity explicitly on every call and
// return errors from the apperror taxonomy.
package service

import (
	"context"
	"time"

	"github.com/tenantworks/platform/internal/broadcast"
	"github.com/tenantworks/platform/internal/model"
	"github.com/tenantworks/platform/internal/navigation"
)

// ConversationStore is the persistence surface conversations need.
// Implemented by store.ConversationStore; faked in tests.
type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	Get(ctx context.Context, tenantID, conversationID string) (*model.Conversation, error)
	ListForUser(ctx context.Context, tenantID, userID string) ([]model.ConversationView, error)
	Delete(ctx context.Context, tenantID, conversationID string) error
	AddParticipant(ctx context.Context, conversationID string, p model.Participant) error
	RemoveParticipant(ctx context.Context, conversationID, userID string) error
	IsParticipant(ctx context.Context, tenantID, conversationID, userID string) (bool, error)
	MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
}

// MessageStore is the persistence surface messages need.
type MessageStore interface {
	Insert(ctx context.Context, tenantID string, msg *model.Message) error
	List(ctx context.Context, tenantID, conversationID, afterID string, limit int) ([]model.Message, bool, error)
	Get(ctx context.Context, tenantID, messageID string) (*model.Message, error)
	Edit(ctx context.Context, tenantID, messageID, content string) error
	Latest(ctx context.Context, tenantID, conversationID string) (*model.Message, error)
}

// NavigationStore is the persistence surface the navigation service needs.
type NavigationStore interface {
	navigation.ConfigSource
	Save(ctx context.Context, cfg *model.NavigationConfiguration) error
	Activate(ctx context.Context, tenantID, configID, updatedBy string) error
	Get(ctx context.Context, tenantID, configID string) (*model.NavigationConfiguration, error)
	List(ctx context.Context, tenantID string) ([]model.NavigationConfiguration, error)
	Delete(ctx context.Context, tenantID, configID string) error
	ListItems(ctx context.Context) ([]model.NavigationItem, error)
}

// PermissionSource exposes the permission service consumed by navigation
// filtering and validation.
type PermissionSource interface {
	GetUserPermissions(ctx context.Context, tenantID, userID string) ([]string, error)
}

// TypingStore keeps the ephemeral typing presence state.
type TypingStore interface {
	SetTyping(ctx context.Context, tenantID, conversationID, userID string, isTyping bool) error
	TypingUsers(ctx context.Context, tenantID, conversationID string) ([]string, error)
}

// EventPublisher fans events out to broadcast channels. Durable events and
// typing whispers travel separate paths.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ch broadcast.Channel, event *model.Event) error
	PublishTyping(ch broadcast.Channel, signal *model.TypingSignal) error
}
