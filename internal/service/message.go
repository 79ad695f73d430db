package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tenantworks/platform/internal/apperror"
	"github.com/tenantworks/platform/internal/broadcast"
	"github.com/tenantworks/platform/internal/model"
	"github.com/tenantworks/platform/internal/store"
	"github.com/tenantworks/platform/pkg/logger"
	"github.com/tenantworks/platform/pkg/metrics"
)

// MessageService appends messages, drives live fan-out, and handles typing
// presence.
type MessageService struct {
	conversations ConversationStore
	messages      MessageStore
	typing        TypingStore
	publisher     EventPublisher
	logger        *logger.Logger
}

// NewMessageService creates a message service.
func NewMessageService(
	conversations ConversationStore,
	messages MessageStore,
	typing TypingStore,
	publisher EventPublisher,
	log *logger.Logger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		typing:        typing,
		publisher:     publisher,
		logger:        log,
	}
}

// Send appends a message to the conversation, publishes message.sent on the
// conversation channel and conversation.updated (with fresh unread counts)
// on the tenant channel. The persisted row is the source of truth; fan-out
// failures are logged and dropped.
func (s *MessageService) Send(ctx context.Context, ident model.Identity, conversationID string, req *model.SendMessageRequest) (*model.Message, error) {
	conv, err := s.requireParticipant(ctx, ident, conversationID)
	if err != nil {
		return nil, err
	}

	msgType := req.Type
	if msgType == "" {
		msgType = model.MessageText
	}
	if !msgType.Valid() {
		return nil, apperror.Validation("type", fmt.Sprintf("unknown message type %q", msgType))
	}
	if msgType == model.MessageText && strings.TrimSpace(req.Content) == "" {
		return nil, apperror.Validation("content", "content is required for text messages")
	}

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		UserID:         ident.UserID,
		Content:        req.Content,
		Type:           msgType,
		Metadata:       req.Metadata,
		CreatedAt:      time.Now(),
	}

	if err := s.messages.Insert(ctx, ident.TenantID, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	metrics.MessagesTotal.WithLabelValues(ident.TenantID, string(msgType)).Inc()

	s.publish(ctx, broadcast.ConversationChannel(ident.TenantID, conversationID), &model.Event{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Name:           model.EventMessageSent,
		TenantID:       ident.TenantID,
		ConversationID: conversationID,
		CreatedAt:      time.Now(),
		Message:        msg,
	})
	s.publishUpdated(ctx, ident.TenantID, conv, msg)

	return msg, nil
}

// List returns a page of the conversation's messages in ascending
// (created_at, id) order, starting after the given message id.
func (s *MessageService) List(ctx context.Context, ident model.Identity, conversationID, afterID string, limit int) (*model.ListMessagesResponse, error) {
	if _, err := s.requireParticipant(ctx, ident, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	messages, hasMore, err := s.messages.List(ctx, ident.TenantID, conversationID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if messages == nil {
		messages = []model.Message{}
	}

	return &model.ListMessagesResponse{Messages: messages, HasMore: hasMore}, nil
}

// Edit replaces the content of the caller's own message.
func (s *MessageService) Edit(ctx context.Context, ident model.Identity, conversationID, messageID string, req *model.EditMessageRequest) (*model.Message, error) {
	conv, err := s.requireParticipant(ctx, ident, conversationID)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.Get(ctx, ident.TenantID, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil || msg.ConversationID != conversationID {
		return nil, apperror.NotFound("message")
	}
	if msg.UserID != ident.UserID {
		return nil, apperror.Authorization("only the author may edit a message")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperror.Validation("content", "content cannot be empty")
	}

	if err := s.messages.Edit(ctx, ident.TenantID, messageID, req.Content); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NotFound("message")
		}
		return nil, fmt.Errorf("edit message: %w", err)
	}

	edited, err := s.messages.Get(ctx, ident.TenantID, messageID)
	if err != nil {
		return nil, fmt.Errorf("reload message: %w", err)
	}

	s.publishUpdated(ctx, ident.TenantID, conv, edited)
	return edited, nil
}

// MarkTyping records the caller's typing state in the presence store and
// whispers it to the conversation's peers. Delivery is best effort: errors
// are logged, never surfaced, and nothing is persisted.
func (s *MessageService) MarkTyping(ctx context.Context, ident model.Identity, conversationID string, isTyping bool) error {
	if _, err := s.requireParticipant(ctx, ident, conversationID); err != nil {
		return err
	}

	if err := s.typing.SetTyping(ctx, ident.TenantID, conversationID, ident.UserID, isTyping); err != nil {
		s.logger.Warn("typing presence update failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}

	signal := &model.TypingSignal{
		ConversationID: conversationID,
		UserID:         ident.UserID,
		IsTyping:       isTyping,
		Timestamp:      time.Now(),
	}
	ch := broadcast.ConversationChannel(ident.TenantID, conversationID)
	if err := s.publisher.PublishTyping(ch, signal); err != nil {
		metrics.BroadcastFailuresTotal.WithLabelValues(string(ch.Kind), "typing").Inc()
		s.logger.Warn("typing whisper failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil
	}

	metrics.TypingSignalsTotal.WithLabelValues(ident.TenantID).Inc()
	return nil
}

// TypingUsers returns who is typing in the conversation right now, the
// caller excluded.
func (s *MessageService) TypingUsers(ctx context.Context, ident model.Identity, conversationID string) ([]string, error) {
	if _, err := s.requireParticipant(ctx, ident, conversationID); err != nil {
		return nil, err
	}

	users, err := s.typing.TypingUsers(ctx, ident.TenantID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list typing users: %w", err)
	}

	out := make([]string, 0, len(users))
	for _, u := range users {
		if u != ident.UserID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *MessageService) requireParticipant(ctx context.Context, ident model.Identity, conversationID string) (*model.Conversation, error) {
	conv, err := s.conversations.Get(ctx, ident.TenantID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, apperror.NotFound("conversation")
	}
	for _, p := range conv.Participants {
		if p.UserID == ident.UserID {
			return conv, nil
		}
	}
	return nil, apperror.Authorization("not a participant of this conversation")
}

// publishUpdated emits conversation.updated on the tenant channel carrying
// the new last message and every participant's unread count.
func (s *MessageService) publishUpdated(ctx context.Context, tenantID string, conv *model.Conversation, lastMessage *model.Message) {
	unread := make(map[string]int, len(conv.Participants))
	for _, p := range conv.Participants {
		count, err := s.conversations.UnreadCount(ctx, conv.ID, p.UserID)
		if err != nil {
			continue
		}
		unread[p.UserID] = count
	}

	s.publish(ctx, broadcast.TenantChannel(tenantID), &model.Event{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Name:           model.EventConversationUpdated,
		TenantID:       tenantID,
		ConversationID: conv.ID,
		CreatedAt:      time.Now(),
		Conversation: &model.ConversationView{
			Conversation: *conv,
			LastMessage:  lastMessage,
		},
		UnreadCounts: unread,
	})
}

func (s *MessageService) publish(ctx context.Context, ch broadcast.Channel, event *model.Event) {
	if err := s.publisher.PublishEvent(ctx, ch, event); err != nil {
		metrics.BroadcastFailuresTotal.WithLabelValues(string(ch.Kind), string(event.Name)).Inc()
		s.logger.Warn("broadcast delivery failed",
			zap.String("channel", ch.Name()),
			zap.String("event", string(event.Name)),
			zap.Error(err),
		)
	}
}
