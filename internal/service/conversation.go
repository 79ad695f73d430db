package service

import (
	"context"
	"errors"
	"fmt"
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

// ConversationService handles conversation lifecycle and unread-count
// bookkeeping.
type ConversationService struct {
	conversations ConversationStore
	publisher     EventPublisher
	logger        *logger.Logger
}

// NewConversationService creates a conversation service.
func NewConversationService(conversations ConversationStore, publisher EventPublisher, log *logger.Logger) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		publisher:     publisher,
		logger:        log,
	}
}

// Create creates a conversation. A direct conversation names exactly one
// other party (the creator is implicitly the second participant) and
// carries no name; group and channel conversations require a name. The
// creator joins as admin, everyone else as member.
func (s *ConversationService) Create(ctx context.Context, ident model.Identity, req *model.CreateConversationRequest) (*model.Conversation, error) {
	if !req.Type.Valid() {
		return nil, apperror.Validation("type", fmt.Sprintf("unknown conversation type %q", req.Type))
	}

	others := dedupe(req.ParticipantIDs, ident.UserID)

	switch req.Type {
	case model.ConversationDirect:
		if len(others) != 1 {
			return nil, apperror.Validation("participant_ids", "a direct conversation has exactly one other participant")
		}
		if req.Name != "" {
			return nil, apperror.Validation("name", "a direct conversation has no name")
		}
	default:
		if req.Name == "" {
			return nil, apperror.Validation("name", "a name is required for group and channel conversations")
		}
		if len(others) == 0 {
			return nil, apperror.Validation("participant_ids", "at least one participant is required")
		}
	}

	now := time.Now()
	conv := &model.Conversation{
		ID:          uuid.Must(uuid.NewV7()).String(),
		TenantID:    ident.TenantID,
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		CreatedBy:   ident.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	conv.Participants = append(conv.Participants, model.Participant{
		ConversationID: conv.ID,
		UserID:         ident.UserID,
		Role:           model.ParticipantAdmin,
		JoinedAt:       now,
	})
	for _, userID := range others {
		conv.Participants = append(conv.Participants, model.Participant{
			ConversationID: conv.ID,
			UserID:         userID,
			Role:           model.ParticipantMember,
			JoinedAt:       now,
		})
	}

	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	metrics.ConversationsTotal.WithLabelValues(ident.TenantID, string(conv.Type)).Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("tenant_id", conv.TenantID),
		zap.String("type", string(conv.Type)),
	)

	s.publish(ctx, broadcast.TenantChannel(ident.TenantID), &model.Event{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Name:           model.EventConversationCreated,
		TenantID:       ident.TenantID,
		ConversationID: conv.ID,
		CreatedAt:      time.Now(),
		Conversation:   &model.ConversationView{Conversation: *conv},
	})

	return conv, nil
}

// List returns the caller's inbox: every conversation they participate in,
// annotated with the newest message and their unread count, ordered by
// effective last activity descending.
func (s *ConversationService) List(ctx context.Context, ident model.Identity) (*model.ListConversationsResponse, error) {
	views, err := s.conversations.ListForUser(ctx, ident.TenantID, ident.UserID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if views == nil {
		views = []model.ConversationView{}
	}
	return &model.ListConversationsResponse{Conversations: views, Total: len(views)}, nil
}

// Get returns one conversation with participants hydrated. Non-participants
// get NotFound, the same answer as for a conversation that does not exist.
func (s *ConversationService) Get(ctx context.Context, ident model.Identity, conversationID string) (*model.Conversation, error) {
	conv, err := s.requireParticipant(ctx, ident, conversationID)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Delete removes a conversation; participants and messages cascade. Only
// the creator or a conversation admin may delete.
func (s *ConversationService) Delete(ctx context.Context, ident model.Identity, conversationID string) error {
	conv, err := s.requireParticipant(ctx, ident, conversationID)
	if err != nil {
		return err
	}

	if conv.CreatedBy != ident.UserID && !isConversationAdmin(conv, ident.UserID) {
		return apperror.Authorization("only the creator or an admin may delete a conversation")
	}

	if err := s.conversations.Delete(ctx, ident.TenantID, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperror.NotFound("conversation")
		}
		return fmt.Errorf("delete conversation: %w", err)
	}

	s.logger.Info("conversation deleted",
		zap.String("conversation_id", conversationID),
		zap.String("tenant_id", ident.TenantID),
	)

	s.publish(ctx, broadcast.TenantChannel(ident.TenantID), &model.Event{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Name:           model.EventConversationDeleted,
		TenantID:       ident.TenantID,
		ConversationID: conversationID,
		CreatedAt:      time.Now(),
	})

	return nil
}

// AddParticipant adds a member to a group or channel conversation. Only the
// creator or a conversation admin may add members.
func (s *ConversationService) AddParticipant(ctx context.Context, ident model.Identity, conversationID string, req *model.AddParticipantRequest) error {
	conv, err := s.requireParticipant(ctx, ident, conversationID)
	if err != nil {
		return err
	}

	if conv.Type == model.ConversationDirect {
		return apperror.Validation("conversation", "cannot add participants to a direct conversation")
	}
	if conv.CreatedBy != ident.UserID && !isConversationAdmin(conv, ident.UserID) {
		return apperror.Authorization("only the creator or an admin may add participants")
	}

	role := req.Role
	if role == "" {
		role = model.ParticipantMember
	}

	err = s.conversations.AddParticipant(ctx, conversationID, model.Participant{
		ConversationID: conversationID,
		UserID:         req.UserID,
		Role:           role,
		JoinedAt:       time.Now(),
	})
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}

	s.publishUpdated(ctx, ident.TenantID, conversationID)
	return nil
}

// Leave removes the caller from a group or channel conversation.
func (s *ConversationService) Leave(ctx context.Context, ident model.Identity, conversationID string) error {
	conv, err := s.requireParticipant(ctx, ident, conversationID)
	if err != nil {
		return err
	}
	if conv.Type == model.ConversationDirect {
		return apperror.Validation("conversation", "cannot leave a direct conversation")
	}

	if err := s.conversations.RemoveParticipant(ctx, conversationID, ident.UserID); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}

	s.publishUpdated(ctx, ident.TenantID, conversationID)
	return nil
}

// MarkRead advances the caller's read watermark to now, which recomputes
// their unread count to zero. It returns the resulting unread count.
func (s *ConversationService) MarkRead(ctx context.Context, ident model.Identity, conversationID string) (int, error) {
	if _, err := s.requireParticipant(ctx, ident, conversationID); err != nil {
		return 0, err
	}

	if err := s.conversations.MarkRead(ctx, conversationID, ident.UserID, time.Now()); err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}

	count, err := s.conversations.UnreadCount(ctx, conversationID, ident.UserID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// requireParticipant loads the conversation and verifies the caller's
// membership. A missing conversation and a foreign conversation look the
// same to the caller.
func (s *ConversationService) requireParticipant(ctx context.Context, ident model.Identity, conversationID string) (*model.Conversation, error) {
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

// publishUpdated emits conversation.updated on the tenant channel with the
// current last message and per-participant unread counts.
func (s *ConversationService) publishUpdated(ctx context.Context, tenantID, conversationID string) {
	conv, err := s.conversations.Get(ctx, tenantID, conversationID)
	if err != nil || conv == nil {
		return
	}

	unread := make(map[string]int, len(conv.Participants))
	for _, p := range conv.Participants {
		count, err := s.conversations.UnreadCount(ctx, conversationID, p.UserID)
		if err != nil {
			continue
		}
		unread[p.UserID] = count
	}

	s.publish(ctx, broadcast.TenantChannel(tenantID), &model.Event{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Name:           model.EventConversationUpdated,
		TenantID:       tenantID,
		ConversationID: conversationID,
		CreatedAt:      time.Now(),
		Conversation:   &model.ConversationView{Conversation: *conv},
		UnreadCounts:   unread,
	})
}

// publish delivers a durable event, logging and swallowing failures: the
// persisted write already succeeded, so fan-out is a convenience layer.
func (s *ConversationService) publish(ctx context.Context, ch broadcast.Channel, event *model.Event) {
	if err := s.publisher.PublishEvent(ctx, ch, event); err != nil {
		metrics.BroadcastFailuresTotal.WithLabelValues(string(ch.Kind), string(event.Name)).Inc()
		s.logger.Warn("broadcast delivery failed",
			zap.String("channel", ch.Name()),
			zap.String("event", string(event.Name)),
			zap.Error(err),
		)
	}
}

func isConversationAdmin(conv *model.Conversation, userID string) bool {
	for _, p := range conv.Participants {
		if p.UserID == userID && p.Role == model.ParticipantAdmin {
			return true
		}
	}
	return false
}

// dedupe removes duplicates and the creator from the participant id list,
// preserving order.
func dedupe(ids []string, creatorID string) []string {
	seen := map[string]bool{creatorID: true}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
