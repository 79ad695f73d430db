package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tenantworks/platform/internal/model"
)

// ConversationStore persists conversations and their participants.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a conversation store.
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Create inserts the conversation and all its participants in one
// transaction.
func (s *ConversationStore) Create(ctx context.Context, conv *model.Conversation) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO conversations (id, tenant_id, type, name, description, is_private, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)`,
		conv.ID, conv.TenantID, conv.Type, conv.Name, conv.Description,
		conv.IsPrivate, conv.CreatedBy, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}

	for _, p := range conv.Participants {
		_, err = tx.Exec(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id, role, joined_at)
			 VALUES ($1, $2, $3, $4)`,
			conv.ID, p.UserID, p.Role, p.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Get returns the conversation with participants hydrated, or (nil, nil)
// when it does not exist in the tenant.
func (s *ConversationStore) Get(ctx context.Context, tenantID, conversationID string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id, tenant_id, type, COALESCE(name, ''), COALESCE(description, ''), is_private, created_by, created_at, updated_at
		 FROM conversations
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, conversationID,
	).Scan(&conv.ID, &conv.TenantID, &conv.Type, &conv.Name, &conv.Description,
		&conv.IsPrivate, &conv.CreatedBy, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select conversation: %w", err)
	}

	rows, err := s.db.Pool.Query(ctx,
		`SELECT conversation_id, user_id, role, joined_at, last_read_at
		 FROM conversation_participants
		 WHERE conversation_id = $1
		 ORDER BY joined_at, user_id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.Role, &p.JoinedAt, &p.LastReadAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		conv.Participants = append(conv.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}

	return conv, nil
}

// ListForUser returns every conversation the user participates in, each
// annotated with its newest message and the user's unread count, ordered by
// effective last activity descending.
func (s *ConversationStore) ListForUser(ctx context.Context, tenantID, userID string) ([]model.ConversationView, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT c.id, c.tenant_id, c.type, COALESCE(c.name, ''), COALESCE(c.description, ''), c.is_private,
		        c.created_by, c.created_at, c.updated_at,
		        lm.id, lm.user_id, lm.content, lm.type, lm.is_edited, lm.edited_at, lm.created_at,
		        (SELECT COUNT(*) FROM messages m
		          WHERE m.conversation_id = c.id
		            AND m.user_id <> p.user_id
		            AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at))
		 FROM conversations c
		 JOIN conversation_participants p
		   ON p.conversation_id = c.id AND p.user_id = $2
		 LEFT JOIN LATERAL (
		     SELECT m.id, m.user_id, m.content, m.type, m.is_edited, m.edited_at, m.created_at
		     FROM messages m
		     WHERE m.conversation_id = c.id
		     ORDER BY m.created_at DESC, m.id DESC
		     LIMIT 1
		 ) lm ON TRUE
		 WHERE c.tenant_id = $1
		 ORDER BY GREATEST(COALESCE(lm.created_at, c.created_at), c.created_at) DESC, c.id`,
		tenantID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select conversations: %w", err)
	}
	defer rows.Close()

	var views []model.ConversationView
	for rows.Next() {
		var v model.ConversationView
		var lmID, lmUserID, lmContent *string
		var lmType *model.MessageType
		var lmEdited *bool
		var lmEditedAt, lmCreatedAt *time.Time
		err := rows.Scan(&v.ID, &v.TenantID, &v.Type, &v.Name, &v.Description, &v.IsPrivate,
			&v.CreatedBy, &v.CreatedAt, &v.UpdatedAt,
			&lmID, &lmUserID, &lmContent, &lmType, &lmEdited, &lmEditedAt, &lmCreatedAt,
			&v.UnreadCount)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if lmID != nil {
			v.LastMessage = &model.Message{
				ID:             *lmID,
				ConversationID: v.ID,
				UserID:         *lmUserID,
				Content:        *lmContent,
				Type:           *lmType,
				IsEdited:       *lmEdited,
				EditedAt:       lmEditedAt,
				CreatedAt:      *lmCreatedAt,
			}
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return views, nil
}

// Delete removes the conversation; participants and messages cascade.
func (s *ConversationStore) Delete(ctx context.Context, tenantID, conversationID string) error {
	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM conversations WHERE tenant_id = $1 AND id = $2`,
		tenantID, conversationID,
	)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddParticipant inserts a membership row.
func (s *ConversationStore) AddParticipant(ctx context.Context, conversationID string, p model.Participant) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO conversation_participants (conversation_id, user_id, role, joined_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (conversation_id, user_id) DO NOTHING`,
		conversationID, p.UserID, p.Role, p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// RemoveParticipant deletes a membership row.
func (s *ConversationStore) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	_, err := s.db.Pool.Exec(ctx,
		`DELETE FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}

// IsParticipant reports whether the user is a member of the conversation
// within the tenant.
func (s *ConversationStore) IsParticipant(ctx context.Context, tenantID, conversationID, userID string) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (
		    SELECT 1
		    FROM conversation_participants p
		    JOIN conversations c ON c.id = p.conversation_id
		    WHERE c.tenant_id = $1 AND p.conversation_id = $2 AND p.user_id = $3)`,
		tenantID, conversationID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return exists, nil
}

// MarkRead advances the user's read watermark. The unread count derives from
// this column, so it recomputes to zero immediately.
func (s *ConversationStore) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	_, err := s.db.Pool.Exec(ctx,
		`UPDATE conversation_participants
		 SET last_read_at = $3
		 WHERE conversation_id = $1 AND user_id = $2
		   AND (last_read_at IS NULL OR last_read_at < $3)`,
		conversationID, userID, at,
	)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// UnreadCount computes the user's unread count for one conversation.
func (s *ConversationStore) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	var count int
	err := s.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM messages m
		 JOIN conversation_participants p
		   ON p.conversation_id = m.conversation_id AND p.user_id = $2
		 WHERE m.conversation_id = $1
		   AND m.user_id <> $2
		   AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at)`,
		conversationID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
