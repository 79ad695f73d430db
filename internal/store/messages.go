package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tenantworks/platform/internal/model"
)

// MessageStore persists messages. Ordering is always (created_at, id);
// message ids are UUIDv7 so the id column is the monotonic tiebreak when
// timestamps collide.
type MessageStore struct {
	db *DB
}

// NewMessageStore creates a message store.
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

// Insert appends a message.
func (s *MessageStore) Insert(ctx context.Context, tenantID string, msg *model.Message) error {
	metadata, err := marshalMetadata(msg.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, tenant_id, user_id, content, type, metadata, is_edited, edited_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		msg.ID, msg.ConversationID, tenantID, msg.UserID, msg.Content, msg.Type,
		metadata, msg.IsEdited, msg.EditedAt, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// List returns up to limit messages after the given message id, in ascending
// (created_at, id) order. An empty afterID starts from the beginning.
func (s *MessageStore) List(ctx context.Context, tenantID, conversationID, afterID string, limit int) ([]model.Message, bool, error) {
	query := `SELECT id, conversation_id, user_id, content, type, metadata, is_edited, edited_at, created_at
	          FROM messages
	          WHERE tenant_id = $1 AND conversation_id = $2`
	args := []any{tenantID, conversationID}

	if afterID != "" {
		query += ` AND (created_at, id) > (SELECT created_at, id FROM messages WHERE id = $3)`
		args = append(args, afterID)
	}
	query += fmt.Sprintf(` ORDER BY created_at, id LIMIT %d`, limit+1)

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, false, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate messages: %w", err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	return messages, hasMore, nil
}

// Get returns one message, or (nil, nil) when missing in the tenant.
func (s *MessageStore) Get(ctx context.Context, tenantID, messageID string) (*model.Message, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT id, conversation_id, user_id, content, type, metadata, is_edited, edited_at, created_at
		 FROM messages
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, messageID,
	)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// Edit replaces a message's content and stamps the edit time.
func (s *MessageStore) Edit(ctx context.Context, tenantID, messageID, content string) error {
	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE messages
		 SET content = $3, is_edited = TRUE, edited_at = NOW()
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, messageID, content,
	)
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Latest returns the newest message of a conversation, or (nil, nil) when
// the conversation has none.
func (s *MessageStore) Latest(ctx context.Context, tenantID, conversationID string) (*model.Message, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT id, conversation_id, user_id, content, type, metadata, is_edited, edited_at, created_at
		 FROM messages
		 WHERE tenant_id = $1 AND conversation_id = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		tenantID, conversationID,
	)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (model.Message, error) {
	var msg model.Message
	var metadata []byte
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.UserID, &msg.Content, &msg.Type,
		&metadata, &msg.IsEdited, &msg.EditedAt, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return msg, pgx.ErrNoRows
		}
		return msg, fmt.Errorf("scan message: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &msg.Metadata); err != nil {
			return msg, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return msg, nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}
