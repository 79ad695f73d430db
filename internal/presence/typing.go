// Package presence keeps the ephemeral typing state in Redis. Keys expire
// on their own after a short TTL, so a client that stops sending pings
// simply disappears from the typing set; nothing is ever persisted.
package presence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store tracks who is typing in which conversation.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a presence store. ttl bounds how long a typing flag survives
// without a refresh.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func typingKey(tenantID, conversationID, userID string) string {
	return fmt.Sprintf("typing:%s:%s:%s", tenantID, conversationID, userID)
}

func typingPattern(tenantID, conversationID string) string {
	return fmt.Sprintf("typing:%s:%s:*", tenantID, conversationID)
}

// SetTyping records or clears the user's typing flag. A true flag refreshes
// the TTL; a false flag deletes the key immediately.
func (s *Store) SetTyping(ctx context.Context, tenantID, conversationID, userID string, isTyping bool) error {
	key := typingKey(tenantID, conversationID, userID)
	if isTyping {
		if err := s.rdb.Set(ctx, key, "1", s.ttl).Err(); err != nil {
			return fmt.Errorf("set typing flag: %w", err)
		}
		return nil
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clear typing flag: %w", err)
	}
	return nil
}

// TypingUsers returns the ids of users currently typing in the
// conversation.
func (s *Store) TypingUsers(ctx context.Context, tenantID, conversationID string) ([]string, error) {
	pattern := typingPattern(tenantID, conversationID)
	prefix := strings.TrimSuffix(pattern, "*")

	var users []string
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan typing keys: %w", err)
		}
		for _, key := range keys {
			users = append(users, strings.TrimPrefix(key, prefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return users, nil
}

// Ping verifies Redis connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
