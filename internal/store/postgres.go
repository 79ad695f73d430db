// Package store implements Postgres persistence for conversations,
// messages, participants, and navigation configurations. Every query is
// scoped by tenant_id first.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by mutating operations whose target row does not
// exist in the tenant. Read operations return (nil, nil) instead.
var ErrNotFound = errors.New("not found")

// DB wraps the pgx connection pool shared by the stores.
type DB struct {
	Pool *pgxpool.Pool
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, databaseURL string, maxConns int, connLifetime time.Duration) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = int32(maxConns)
	cfg.MaxConnLifetime = connLifetime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases the pool.
func (d *DB) Close() {
	d.Pool.Close()
}

// Bootstrap creates the schema if it does not exist. The partial unique
// index on navigation_configurations is the invariant the resolution engine
// depends on: at most one active configuration per (tenant, user, role)
// target.
func (d *DB) Bootstrap(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('direct', 'group', 'channel')),
			name TEXT,
			description TEXT,
			is_private BOOLEAN NOT NULL DEFAULT FALSE,
			created_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS conversations_tenant_idx
			ON conversations (tenant_id)`,

		`CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'member')),
			joined_at TIMESTAMPTZ NOT NULL,
			last_read_at TIMESTAMPTZ,
			PRIMARY KEY (conversation_id, user_id)
		)`,

		`CREATE INDEX IF NOT EXISTS participants_user_idx
			ON conversation_participants (user_id)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			tenant_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('text', 'file', 'image', 'system')),
			metadata JSONB,
			is_edited BOOLEAN NOT NULL DEFAULT FALSE,
			edited_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS messages_conversation_order_idx
			ON messages (conversation_id, created_at, id)`,

		`CREATE TABLE IF NOT EXISTS navigation_configurations (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			user_id TEXT,
			role_id TEXT,
			name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			items JSONB NOT NULL,
			created_by TEXT NOT NULL,
			updated_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS navigation_one_active_per_target
			ON navigation_configurations (tenant_id, COALESCE(user_id, ''), COALESCE(role_id, ''))
			WHERE is_active`,

		`CREATE TABLE IF NOT EXISTS navigation_items (
			key TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			icon TEXT,
			route_name TEXT,
			permission_required TEXT,
			category TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			sort_order INT NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS user_permissions (
			tenant_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			permission TEXT NOT NULL,
			PRIMARY KEY (tenant_id, user_id, permission)
		)`,
	}

	for _, query := range queries {
		if _, err := d.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}
	}
	return nil
}
