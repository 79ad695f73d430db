package store

import (
	"context"
	"fmt"
)

// PermissionStore reads the per-tenant permission grants consumed by
// navigation filtering and validation.
type PermissionStore struct {
	db *DB
}

// NewPermissionStore creates a permission store.
func NewPermissionStore(db *DB) *PermissionStore {
	return &PermissionStore{db: db}
}

// GetUserPermissions returns the user's permission set within the tenant.
func (s *PermissionStore) GetUserPermissions(ctx context.Context, tenantID, userID string) ([]string, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT permission
		 FROM user_permissions
		 WHERE tenant_id = $1 AND user_id = $2
		 ORDER BY permission`,
		tenantID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select permissions: %w", err)
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}
	return permissions, nil
}
