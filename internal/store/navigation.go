package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tenantworks/platform/internal/model"
)

// NavigationStore persists navigation configurations and the read-only item
// library. It implements navigation.ConfigSource.
type NavigationStore struct {
	db *DB
}

// NewNavigationStore creates a navigation store.
func NewNavigationStore(db *DB) *NavigationStore {
	return &NavigationStore{db: db}
}

const navigationColumns = `id, tenant_id, user_id, role_id, name, is_active, items, created_by, updated_by, created_at, updated_at`

// Save inserts a configuration. New configurations are stored inactive;
// activation goes through Activate so the one-active-per-target invariant
// is enforced in a single transaction.
func (s *NavigationStore) Save(ctx context.Context, cfg *model.NavigationConfiguration) error {
	items, err := json.Marshal(cfg.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO navigation_configurations (`+navigationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8, $9, $10)`,
		cfg.ID, cfg.TenantID, cfg.UserID, cfg.RoleID, cfg.Name,
		items, cfg.CreatedBy, cfg.UpdatedBy, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert configuration: %w", err)
	}
	return nil
}

// Activate flips the configuration active, deactivating any other
// configuration for the same (tenant, user, role) target inside the same
// transaction. Concurrent activations serialize on the target rows;
// the last committed writer wins and no window with two active rows is
// observable thanks to the partial unique index.
func (s *NavigationStore) Activate(ctx context.Context, tenantID, configID, updatedBy string) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID, roleID *string
	err = tx.QueryRow(ctx,
		`SELECT user_id, role_id FROM navigation_configurations
		 WHERE tenant_id = $1 AND id = $2
		 FOR UPDATE`,
		tenantID, configID,
	).Scan(&userID, &roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select configuration: %w", err)
	}

	// Lock every row of the target so concurrent activations serialize on
	// the same set and never commit overlapping active rows.
	rows, err := tx.Query(ctx,
		`SELECT id FROM navigation_configurations
		 WHERE tenant_id = $1
		   AND COALESCE(user_id, '') = COALESCE($2, '')
		   AND COALESCE(role_id, '') = COALESCE($3, '')
		 ORDER BY id
		 FOR UPDATE`,
		tenantID, userID, roleID,
	)
	if err != nil {
		return fmt.Errorf("lock target: %w", err)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock target: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE navigation_configurations
		 SET is_active = FALSE, updated_by = $4, updated_at = NOW()
		 WHERE tenant_id = $1
		   AND COALESCE(user_id, '') = COALESCE($2, '')
		   AND COALESCE(role_id, '') = COALESCE($3, '')
		   AND is_active`,
		tenantID, userID, roleID, updatedBy,
	)
	if err != nil {
		return fmt.Errorf("deactivate previous: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE navigation_configurations
		 SET is_active = TRUE, updated_by = $3, updated_at = NOW()
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, configID, updatedBy,
	)
	if err != nil {
		return fmt.Errorf("activate configuration: %w", err)
	}

	return tx.Commit(ctx)
}

// Get returns one configuration, or (nil, nil) when missing in the tenant.
func (s *NavigationStore) Get(ctx context.Context, tenantID, configID string) (*model.NavigationConfiguration, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+navigationColumns+`
		 FROM navigation_configurations
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, configID,
	)
	return scanNavigation(row)
}

// List returns all configurations in a tenant, newest first.
func (s *NavigationStore) List(ctx context.Context, tenantID string) ([]model.NavigationConfiguration, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+navigationColumns+`
		 FROM navigation_configurations
		 WHERE tenant_id = $1
		 ORDER BY created_at DESC, id`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("select configurations: %w", err)
	}
	defer rows.Close()

	var configs []model.NavigationConfiguration
	for rows.Next() {
		cfg, err := scanNavigation(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate configurations: %w", err)
	}
	return configs, nil
}

// Delete removes a configuration.
func (s *NavigationStore) Delete(ctx context.Context, tenantID, configID string) error {
	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM navigation_configurations WHERE tenant_id = $1 AND id = $2`,
		tenantID, configID,
	)
	if err != nil {
		return fmt.Errorf("delete configuration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveForUser returns the active user-scoped configuration, or (nil, nil).
func (s *NavigationStore) ActiveForUser(ctx context.Context, tenantID, userID string) (*model.NavigationConfiguration, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+navigationColumns+`
		 FROM navigation_configurations
		 WHERE tenant_id = $1 AND user_id = $2 AND role_id IS NULL AND is_active`,
		tenantID, userID,
	)
	return scanNavigation(row)
}

// ActiveForRole returns the active role-scoped configuration, or (nil, nil).
func (s *NavigationStore) ActiveForRole(ctx context.Context, tenantID, roleID string) (*model.NavigationConfiguration, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+navigationColumns+`
		 FROM navigation_configurations
		 WHERE tenant_id = $1 AND user_id IS NULL AND role_id = $2 AND is_active`,
		tenantID, roleID,
	)
	return scanNavigation(row)
}

// ActiveDefault returns the active tenant-wide default, or (nil, nil).
func (s *NavigationStore) ActiveDefault(ctx context.Context, tenantID string) (*model.NavigationConfiguration, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+navigationColumns+`
		 FROM navigation_configurations
		 WHERE tenant_id = $1 AND user_id IS NULL AND role_id IS NULL AND is_active`,
		tenantID,
	)
	return scanNavigation(row)
}

// ListItems returns the active entries of the navigation item library.
func (s *NavigationStore) ListItems(ctx context.Context) ([]model.NavigationItem, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT key, label, COALESCE(icon, ''), COALESCE(route_name, ''), COALESCE(permission_required, ''),
		        COALESCE(category, ''), is_active, sort_order
		 FROM navigation_items
		 WHERE is_active
		 ORDER BY category, sort_order, key`,
	)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	var items []model.NavigationItem
	for rows.Next() {
		var it model.NavigationItem
		err := rows.Scan(&it.Key, &it.Label, &it.Icon, &it.RouteName, &it.PermissionRequired,
			&it.Category, &it.IsActive, &it.SortOrder)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func scanNavigation(row rowScanner) (*model.NavigationConfiguration, error) {
	cfg := &model.NavigationConfiguration{}
	var items []byte
	err := row.Scan(&cfg.ID, &cfg.TenantID, &cfg.UserID, &cfg.RoleID, &cfg.Name,
		&cfg.IsActive, &items, &cfg.CreatedBy, &cfg.UpdatedBy, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan configuration: %w", err)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &cfg.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	}
	return cfg, nil
}
