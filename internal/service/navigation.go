package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tenantworks/platform/internal/apperror"
	"github.com/tenantworks/platform/internal/model"
	"github.com/tenantworks/platform/internal/navigation"
	"github.com/tenantworks/platform/internal/store"
	"github.com/tenantworks/platform/pkg/logger"
	"github.com/tenantworks/platform/pkg/metrics"
)

// NavigationService manages navigation configurations and resolves the tree
// a viewer should render. Permissions always come from the permission
// source, never from token claims.
type NavigationService struct {
	configs     NavigationStore
	permissions PermissionSource
	logger      *logger.Logger
}

// NewNavigationService creates a navigation service.
func NewNavigationService(configs NavigationStore, permissions PermissionSource, log *logger.Logger) *NavigationService {
	return &NavigationService{
		configs:     configs,
		permissions: permissions,
		logger:      log,
	}
}

// Save validates and stores a configuration. The submitter cannot reference
// a permission they do not hold anywhere in the tree. When req.Activate is
// set the new configuration atomically replaces the target's currently
// active one.
func (s *NavigationService) Save(ctx context.Context, ident model.Identity, req *model.SaveNavigationRequest) (*model.NavigationConfiguration, error) {
	if req.UserID != nil && req.RoleID != nil {
		return nil, apperror.Validation("target", "a configuration targets a user or a role, not both")
	}

	ident, err := s.withPermissions(ctx, ident)
	if err != nil {
		return nil, err
	}
	if err := navigation.ValidateTree(req.Items, ident); err != nil {
		return nil, err
	}

	now := time.Now()
	cfg := &model.NavigationConfiguration{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TenantID:  ident.TenantID,
		UserID:    req.UserID,
		RoleID:    req.RoleID,
		Name:      req.Name,
		Items:     req.Items,
		CreatedBy: ident.UserID,
		UpdatedBy: ident.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save configuration: %w", err)
	}

	s.logger.Info("navigation configuration saved",
		zap.String("configuration_id", cfg.ID),
		zap.String("tenant_id", cfg.TenantID),
		zap.Bool("activate", req.Activate),
	)

	if req.Activate {
		if err := s.Activate(ctx, ident, cfg.ID); err != nil {
			return nil, err
		}
		cfg.IsActive = true
	}

	return cfg, nil
}

// Activate flips the configuration active. Any other active configuration
// for the same (tenant, user, role) target is deactivated in the same
// transaction; concurrent activations resolve last-writer-wins with no
// observable window of two active configurations.
func (s *NavigationService) Activate(ctx context.Context, ident model.Identity, configID string) error {
	err := s.configs.Activate(ctx, ident.TenantID, configID, ident.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperror.NotFound("navigation configuration")
		}
		return fmt.Errorf("activate configuration: %w", err)
	}
	return nil
}

// Get returns one configuration.
func (s *NavigationService) Get(ctx context.Context, ident model.Identity, configID string) (*model.NavigationConfiguration, error) {
	cfg, err := s.configs.Get(ctx, ident.TenantID, configID)
	if err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}
	if cfg == nil {
		return nil, apperror.NotFound("navigation configuration")
	}
	return cfg, nil
}

// List returns every configuration in the caller's tenant.
func (s *NavigationService) List(ctx context.Context, ident model.Identity) ([]model.NavigationConfiguration, error) {
	configs, err := s.configs.List(ctx, ident.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	if configs == nil {
		configs = []model.NavigationConfiguration{}
	}
	return configs, nil
}

// Delete removes a configuration. Deleting the active configuration makes
// the target fall back to the next resolution level.
func (s *NavigationService) Delete(ctx context.Context, ident model.Identity, configID string) error {
	if err := s.configs.Delete(ctx, ident.TenantID, configID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperror.NotFound("navigation configuration")
		}
		return fmt.Errorf("delete configuration: %w", err)
	}
	return nil
}

// Current resolves the navigation tree for the caller: user scope first,
// then the caller's roles in assignment order, then the tenant default,
// then empty. The winning tree is filtered to the caller's permissions.
func (s *NavigationService) Current(ctx context.Context, ident model.Identity) (*model.ResolvedNavigation, error) {
	ident, err := s.withPermissions(ctx, ident)
	if err != nil {
		return nil, err
	}

	resolved, err := navigation.Resolve(ctx, s.configs, ident)
	if err != nil {
		return nil, fmt.Errorf("resolve navigation: %w", err)
	}

	metrics.NavigationResolutionsTotal.WithLabelValues(resolved.Scope).Inc()
	return resolved, nil
}

// Preview resolves the navigation a specific target would see, for the
// builder UI. A user target is filtered to that user's permissions; a role
// target has no single permission set, so it is filtered to the caller's.
func (s *NavigationService) Preview(ctx context.Context, ident model.Identity, targetType, targetID string) (*model.ResolvedNavigation, error) {
	switch targetType {
	case "user":
		perms, err := s.permissions.GetUserPermissions(ctx, ident.TenantID, targetID)
		if err != nil {
			return nil, fmt.Errorf("load target permissions: %w", err)
		}
		target := model.Identity{UserID: targetID, TenantID: ident.TenantID, Permissions: perms}
		resolved, err := navigation.Resolve(ctx, s.configs, target)
		if err != nil {
			return nil, fmt.Errorf("resolve navigation: %w", err)
		}
		return resolved, nil

	case "role":
		ident, err := s.withPermissions(ctx, ident)
		if err != nil {
			return nil, err
		}
		target := model.Identity{UserID: "", TenantID: ident.TenantID, Roles: []string{targetID}, Permissions: ident.Permissions}
		resolved, err := navigation.Resolve(ctx, s.configs, target)
		if err != nil {
			return nil, fmt.Errorf("resolve navigation: %w", err)
		}
		return resolved, nil
	}

	return nil, apperror.Validation("type", "target type must be user or role")
}

// ListItems returns the item library the builder UI assembles trees from.
func (s *NavigationService) ListItems(ctx context.Context) ([]model.NavigationItem, error) {
	items, err := s.configs.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list navigation items: %w", err)
	}
	if items == nil {
		items = []model.NavigationItem{}
	}
	return items, nil
}

// withPermissions returns a copy of the identity hydrated with the
// permission service's view of the user.
func (s *NavigationService) withPermissions(ctx context.Context, ident model.Identity) (model.Identity, error) {
	perms, err := s.permissions.GetUserPermissions(ctx, ident.TenantID, ident.UserID)
	if err != nil {
		return ident, fmt.Errorf("load permissions: %w", err)
	}
	ident.Permissions = perms
	return ident, nil
}
