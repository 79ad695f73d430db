// Package navigation implements the navigation configuration resolution
// engine: selecting the active configuration for a (tenant, user, role)
// target and filtering the configured tree to the viewer's permissions.
package navigation

import (
	"context"
	"fmt"
	"sort"

	"github.com/tenantworks/platform/internal/apperror"
	"github.com/tenantworks/platform/internal/model"
)

// ConfigSource supplies active configurations per scope. Implementations
// return (nil, nil) when no active configuration exists for the target.
type ConfigSource interface {
	ActiveForUser(ctx context.Context, tenantID, userID string) (*model.NavigationConfiguration, error)
	ActiveForRole(ctx context.Context, tenantID, roleID string) (*model.NavigationConfiguration, error)
	ActiveDefault(ctx context.Context, tenantID string) (*model.NavigationConfiguration, error)
}

// Resolution scope labels, most specific first.
const (
	ScopeUser   = "user"
	ScopeRole   = "role"
	ScopeTenant = "tenant"
	ScopeEmpty  = "empty"
)

// Resolve determines the navigation tree for the identity. Most specific
// scope wins: user-level, then the identity's roles in assignment order
// (the first role with an active configuration wins; this is the
// deterministic tie-break for users holding several roles), then the
// tenant-wide default, then an empty tree. The winning tree is filtered to
// the identity's permissions before it is returned.
func Resolve(ctx context.Context, src ConfigSource, ident model.Identity) (*model.ResolvedNavigation, error) {
	cfg, err := src.ActiveForUser(ctx, ident.TenantID, ident.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup user configuration: %w", err)
	}
	if cfg != nil {
		return resolved(ScopeUser, cfg, ident), nil
	}

	for _, role := range ident.Roles {
		cfg, err = src.ActiveForRole(ctx, ident.TenantID, role)
		if err != nil {
			return nil, fmt.Errorf("lookup role configuration: %w", err)
		}
		if cfg != nil {
			return resolved(ScopeRole, cfg, ident), nil
		}
	}

	cfg, err = src.ActiveDefault(ctx, ident.TenantID)
	if err != nil {
		return nil, fmt.Errorf("lookup tenant default: %w", err)
	}
	if cfg != nil {
		return resolved(ScopeTenant, cfg, ident), nil
	}

	return &model.ResolvedNavigation{Scope: ScopeEmpty, Items: []model.NavItem{}}, nil
}

func resolved(scope string, cfg *model.NavigationConfiguration, ident model.Identity) *model.ResolvedNavigation {
	return &model.ResolvedNavigation{
		Scope:  scope,
		Name:   cfg.Name,
		Items:  FilterTree(cfg.Items, ident),
		RoleID: cfg.RoleID,
	}
}

// FilterTree returns a new tree containing only the items the identity may
// see. An item gated by a permission the identity lacks is dropped along
// with its subtree. A dropdown whose children are all filtered out is
// dropped entirely. Siblings are ordered by (sort_order, key). The input is
// never mutated.
func FilterTree(items []model.NavItem, ident model.Identity) []model.NavItem {
	out := make([]model.NavItem, 0, len(items))
	for _, item := range items {
		if !ident.HasPermission(item.Permission) {
			continue
		}
		filtered := item
		filtered.Children = FilterTree(item.Children, ident)
		if item.Kind == model.NavItemDropdown && len(filtered.Children) == 0 {
			continue
		}
		out = append(out, filtered)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ValidateTree checks a tree being saved by the identity. It walks every
// item, nested children included, and reports a ValidationError listing each
// item whose required permission the submitter does not hold: a user cannot
// grant navigation access they do not have themselves. Structural problems
// (missing keys, unknown kinds, duplicate keys) are reported the same way.
func ValidateTree(items []model.NavItem, ident model.Identity) error {
	fields := map[string]string{}
	seen := map[string]bool{}
	walkValidate(items, ident, fields, seen)
	if len(fields) > 0 {
		return &apperror.ValidationError{Fields: fields}
	}
	return nil
}

func walkValidate(items []model.NavItem, ident model.Identity, fields map[string]string, seen map[string]bool) {
	for i, item := range items {
		name := item.Key
		if name == "" {
			name = fmt.Sprintf("items[%d]", i)
			fields[name] = "item key is required"
		} else if seen[name] {
			fields[name] = "duplicate item key"
		}
		seen[name] = true

		if !item.Kind.Valid() {
			fields[name] = fmt.Sprintf("unknown item kind %q", item.Kind)
		}
		if item.Kind != model.NavItemDropdown && len(item.Children) > 0 {
			fields[name] = "only dropdown items may have children"
		}
		if item.Permission != "" && !ident.HasPermission(item.Permission) {
			fields[name] = fmt.Sprintf("requires permission %q which you do not hold", item.Permission)
		}
		walkValidate(item.Children, ident, fields, seen)
	}
}
