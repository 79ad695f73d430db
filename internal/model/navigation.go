package model

import "time"

// NavItemKind is the closed set of navigation item kinds.
type NavItemKind string

const (
	NavItemLink     NavItemKind = "link"
	NavItemDropdown NavItemKind = "dropdown"
	NavItemExternal NavItemKind = "external"
	NavItemDivider  NavItemKind = "divider"
)

// Valid reports whether k is a known item kind.
func (k NavItemKind) Valid() bool {
	switch k {
	case NavItemLink, NavItemDropdown, NavItemExternal, NavItemDivider:
		return true
	}
	return false
}

// NavItem is one node of a navigation tree. Permission, when set, gates the
// item: viewers lacking it do not see the item or its subtree. Trees are
// treated as immutable values; filtering produces new trees.
type NavItem struct {
	Key        string      `json:"key"`
	Label      string      `json:"label,omitempty"`
	Icon       string      `json:"icon,omitempty"`
	Kind       NavItemKind `json:"kind"`
	Route      string      `json:"route,omitempty"`
	URL        string      `json:"url,omitempty"`
	Permission string      `json:"permission,omitempty"`
	SortOrder  int         `json:"sort_order"`
	Children   []NavItem   `json:"children,omitempty"`
}

// NavigationConfiguration is a stored navigation tree scoped to a target.
// A nil UserID and RoleID means the tenant-wide default; at most one
// configuration may be active per (tenant, user, role) target.
type NavigationConfiguration struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    *string   `json:"user_id,omitempty"`
	RoleID    *string   `json:"role_id,omitempty"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	Items     []NavItem `json:"items"`
	CreatedBy string    `json:"created_by"`
	UpdatedBy string    `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NavigationItem is a read-only library entry describing one item available
// to the configuration builder.
type NavigationItem struct {
	Key                string `json:"key"`
	Label              string `json:"label"`
	Icon               string `json:"icon,omitempty"`
	RouteName          string `json:"route_name,omitempty"`
	PermissionRequired string `json:"permission_required,omitempty"`
	Category           string `json:"category,omitempty"`
	IsActive           bool   `json:"is_active"`
	SortOrder          int    `json:"sort_order"`
}

// SaveNavigationRequest is the request to create a navigation configuration.
// Target scoping: a user-scoped configuration sets UserID, a role-scoped one
// sets RoleID, the tenant default sets neither. Setting both is invalid.
type SaveNavigationRequest struct {
	Name     string    `json:"name" validate:"required,max=256"`
	UserID   *string   `json:"user_id,omitempty"`
	RoleID   *string   `json:"role_id,omitempty"`
	Items    []NavItem `json:"items" validate:"required"`
	Activate bool      `json:"activate"`
}

// ResolvedNavigation is the tree the caller should render, with the scope
// level that won the resolution.
type ResolvedNavigation struct {
	Scope  string    `json:"scope"` // user, role, tenant, empty
	Name   string    `json:"name,omitempty"`
	Items  []NavItem `json:"items"`
	RoleID *string   `json:"role_id,omitempty"`
}
