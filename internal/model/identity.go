// Package model defines data structures for the platform core.
package model

// Identity is the authenticated caller passed explicitly into every service
// call. Roles preserve assignment order; the first role has the highest
// priority when role-scoped navigation configurations compete.
type Identity struct {
	UserID      string   `json:"user_id"`
	TenantID    string   `json:"tenant_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the identity holds the given permission.
// An empty permission string is always granted.
func (id Identity) HasPermission(permission string) bool {
	if permission == "" {
		return true
	}
	for _, p := range id.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
