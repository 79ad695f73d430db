package navigation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantworks/platform/internal/apperror"
	"github.com/tenantworks/platform/internal/model"
)

type fakeSource struct {
	byUser    map[string]*model.NavigationConfiguration
	byRole    map[string]*model.NavigationConfiguration
	tenantDef *model.NavigationConfiguration
}

func (f *fakeSource) ActiveForUser(_ context.Context, _, userID string) (*model.NavigationConfiguration, error) {
	return f.byUser[userID], nil
}

func (f *fakeSource) ActiveForRole(_ context.Context, _, roleID string) (*model.NavigationConfiguration, error) {
	return f.byRole[roleID], nil
}

func (f *fakeSource) ActiveDefault(_ context.Context, _ string) (*model.NavigationConfiguration, error) {
	return f.tenantDef, nil
}

func config(name string, items ...model.NavItem) *model.NavigationConfiguration {
	return &model.NavigationConfiguration{Name: name, Items: items}
}

func link(key string, order int) model.NavItem {
	return model.NavItem{Key: key, Kind: model.NavItemLink, SortOrder: order}
}

func TestResolveUserScopeWins(t *testing.T) {
	src := &fakeSource{
		byUser:    map[string]*model.NavigationConfiguration{"u1": config("mine", link("home", 0))},
		byRole:    map[string]*model.NavigationConfiguration{"admin": config("admins", link("settings", 0))},
		tenantDef: config("default", link("dash", 0)),
	}
	ident := model.Identity{UserID: "u1", TenantID: "t1", Roles: []string{"admin"}}

	resolved, err := Resolve(context.Background(), src, ident)
	require.NoError(t, err)
	assert.Equal(t, ScopeUser, resolved.Scope)
	assert.Equal(t, "mine", resolved.Name)
}

func TestResolveRoleOrderBreaksTies(t *testing.T) {
	src := &fakeSource{
		byRole: map[string]*model.NavigationConfiguration{
			"editor": config("editors", link("posts", 0)),
			"viewer": config("viewers", link("feed", 0)),
		},
	}
	ident := model.Identity{UserID: "u1", TenantID: "t1", Roles: []string{"viewer", "editor"}}

	resolved, err := Resolve(context.Background(), src, ident)
	require.NoError(t, err)
	assert.Equal(t, ScopeRole, resolved.Scope)
	assert.Equal(t, "viewers", resolved.Name, "first assigned role should win")
}

func TestResolveSkipsRolesWithoutConfiguration(t *testing.T) {
	src := &fakeSource{
		byRole: map[string]*model.NavigationConfiguration{
			"editor": config("editors", link("posts", 0)),
		},
	}
	ident := model.Identity{UserID: "u1", TenantID: "t1", Roles: []string{"viewer", "editor"}}

	resolved, err := Resolve(context.Background(), src, ident)
	require.NoError(t, err)
	assert.Equal(t, "editors", resolved.Name)
}

func TestResolveFallsBackToTenantDefault(t *testing.T) {
	src := &fakeSource{tenantDef: config("default", link("dash", 0))}
	ident := model.Identity{UserID: "u1", TenantID: "t1", Roles: []string{"viewer"}}

	resolved, err := Resolve(context.Background(), src, ident)
	require.NoError(t, err)
	assert.Equal(t, ScopeTenant, resolved.Scope)
	assert.Equal(t, "default", resolved.Name)
}

func TestResolveEmptyWhenNothingConfigured(t *testing.T) {
	resolved, err := Resolve(context.Background(), &fakeSource{}, model.Identity{UserID: "u1", TenantID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, ScopeEmpty, resolved.Scope)
	assert.NotNil(t, resolved.Items)
	assert.Empty(t, resolved.Items)
}

func TestResolveFiltersWinningTree(t *testing.T) {
	src := &fakeSource{
		tenantDef: config("default",
			link("home", 0),
			model.NavItem{Key: "billing", Kind: model.NavItemLink, Permission: "billing.view", SortOrder: 1},
		),
	}
	ident := model.Identity{UserID: "u1", TenantID: "t1"}

	resolved, err := Resolve(context.Background(), src, ident)
	require.NoError(t, err)
	require.Len(t, resolved.Items, 1)
	assert.Equal(t, "home", resolved.Items[0].Key)
}

func TestFilterTreeDropsGatedSubtree(t *testing.T) {
	items := []model.NavItem{
		{
			Key:        "admin",
			Kind:       model.NavItemDropdown,
			Permission: "admin.access",
			Children:   []model.NavItem{link("users", 0)},
		},
		link("home", 0),
	}

	out := FilterTree(items, model.Identity{UserID: "u1"})
	require.Len(t, out, 1)
	assert.Equal(t, "home", out[0].Key)
}

func TestFilterTreeDropsEmptyDropdown(t *testing.T) {
	items := []model.NavItem{
		{
			Key:  "reports",
			Kind: model.NavItemDropdown,
			Children: []model.NavItem{
				{Key: "revenue", Kind: model.NavItemLink, Permission: "reports.revenue"},
			},
		},
	}

	out := FilterTree(items, model.Identity{UserID: "u1"})
	assert.Empty(t, out, "a dropdown with all children filtered out disappears")

	out = FilterTree(items, model.Identity{UserID: "u1", Permissions: []string{"reports.revenue"}})
	require.Len(t, out, 1)
	require.Len(t, out[0].Children, 1)
}

func TestFilterTreeNeverAddsItems(t *testing.T) {
	items := []model.NavItem{
		link("a", 2),
		{Key: "b", Kind: model.NavItemLink, Permission: "x", SortOrder: 0},
		link("c", 1),
	}
	ident := model.Identity{UserID: "u1", Permissions: []string{"x", "y"}}

	out := FilterTree(items, ident)
	allowed := map[string]bool{"a": true, "b": true, "c": true}
	for _, item := range out {
		assert.True(t, allowed[item.Key], "filter output must be a subset of the input")
	}
	assert.LessOrEqual(t, len(out), len(items))
}

func TestFilterTreeOrdersBySortOrderThenKey(t *testing.T) {
	items := []model.NavItem{
		link("zeta", 1),
		link("alpha", 1),
		link("last", 5),
		link("first", 0),
	}

	out := FilterTree(items, model.Identity{UserID: "u1"})
	keys := make([]string, len(out))
	for i, item := range out {
		keys[i] = item.Key
	}
	assert.Equal(t, []string{"first", "alpha", "zeta", "last"}, keys)
}

func TestFilterTreeDoesNotMutateInput(t *testing.T) {
	items := []model.NavItem{
		{
			Key:  "menu",
			Kind: model.NavItemDropdown,
			Children: []model.NavItem{
				link("a", 0),
				{Key: "b", Kind: model.NavItemLink, Permission: "hidden"},
			},
		},
	}

	_ = FilterTree(items, model.Identity{UserID: "u1"})
	require.Len(t, items[0].Children, 2, "input tree must stay intact")
}

func TestValidateTreeAcceptsHeldPermissions(t *testing.T) {
	items := []model.NavItem{
		link("home", 0),
		{Key: "billing", Kind: model.NavItemLink, Permission: "billing.view"},
	}
	ident := model.Identity{UserID: "u1", Permissions: []string{"billing.view"}}

	assert.NoError(t, ValidateTree(items, ident))
}

func TestValidateTreeRejectsUnheldPermission(t *testing.T) {
	items := []model.NavItem{
		{
			Key:  "menu",
			Kind: model.NavItemDropdown,
			Children: []model.NavItem{
				{Key: "secrets", Kind: model.NavItemLink, Permission: "secrets.read"},
			},
		},
	}

	err := ValidateTree(items, model.Identity{UserID: "u1"})
	require.Error(t, err)
	require.True(t, apperror.IsValidation(err))

	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "secrets", "nested items are validated too")
}

func TestValidateTreeStructuralFailures(t *testing.T) {
	items := []model.NavItem{
		{Kind: model.NavItemLink},
		{Key: "dup", Kind: model.NavItemLink},
		{Key: "dup", Kind: model.NavItemLink},
		{Key: "odd", Kind: model.NavItemKind("widget")},
		{Key: "leaf", Kind: model.NavItemLink, Children: []model.NavItem{link("child", 0)}},
	}

	err := ValidateTree(items, model.Identity{UserID: "u1"})
	require.Error(t, err)

	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "items[0]")
	assert.Contains(t, ve.Fields, "dup")
	assert.Contains(t, ve.Fields, "odd")
	assert.Contains(t, ve.Fields, "leaf")
}
