package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantworks/platform/internal/apperror"
	"github.com/tenantworks/platform/internal/model"
	"github.com/tenantworks/platform/internal/navigation"
	"github.com/tenantworks/platform/pkg/logger"
)

func newNavigationFixture(perms map[string][]string) (*NavigationService, *fakeNavigationStore) {
	configs := newFakeNavigationStore()
	svc := NewNavigationService(configs, &fakePermissions{byUser: perms}, logger.NewNop())
	return svc, configs
}

func strptr(s string) *string { return &s }

func TestSaveAndActivate(t *testing.T) {
	svc, configs := newNavigationFixture(nil)
	ctx := context.Background()
	ident := alice()

	cfg, err := svc.Save(ctx, ident, &model.SaveNavigationRequest{
		Name:     "default nav",
		Items:    []model.NavItem{{Key: "home", Kind: model.NavItemLink}},
		Activate: true,
	})
	require.NoError(t, err)
	assert.True(t, cfg.IsActive)

	stored, err := configs.ActiveDefault(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, cfg.ID, stored.ID)
}

func TestSaveWithoutActivateStaysInactive(t *testing.T) {
	svc, configs := newNavigationFixture(nil)
	ctx := context.Background()

	cfg, err := svc.Save(ctx, alice(), &model.SaveNavigationRequest{
		Name:  "draft",
		Items: []model.NavItem{{Key: "home", Kind: model.NavItemLink}},
	})
	require.NoError(t, err)
	assert.False(t, cfg.IsActive)

	active, err := configs.ActiveDefault(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestSaveRejectsDualTarget(t *testing.T) {
	svc, _ := newNavigationFixture(nil)

	_, err := svc.Save(context.Background(), alice(), &model.SaveNavigationRequest{
		Name:   "both",
		UserID: strptr("bob"),
		RoleID: strptr("admin"),
		Items:  []model.NavItem{{Key: "home", Kind: model.NavItemLink}},
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestSaveRejectsUnheldPermission(t *testing.T) {
	svc, _ := newNavigationFixture(map[string][]string{"alice": {"reports.view"}})

	_, err := svc.Save(context.Background(), alice(), &model.SaveNavigationRequest{
		Name: "overreach",
		Items: []model.NavItem{
			{Key: "reports", Kind: model.NavItemLink, Permission: "reports.view"},
			{Key: "billing", Kind: model.NavItemLink, Permission: "billing.manage"},
		},
	})
	require.Error(t, err)

	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "billing")
	assert.NotContains(t, ve.Fields, "reports")
}

func TestActivateReplacesPreviousActive(t *testing.T) {
	svc, configs := newNavigationFixture(nil)
	ctx := context.Background()
	ident := alice()

	first, err := svc.Save(ctx, ident, &model.SaveNavigationRequest{
		Name:     "v1",
		Items:    []model.NavItem{{Key: "home", Kind: model.NavItemLink}},
		Activate: true,
	})
	require.NoError(t, err)

	second, err := svc.Save(ctx, ident, &model.SaveNavigationRequest{
		Name:     "v2",
		Items:    []model.NavItem{{Key: "home", Kind: model.NavItemLink}},
		Activate: true,
	})
	require.NoError(t, err)

	active, err := configs.ActiveDefault(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	old, err := svc.Get(ctx, ident, first.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive, "at most one active configuration per target")
}

func TestActivateDifferentTargetsCoexist(t *testing.T) {
	svc, configs := newNavigationFixture(nil)
	ctx := context.Background()
	ident := alice()

	_, err := svc.Save(ctx, ident, &model.SaveNavigationRequest{
		Name:     "tenant default",
		Items:    []model.NavItem{{Key: "home", Kind: model.NavItemLink}},
		Activate: true,
	})
	require.NoError(t, err)

	_, err = svc.Save(ctx, ident, &model.SaveNavigationRequest{
		Name:     "admins",
		RoleID:   strptr("admin"),
		Items:    []model.NavItem{{Key: "settings", Kind: model.NavItemLink}},
		Activate: true,
	})
	require.NoError(t, err)

	def, err := configs.ActiveDefault(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, def)

	role, err := configs.ActiveForRole(ctx, "t1", "admin")
	require.NoError(t, err)
	require.NotNil(t, role)
}

func TestActivateMissingConfiguration(t *testing.T) {
	svc, _ := newNavigationFixture(nil)

	err := svc.Activate(context.Background(), alice(), "missing")
	assert.True(t, apperror.IsNotFound(err))
}

func TestDeleteActiveFallsBack(t *testing.T) {
	svc, _ := newNavigationFixture(nil)
	ctx := context.Background()
	ident := model.Identity{UserID: "alice", TenantID: "t1", Roles: []string{"admin"}}

	_, err := svc.Save(ctx, ident, &model.SaveNavigationRequest{
		Name:     "tenant default",
		Items:    []model.NavItem{{Key: "dash", Kind: model.NavItemLink}},
		Activate: true,
	})
	require.NoError(t, err)

	userCfg, err := svc.Save(ctx, ident, &model.SaveNavigationRequest{
		Name:     "mine",
		UserID:   strptr("alice"),
		Items:    []model.NavItem{{Key: "home", Kind: model.NavItemLink}},
		Activate: true,
	})
	require.NoError(t, err)

	resolved, err := svc.Current(ctx, ident)
	require.NoError(t, err)
	assert.Equal(t, navigation.ScopeUser, resolved.Scope)

	require.NoError(t, svc.Delete(ctx, ident, userCfg.ID))

	resolved, err = svc.Current(ctx, ident)
	require.NoError(t, err)
	assert.Equal(t, navigation.ScopeTenant, resolved.Scope)
}

func TestCurrentFiltersByStoredPermissions(t *testing.T) {
	svc, _ := newNavigationFixture(map[string][]string{"alice": {"reports.view"}})
	ctx := context.Background()
	ident := alice()

	_, err := svc.Save(ctx, ident, &model.SaveNavigationRequest{
		Name: "default",
		Items: []model.NavItem{
			{Key: "home", Kind: model.NavItemLink},
			{Key: "reports", Kind: model.NavItemLink, Permission: "reports.view"},
		},
		Activate: true,
	})
	require.NoError(t, err)

	// Token-borne permissions are ignored; the permission store decides.
	tokenIdent := ident
	tokenIdent.Permissions = []string{"billing.manage"}

	resolved, err := svc.Current(ctx, tokenIdent)
	require.NoError(t, err)
	keys := make([]string, len(resolved.Items))
	for i, item := range resolved.Items {
		keys[i] = item.Key
	}
	assert.ElementsMatch(t, []string{"home", "reports"}, keys)
}

func TestPreviewUserUsesTargetPermissions(t *testing.T) {
	svc, _ := newNavigationFixture(map[string][]string{
		"alice": {"billing.manage", "reports.view"},
		"bob":   {},
	})
	ctx := context.Background()

	_, err := svc.Save(ctx, alice(), &model.SaveNavigationRequest{
		Name: "default",
		Items: []model.NavItem{
			{Key: "home", Kind: model.NavItemLink},
			{Key: "billing", Kind: model.NavItemLink, Permission: "billing.manage"},
		},
		Activate: true,
	})
	require.NoError(t, err)

	resolved, err := svc.Preview(ctx, alice(), "user", "bob")
	require.NoError(t, err)
	require.Len(t, resolved.Items, 1)
	assert.Equal(t, "home", resolved.Items[0].Key)

	_, err = svc.Preview(ctx, alice(), "team", "x")
	assert.True(t, apperror.IsValidation(err))
}

func TestGetMissingConfiguration(t *testing.T) {
	svc, _ := newNavigationFixture(nil)

	_, err := svc.Get(context.Background(), alice(), "missing")
	assert.True(t, apperror.IsNotFound(err))
}
