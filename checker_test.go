package permkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixtureRows(rows map[string][]ResourcePermission) RowSource {
	return func(resourceType string) []ResourcePermission {
		return rows[resourceType]
	}
}

func tenantUser(roleID int64, tenantID int64) User {
	return User{ID: 7, RoleID: roleID, RoleKey: "tenant_admin", TenantID: Tenant(tenantID)}
}

// TestCheckerCan tests flat ANY-of checking
func TestCheckerCan(t *testing.T) {
	user := tenantUser(10, 42)
	checker := NewChecker(user, NewPermissionSet("manage_products", "manage_orders"), nil)

	// Single key
	assert.True(t, checker.Can(PermSpecOf("manage_products")))
	assert.False(t, checker.Can(PermSpecOf("manage_tenants")))

	// ANY-of: one match suffices
	assert.True(t, checker.Can(ParsePermSpec("manage_tenants|manage_orders")))
	assert.False(t, checker.Can(ParsePermSpec("manage_tenants|manage_users")))

	// Empty spec is vacuously true
	assert.True(t, checker.Can(nil))
	assert.True(t, checker.Can(ParsePermSpec("")))
}

// TestCheckerCanAll tests flat ALL-of checking
func TestCheckerCanAll(t *testing.T) {
	user := tenantUser(10, 42)
	checker := NewChecker(user, NewPermissionSet("manage_products", "manage_orders"), nil)

	assert.True(t, checker.CanAll(ParsePermSpec("manage_products|manage_orders")))
	assert.False(t, checker.CanAll(ParsePermSpec("manage_products|manage_tenants")))
	assert.True(t, checker.CanAll(nil))
}

// TestCheckerSuperAdminBypass tests that super-admins pass every check
func TestCheckerSuperAdminBypass(t *testing.T) {
	byID := User{ID: 1, RoleID: SuperAdminRoleID}
	byKey := User{ID: 2, RoleID: 99, RoleKey: SuperAdminRoleKey}

	for _, user := range []User{byID, byKey} {
		checker := NewChecker(user, nil, nil)
		assert.True(t, checker.Can(PermSpecOf("anything")))
		assert.True(t, checker.CanAll(PermSpecOf("anything", "else")))
		assert.True(t, checker.CanOnResource("products", ActionDelete, ModifierAll, ResourceRef{}))
		assert.True(t, checker.CanCreateResource("unregistered"))
	}
}

// TestCheckerNoRowsDenies tests fail-closed behavior without a row source
func TestCheckerNoRowsDenies(t *testing.T) {
	user := tenantUser(10, 42)
	checker := NewChecker(user, NewPermissionSet("manage_products"), nil)

	assert.False(t, checker.CanOnResource("products", ActionView, ModifierAll, ResourceRef{}))
	assert.False(t, checker.CanCreateResource("products"))
	assert.False(t, checker.CanViewResource("products", OwnedBy(user.ID)))
}

// TestCheckerCanOnResourceOwn tests the own modifier against instance ownership
func TestCheckerCanOnResourceOwn(t *testing.T) {
	user := tenantUser(10, 42)
	rows := fixtureRows(map[string][]ResourcePermission{
		"products": {
			{
				TenantID:      Tenant(42),
				RoleID:        &user.RoleID,
				ResourceType:  "products",
				ResourceFlags: ResourceFlags{CanEditOwn: true, CanDeleteOwn: true},
			},
		},
	})
	checker := NewChecker(user, NewPermissionSet(), rows)

	assert.True(t, checker.CanOnResource("products", ActionEdit, ModifierOwn, OwnedBy(user.ID)))
	assert.False(t, checker.CanOnResource("products", ActionEdit, ModifierOwn, OwnedBy(999)))

	// Missing ownership context denies, it never widens
	assert.False(t, checker.CanOnResource("products", ActionEdit, ModifierOwn, ResourceRef{}))

	// Own does not imply all
	assert.False(t, checker.CanOnResource("products", ActionEdit, ModifierAll, ResourceRef{}))
	assert.False(t, checker.CanOnResource("products", ActionDelete, ModifierAll, ResourceRef{}))
}

// TestCheckerCanOnResourceTenant tests the tenant view modifier
func TestCheckerCanOnResourceTenant(t *testing.T) {
	user := tenantUser(10, 42)
	rows := fixtureRows(map[string][]ResourcePermission{
		"products": {
			{
				TenantID:      Tenant(42),
				RoleID:        &user.RoleID,
				ResourceType:  "products",
				ResourceFlags: ResourceFlags{CanViewTenant: true},
			},
		},
	})
	checker := NewChecker(user, NewPermissionSet(), rows)

	assert.True(t, checker.CanOnResource("products", ActionView, ModifierTenant, InTenant(42)))
	assert.False(t, checker.CanOnResource("products", ActionView, ModifierTenant, InTenant(43)))
	assert.False(t, checker.CanOnResource("products", ActionView, ModifierTenant, ResourceRef{}))

	// A global user has no tenant to match
	global := User{ID: 8, RoleID: user.RoleID}
	globalChecker := NewChecker(global, NewPermissionSet(), rows)
	assert.False(t, globalChecker.CanOnResource("products", ActionView, ModifierTenant, InTenant(42)))
}

// TestCheckerCreate tests that create ignores instance context
func TestCheckerCreate(t *testing.T) {
	user := tenantUser(10, 42)
	rows := fixtureRows(map[string][]ResourcePermission{
		"products": {
			{
				TenantID:      Tenant(42),
				RoleID:        &user.RoleID,
				ResourceType:  "products",
				ResourceFlags: ResourceFlags{CanCreate: true},
			},
		},
	})
	checker := NewChecker(user, NewPermissionSet(), rows)

	assert.True(t, checker.CanOnResource("products", ActionCreate, ModifierNone, ResourceRef{}))
	assert.True(t, checker.CanCreateResource("products"))
	assert.False(t, checker.CanCreateResource("orders"))
}

// TestCheckerUnknownCombination tests that unmapped action/modifier pairs deny
func TestCheckerUnknownCombination(t *testing.T) {
	user := tenantUser(10, 42)
	rows := fixtureRows(map[string][]ResourcePermission{
		"products": {
			{
				TenantID: Tenant(42),
				RoleID:   &user.RoleID,
				ResourceFlags: ResourceFlags{
					CanViewAll: true, CanViewOwn: true, CanViewTenant: true,
					CanCreate: true, CanEditAll: true, CanEditOwn: true,
					CanDeleteAll: true, CanDeleteOwn: true,
				},
			},
		},
	})
	checker := NewChecker(user, NewPermissionSet(), rows)

	// Edit and delete have no tenant modifier
	assert.False(t, checker.CanOnResource("products", ActionEdit, ModifierTenant, InTenant(42)))
	assert.False(t, checker.CanOnResource("products", ActionDelete, ModifierTenant, InTenant(42)))
	assert.False(t, checker.CanOnResource("products", Action("publish"), ModifierAll, ResourceRef{}))
}

// TestCheckerConvenienceViews tests the widest-path convenience helpers
func TestCheckerConvenienceViews(t *testing.T) {
	user := tenantUser(10, 42)
	rows := fixtureRows(map[string][]ResourcePermission{
		"products": {
			{
				TenantID:      Tenant(42),
				RoleID:        &user.RoleID,
				ResourceFlags: ResourceFlags{CanViewOwn: true, CanEditOwn: true},
			},
		},
	})
	checker := NewChecker(user, NewPermissionSet(), rows)

	assert.True(t, checker.CanViewResource("products", OwnedBy(user.ID)))
	assert.False(t, checker.CanViewResource("products", OwnedBy(999)))
	assert.True(t, checker.CanEditResource("products", OwnedBy(user.ID)))
	assert.False(t, checker.CanDeleteResource("products", OwnedBy(user.ID)))
}

// TestEffectiveFlagsUnion tests that applicable rows combine by union
func TestEffectiveFlagsUnion(t *testing.T) {
	user := tenantUser(10, 42)
	otherRole := int64(20)
	rows := []ResourcePermission{
		// Global wildcard-role row
		{ResourceFlags: ResourceFlags{CanViewTenant: true}},
		// Tenant row for the user's role
		{TenantID: Tenant(42), RoleID: &user.RoleID, ResourceFlags: ResourceFlags{CanCreate: true}},
		// Different role, must not contribute
		{TenantID: Tenant(42), RoleID: &otherRole, ResourceFlags: ResourceFlags{CanDeleteAll: true}},
		// Different tenant, must not contribute
		{TenantID: Tenant(43), RoleID: &user.RoleID, ResourceFlags: ResourceFlags{CanEditAll: true}},
	}

	flags := EffectiveFlags(rows, user)
	assert.True(t, flags.CanViewTenant)
	assert.True(t, flags.CanCreate)
	assert.False(t, flags.CanDeleteAll)
	assert.False(t, flags.CanEditAll)
}

// TestEffectiveFlagsGlobalUser tests evaluation for users outside any tenant
func TestEffectiveFlagsGlobalUser(t *testing.T) {
	user := User{ID: 3, RoleID: 10}
	rows := []ResourcePermission{
		{ResourceFlags: ResourceFlags{CanViewAll: true}},
		{TenantID: Tenant(42), RoleID: &user.RoleID, ResourceFlags: ResourceFlags{CanCreate: true}},
	}

	flags := EffectiveFlags(rows, user)
	assert.True(t, flags.CanViewAll)
	// Tenant-scoped rows never apply to a global user
	assert.False(t, flags.CanCreate)
}
