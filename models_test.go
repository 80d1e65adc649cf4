package permkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestResourceFlagsMerge tests that merging only ever adds grants
func TestResourceFlagsMerge(t *testing.T) {
	flags := ResourceFlags{CanViewOwn: true}
	flags.Merge(ResourceFlags{CanViewTenant: true, CanCreate: true})

	assert.True(t, flags.CanViewOwn)
	assert.True(t, flags.CanViewTenant)
	assert.True(t, flags.CanCreate)
	assert.False(t, flags.CanViewAll)

	// Merging an empty set revokes nothing
	flags.Merge(ResourceFlags{})
	assert.True(t, flags.CanViewOwn)
	assert.True(t, flags.CanCreate)
}

// TestUserIsSuperAdmin tests both super-admin markers
func TestUserIsSuperAdmin(t *testing.T) {
	assert.True(t, User{ID: 1, RoleID: SuperAdminRoleID}.IsSuperAdmin())
	assert.True(t, User{ID: 2, RoleID: 50, RoleKey: SuperAdminRoleKey}.IsSuperAdmin())
	assert.False(t, User{ID: 3, RoleID: 50, RoleKey: "tenant_admin"}.IsSuperAdmin())
}

// TestResourceRefBuilders tests the instance-context constructors
func TestResourceRefBuilders(t *testing.T) {
	ref := OwnedBy(7)
	if assert.NotNil(t, ref.OwnerID) {
		assert.Equal(t, int64(7), *ref.OwnerID)
	}
	assert.Nil(t, ref.TenantID)

	ref = InTenant(42)
	if assert.NotNil(t, ref.TenantID) {
		assert.Equal(t, int64(42), *ref.TenantID)
	}
	assert.Nil(t, ref.OwnerID)
}

// TestAuditEntryToModel tests audit entry conversion
func TestAuditEntryToModel(t *testing.T) {
	entry := &AuditEntry{
		ActorID:    1,
		Action:     "create",
		EntityKind: "role",
		EntityID:   10,
		TenantID:   Tenant(42),
		Payload:    map[string]any{"key_name": "tenant_admin"},
		IPAddress:  "10.0.0.1",
		UserAgent:  "curl/8",
		RequestID:  "req-1",
	}

	model := entry.ToModel()
	assert.Equal(t, int64(1), model.ActorID)
	assert.Equal(t, "create", model.Action)
	assert.Equal(t, "role", model.EntityKind)
	assert.Equal(t, int64(10), model.EntityID)
	assert.Equal(t, int64(42), *model.TenantID)
	assert.Equal(t, "tenant_admin", model.Payload["key_name"])
	assert.Equal(t, "10.0.0.1", model.IPAddress)
	assert.False(t, model.Timestamp.IsZero())
}
