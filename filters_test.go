package permkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestRoleFilterBuilders tests defaults and chaining
func TestRoleFilterBuilders(t *testing.T) {
	filter := NewRoleFilter()
	assert.Nil(t, filter.TenantID)
	assert.Equal(t, 100, filter.Limit)

	filter = filter.WithTenant(Tenant(42)).WithSearch("admin").WithPagination(25, 50)
	assert.Equal(t, int64(42), *filter.TenantID)
	assert.Equal(t, "admin", filter.Search)
	assert.Equal(t, 25, filter.Limit)
	assert.Equal(t, 50, filter.Offset)

	// Value receivers: the original is untouched
	base := NewRoleFilter()
	_ = base.WithSearch("x")
	assert.Empty(t, base.Search)
}

// TestPermissionFilterBuilders tests defaults and chaining
func TestPermissionFilterBuilders(t *testing.T) {
	filter := NewPermissionFilter().WithTenant(Tenant(7)).WithSearch("manage").WithPagination(10, 0)
	assert.Equal(t, int64(7), *filter.TenantID)
	assert.Equal(t, "manage", filter.Search)
	assert.Equal(t, 10, filter.Limit)
}

// TestResourcePermissionFilterBuilders tests the union-scope filter
func TestResourcePermissionFilterBuilders(t *testing.T) {
	roleID := int64(10)
	filter := NewResourcePermissionFilter().
		WithTenant(Tenant(42)).
		WithRole(&roleID).
		WithResourceType("products").
		WithPermission(3)

	assert.Equal(t, int64(42), *filter.TenantID)
	assert.Equal(t, int64(10), *filter.RoleID)
	assert.Equal(t, "products", filter.ResourceType)
	assert.Equal(t, int64(3), filter.PermissionID)
}

// TestAuditLogFilterBuilders tests defaults and chaining
func TestAuditLogFilterBuilders(t *testing.T) {
	since := time.Now().Add(-time.Hour)
	until := time.Now()

	filter := NewAuditLogFilter().
		WithActor(1).
		WithTenant(Tenant(42)).
		WithAction("bulk_update").
		WithEntityKind("resource_permission").
		WithTimeRange(since, until).
		WithPagination(20, 40)

	assert.Equal(t, int64(1), filter.ActorID)
	assert.Equal(t, int64(42), *filter.TenantID)
	assert.Equal(t, "bulk_update", filter.Action)
	assert.Equal(t, "resource_permission", filter.EntityKind)
	assert.Equal(t, since, filter.Since)
	assert.Equal(t, until, filter.Until)
	assert.Equal(t, 20, filter.Limit)
	assert.Equal(t, 40, filter.Offset)
}
