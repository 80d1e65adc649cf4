package permkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRegistryDefineResource tests registration defaults and overrides
func TestRegistryDefineResource(t *testing.T) {
	registry := NewRegistry()
	registry.DefineResource("products").OwnerColumn("created_by").
		DefineResource("orders").OwnerColumn("user_id").TenantColumn("shop_id")

	def, ok := registry.GetResource("products")
	assert.True(t, ok)
	assert.Equal(t, "products", def.Name())
	assert.Equal(t, "created_by", def.GetOwnerColumn())
	assert.Equal(t, "tenant_id", def.GetTenantColumn())

	def, ok = registry.GetResource("orders")
	assert.True(t, ok)
	assert.Equal(t, "user_id", def.GetOwnerColumn())
	assert.Equal(t, "shop_id", def.GetTenantColumn())

	_, ok = registry.GetResource("unknown")
	assert.False(t, ok)
}

// TestRegistryResources tests the sorted name listing
func TestRegistryResources(t *testing.T) {
	registry := NewRegistry()
	registry.DefineResource("orders").DefineResource("products").DefineResource("invoices")

	assert.Equal(t, []string{"invoices", "orders", "products"}, registry.Resources())
}

// TestRegistryValidateResourceType tests write-path validation
func TestRegistryValidateResourceType(t *testing.T) {
	registry := NewRegistry()
	registry.DefineResource("products")

	assert.NoError(t, registry.ValidateResourceType("products"))

	err := registry.ValidateResourceType("")
	assert.True(t, IsValidation(err))

	err = registry.ValidateResourceType("widgets")
	assert.True(t, IsValidation(err))
}

// TestDefaultRegistry tests the preloaded marketplace resource types
func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry()

	assert.Equal(t, []string{"orders", "products", "tenant_users", "tenants", "users"}, registry.Resources())

	def, ok := registry.GetResource("tenants")
	assert.True(t, ok)
	assert.Equal(t, "owner_user_id", def.GetOwnerColumn())
	assert.Equal(t, "id", def.GetTenantColumn())
}
