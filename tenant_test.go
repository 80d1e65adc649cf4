package permkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTenantFromAPI tests the wire-to-core conversion
func TestTenantFromAPI(t *testing.T) {
	assert.Nil(t, TenantFromAPI(0))
	assert.Nil(t, TenantFromAPI(-3))

	got := TenantFromAPI(42)
	if assert.NotNil(t, got) {
		assert.Equal(t, int64(42), *got)
	}
}

// TestTenantToAPI tests the core-to-wire conversion
func TestTenantToAPI(t *testing.T) {
	assert.Equal(t, int64(0), TenantToAPI(nil))
	assert.Equal(t, int64(42), TenantToAPI(Tenant(42)))
}

// TestTenantRoundTrip tests that the gateway boundary conversion is lossless
func TestTenantRoundTrip(t *testing.T) {
	for _, id := range []int64{0, 1, 42, 99999} {
		assert.Equal(t, id, TenantToAPI(TenantFromAPI(id)))
	}
	assert.Nil(t, TenantFromAPI(TenantToAPI(nil)))
}

// TestTenantMatches tests row applicability
func TestTenantMatches(t *testing.T) {
	// Global rows apply to everyone
	assert.True(t, tenantMatches(nil, nil))
	assert.True(t, tenantMatches(nil, Tenant(5)))

	// Tenant rows apply only inside that tenant
	assert.True(t, tenantMatches(Tenant(5), Tenant(5)))
	assert.False(t, tenantMatches(Tenant(5), Tenant(6)))
	assert.False(t, tenantMatches(Tenant(5), nil))
}

// TestTenantEqual tests exact scope identity
func TestTenantEqual(t *testing.T) {
	assert.True(t, tenantEqual(nil, nil))
	assert.True(t, tenantEqual(Tenant(3), Tenant(3)))
	assert.False(t, tenantEqual(Tenant(3), Tenant(4)))
	assert.False(t, tenantEqual(nil, Tenant(3)))
	assert.False(t, tenantEqual(Tenant(3), nil))
}

// TestTenantKey tests cache/lock key rendering
func TestTenantKey(t *testing.T) {
	assert.Equal(t, "global", tenantKey(nil))
	assert.Equal(t, "t42", tenantKey(Tenant(42)))
}
