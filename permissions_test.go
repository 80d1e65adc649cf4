package permkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParsePermSpec tests the '|' expression parser
func TestParsePermSpec(t *testing.T) {
	assert.Equal(t, PermSpec{"manage_users"}, ParsePermSpec("manage_users"))
	assert.Equal(t, PermSpec{"a", "b"}, ParsePermSpec("a|b"))
	assert.Equal(t, PermSpec{"a", "b"}, ParsePermSpec(" a | b "))
	assert.Equal(t, PermSpec{"a"}, ParsePermSpec("a||"))
	assert.Nil(t, ParsePermSpec(""))
	assert.True(t, ParsePermSpec("").IsEmpty())
	assert.True(t, ParsePermSpec("|").IsEmpty())
	assert.False(t, ParsePermSpec("a").IsEmpty())
}

// TestPermSpecOf tests the explicit-keys constructor
func TestPermSpecOf(t *testing.T) {
	assert.Equal(t, PermSpec{"a", "b"}, PermSpecOf("a", "b"))
	assert.True(t, PermSpecOf().IsEmpty())
}

// TestPermissionSetHas tests single-key membership
func TestPermissionSetHas(t *testing.T) {
	set := NewPermissionSet("manage_users", "manage_roles")

	assert.True(t, set.Has("manage_users"))
	assert.False(t, set.Has("manage_tenants"))
	assert.Equal(t, 2, set.Len())
}

// TestPermissionSetHasAny tests ANY-of semantics including the vacuous case
func TestPermissionSetHasAny(t *testing.T) {
	set := NewPermissionSet("manage_users")

	assert.True(t, set.HasAny(PermSpecOf("manage_users")))
	assert.True(t, set.HasAny(PermSpecOf("manage_tenants", "manage_users")))
	assert.False(t, set.HasAny(PermSpecOf("manage_tenants", "manage_roles")))

	// Empty spec is vacuously true, even on an empty set
	assert.True(t, set.HasAny(nil))
	assert.True(t, NewPermissionSet().HasAny(ParsePermSpec("")))
}

// TestPermissionSetHasAll tests ALL-of semantics including the vacuous case
func TestPermissionSetHasAll(t *testing.T) {
	set := NewPermissionSet("manage_users", "manage_roles")

	assert.True(t, set.HasAll(PermSpecOf("manage_users")))
	assert.True(t, set.HasAll(PermSpecOf("manage_users", "manage_roles")))
	assert.False(t, set.HasAll(PermSpecOf("manage_users", "manage_tenants")))

	assert.True(t, set.HasAll(nil))
	assert.True(t, NewPermissionSet().HasAll(nil))
	assert.False(t, NewPermissionSet().HasAll(PermSpecOf("anything")))
}

// TestPermissionSetKeys tests stable sorted key output
func TestPermissionSetKeys(t *testing.T) {
	set := NewPermissionSet("b", "a", "c")
	assert.Equal(t, []string{"a", "b", "c"}, set.Keys())
}
