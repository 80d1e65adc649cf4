package permkit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrorWrapping tests sentinel matching through the Error wrapper
func TestErrorWrapping(t *testing.T) {
	err := NewError(ErrValidation, "key name is required").WithField("key_name")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "permkit: validation failed: key name is required", err.Error())
	assert.Equal(t, "key_name", err.Field)

	var pkErr *Error
	assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &pkErr))
	assert.Equal(t, "key_name", pkErr.Field)
}

// TestErrorChainers tests the context builders
func TestErrorChainers(t *testing.T) {
	roleID := int64(10)
	err := NewError(ErrNotFound, "role not found").
		WithEntity("role", 10).
		WithTenant(Tenant(42)).
		WithRole(&roleID)

	assert.Equal(t, "role", err.EntityKind)
	assert.Equal(t, int64(10), err.EntityID)
	assert.Equal(t, int64(42), *err.TenantID)
	assert.Equal(t, int64(10), *err.RoleID)
}

// TestErrorPredicates tests the Is* helpers
func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsValidation(NewError(ErrValidation, "")))
	assert.True(t, IsNotFound(NewError(ErrNotFound, "")))
	assert.True(t, IsConflict(NewError(ErrConflict, "")))
	assert.True(t, IsStoreUnavailable(NewError(ErrStoreUnavailable, "")))
	assert.True(t, IsUnauthorized(ErrUnauthorized))

	assert.False(t, IsValidation(ErrNotFound))
	assert.False(t, IsNotFound(nil))
}

// TestBulkInFlightIsConflict tests that the in-flight rejection is a conflict
func TestBulkInFlightIsConflict(t *testing.T) {
	err := NewError(ErrBulkInFlight, "scope resource_permissions:t42:r10 is being updated")

	assert.True(t, IsBulkInFlight(err))
	assert.True(t, IsConflict(err))
	assert.False(t, IsBulkInFlight(NewError(ErrConflict, "duplicate key name")))
}
