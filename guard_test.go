package permkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBulkScopeKey tests lock scope naming
func TestBulkScopeKey(t *testing.T) {
	roleID := int64(10)

	assert.Equal(t, "resource_permissions:global:any", bulkScopeKey(nil, nil))
	assert.Equal(t, "resource_permissions:t42:any", bulkScopeKey(Tenant(42), nil))
	assert.Equal(t, "resource_permissions:t42:r10", bulkScopeKey(Tenant(42), &roleID))
	assert.Equal(t, "resource_permissions:global:r10", bulkScopeKey(nil, &roleID))
}

// TestBulkGuardAcquireRelease tests the lock lifecycle
func TestBulkGuardAcquireRelease(t *testing.T) {
	guard := newBulkGuard()

	taken, err := guard.acquire([]string{"resource_permissions:t42:r10"})
	assert.NoError(t, err)
	assert.Len(t, taken, 1)

	// Same scope is rejected while held
	_, err = guard.acquire([]string{"resource_permissions:t42:r10"})
	assert.True(t, IsBulkInFlight(err))

	// A disjoint scope is fine
	other, err := guard.acquire([]string{"resource_permissions:t43:r10"})
	assert.NoError(t, err)
	guard.release(other)

	guard.release(taken)

	// Released scopes can be re-acquired
	taken, err = guard.acquire([]string{"resource_permissions:t42:r10"})
	assert.NoError(t, err)
	guard.release(taken)
}

// TestBulkGuardDeduplicates tests that repeated keys in one batch lock once
func TestBulkGuardDeduplicates(t *testing.T) {
	guard := newBulkGuard()

	taken, err := guard.acquire([]string{
		"resource_permissions:t42:r10",
		"resource_permissions:t42:r10",
		"resource_permissions:t42:r11",
	})
	assert.NoError(t, err)
	assert.Len(t, taken, 2)
	guard.release(taken)
}

// TestBulkGuardReleasesOnContention tests that a failed acquire leaves nothing held
func TestBulkGuardReleasesOnContention(t *testing.T) {
	guard := newBulkGuard()

	held, err := guard.acquire([]string{"resource_permissions:t42:r11"})
	assert.NoError(t, err)

	// Overlaps on r11, so the whole batch is rejected and r10 stays free
	_, err = guard.acquire([]string{
		"resource_permissions:t42:r10",
		"resource_permissions:t42:r11",
	})
	assert.True(t, IsBulkInFlight(err))

	taken, err := guard.acquire([]string{"resource_permissions:t42:r10"})
	assert.NoError(t, err)
	guard.release(taken)
	guard.release(held)
}
