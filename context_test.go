package permkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContextUser tests user storage and retrieval
func TestContextUser(t *testing.T) {
	ctx := context.Background()

	_, ok := GetUser(ctx)
	assert.False(t, ok)

	user := User{ID: 7, RoleID: 10, TenantID: Tenant(42)}
	ctx = WithUser(ctx, user)

	got, ok := GetUser(ctx)
	assert.True(t, ok)
	assert.Equal(t, user, got)
	assert.Equal(t, user, MustGetUser(ctx))
}

// TestMustGetUserPanics tests the panic on a missing user
func TestMustGetUserPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustGetUser(context.Background())
	})
}

// TestGetActorID tests explicit actor and the user fallback
func TestGetActorID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, int64(0), GetActorID(ctx))

	ctx = WithUser(ctx, User{ID: 7})
	assert.Equal(t, int64(7), GetActorID(ctx))

	// Explicit actor wins over the context user
	ctx = WithActorID(ctx, 99)
	assert.Equal(t, int64(99), GetActorID(ctx))
}

// TestContextChecker tests checker storage and retrieval
func TestContextChecker(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetChecker(ctx))
	assert.Nil(t, FromContext(ctx))

	checker := NewChecker(User{ID: 7}, NewPermissionSet("manage_users"), nil)
	ctx = WithChecker(ctx, checker)
	assert.Same(t, checker, GetChecker(ctx))
	assert.Same(t, checker, FromContext(ctx))
}

// TestAuditContextRoundTrip tests bulk audit metadata handling
func TestAuditContextRoundTrip(t *testing.T) {
	ac := AuditContext{
		ActorID:   1,
		IPAddress: "10.0.0.1",
		UserAgent: "curl/8",
		RequestID: "req-1",
	}

	ctx := WithAuditContext(context.Background(), ac)
	assert.Equal(t, ac, GetAuditContext(ctx))

	// Zero values are not written
	empty := WithAuditContext(context.Background(), AuditContext{})
	assert.Equal(t, AuditContext{}, GetAuditContext(empty))
}
