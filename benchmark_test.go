package permkit

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// skipBenchmarkIfNoDatabase skips the benchmark if database is not available
func skipBenchmarkIfNoDatabase(b *testing.B) (*Service, context.Context) {
	if !isDatabaseAvailable() {
		b.Skip("Database not available, skipping benchmark")
		return nil, nil
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		b.Fatalf("Failed to setup test database: %v", err)
	}

	return service, ctx
}

// ============================================================================
// Checker Benchmarks (no database)
// ============================================================================

// BenchmarkCheckerCan benchmarks a flat ANY-of check against a resolved set
func BenchmarkCheckerCan(b *testing.B) {
	keys := make([]string, 50)
	for i := range keys {
		keys[i] = fmt.Sprintf("permission_%d", i)
	}
	checker := NewChecker(User{ID: 7, RoleID: 10, TenantID: Tenant(42)}, NewPermissionSet(keys...), nil)
	spec := ParsePermSpec("permission_49|permission_0")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !checker.Can(spec) {
			b.Fatal("check should pass")
		}
	}
}

// BenchmarkCheckerCanOnResource benchmarks one matrix cell evaluation
func BenchmarkCheckerCanOnResource(b *testing.B) {
	user := User{ID: 7, RoleID: 10, TenantID: Tenant(42)}
	rows := []ResourcePermission{
		{TenantID: Tenant(42), RoleID: &user.RoleID, ResourceFlags: ResourceFlags{CanEditOwn: true}},
		{ResourceFlags: ResourceFlags{CanViewTenant: true}},
	}
	checker := NewChecker(user, NewPermissionSet(), func(string) []ResourcePermission {
		return rows
	})
	ref := OwnedBy(user.ID)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !checker.CanOnResource("products", ActionEdit, ModifierOwn, ref) {
			b.Fatal("check should pass")
		}
	}
}

// BenchmarkParsePermSpec benchmarks the spec parser
func BenchmarkParsePermSpec(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParsePermSpec("manage_users|manage_roles|manage_tenants")
	}
}

// BenchmarkMemoryCache benchmarks cached read hit
func BenchmarkMemoryCache(b *testing.B) {
	ctx := context.Background()
	cache := NewMemoryCache(1024, time.Minute)
	defer cache.Close()
	cache.Set(ctx, "role_permissions:t42:r10:set", []byte(`["a","b","c"]`), 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := cache.Get(ctx, "role_permissions:t42:r10:set"); !ok {
			b.Fatal("expected hit")
		}
	}
}

// ============================================================================
// Service Benchmarks (database)
// ============================================================================

// BenchmarkServiceCan benchmarks a flat check through the service cache
func BenchmarkServiceCan(b *testing.B) {
	service, ctx := skipBenchmarkIfNoDatabase(b)
	if service == nil {
		return
	}

	tenant := Tenant(time.Now().UnixNano() % 1_000_000_000)
	role := &Role{TenantID: tenant, KeyName: fmt.Sprintf("bench_role_%d", time.Now().UnixNano())}
	if err := service.CreateRole(ctx, role); err != nil {
		b.Fatalf("Failed to create role: %v", err)
	}
	perm := &Permission{KeyName: fmt.Sprintf("bench_perm_%d", time.Now().UnixNano())}
	if err := service.CreatePermission(ctx, perm); err != nil {
		b.Fatalf("Failed to create permission: %v", err)
	}
	if err := service.SetRolePermissions(ctx, role.ID, tenant, []int64{perm.ID}); err != nil {
		b.Fatalf("Failed to set permissions: %v", err)
	}

	user := User{ID: 7, RoleID: role.ID, TenantID: tenant}
	spec := PermSpecOf(perm.KeyName)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !service.Can(ctx, user, spec) {
			b.Fatal("check should pass")
		}
	}
}

// BenchmarkServiceCanOnResource benchmarks a matrix check through the
// service cache
func BenchmarkServiceCanOnResource(b *testing.B) {
	service, ctx := skipBenchmarkIfNoDatabase(b)
	if service == nil {
		return
	}

	tenant := Tenant(time.Now().UnixNano() % 1_000_000_000)
	role := &Role{TenantID: tenant, KeyName: fmt.Sprintf("bench_role_%d", time.Now().UnixNano())}
	if err := service.CreateRole(ctx, role); err != nil {
		b.Fatalf("Failed to create role: %v", err)
	}
	perm := &Permission{KeyName: fmt.Sprintf("bench_perm_%d", time.Now().UnixNano())}
	if err := service.CreatePermission(ctx, perm); err != nil {
		b.Fatalf("Failed to create permission: %v", err)
	}
	row := &ResourcePermission{
		TenantID:      tenant,
		RoleID:        &role.ID,
		ResourceType:  "products",
		PermissionID:  perm.ID,
		ResourceFlags: ResourceFlags{CanCreate: true},
	}
	if err := service.CreateResourcePermission(ctx, row); err != nil {
		b.Fatalf("Failed to create matrix row: %v", err)
	}

	user := User{ID: 7, RoleID: role.ID, TenantID: tenant}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !service.CanOnResource(ctx, user, "products", ActionCreate, ModifierNone, ResourceRef{}) {
			b.Fatal("check should pass")
		}
	}
}
