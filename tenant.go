package permkit

import "strconv"

// Tenant scoping inside the core is always *int64: nil means global. The
// legacy "0 == global" sentinel used by admin clients exists only at the
// gateway boundary; these two helpers are the only place the conversion
// happens.

// TenantFromAPI converts a wire-format tenant id to the internal form.
// 0 (and negatives, which are invalid ids) map to nil (global).
func TenantFromAPI(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

// TenantToAPI converts an internal tenant id to the wire format, with nil
// rendered as 0.
func TenantToAPI(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// Tenant returns a pointer to the given tenant id. Convenience for literals.
func Tenant(id int64) *int64 {
	return &id
}

// tenantEqual reports whether two tenant scopes are the same scope.
func tenantEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// tenantMatches reports whether a row scoped to rowTenant applies to a user
// acting in userTenant. A nil row scope is global and applies to everyone; a
// tenant-scoped row applies only to users in that tenant.
func tenantMatches(rowTenant, userTenant *int64) bool {
	if rowTenant == nil {
		return true
	}
	return userTenant != nil && *rowTenant == *userTenant
}

// tenantKey renders a tenant scope for cache keys and lock names.
func tenantKey(id *int64) string {
	if id == nil {
		return "global"
	}
	return "t" + strconv.FormatInt(*id, 10)
}
