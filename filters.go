package permkit

import "time"

// RoleFilter provides options for listing roles. A nil TenantID lists the
// global scope only; a non-nil TenantID lists that tenant's rows only.
type RoleFilter struct {
	TenantID *int64

	// Substring match against key_name and display_name
	Search string

	// Pagination
	Limit  int
	Offset int
}

// NewRoleFilter creates a RoleFilter with default values.
func NewRoleFilter() RoleFilter {
	return RoleFilter{Limit: 100}
}

// WithTenant sets the tenant scope filter.
func (f RoleFilter) WithTenant(tenantID *int64) RoleFilter {
	f.TenantID = tenantID
	return f
}

// WithSearch sets the substring search filter.
func (f RoleFilter) WithSearch(search string) RoleFilter {
	f.Search = search
	return f
}

// WithPagination sets both limit and offset.
func (f RoleFilter) WithPagination(limit, offset int) RoleFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// PermissionFilter provides options for listing permissions. Tenant scoping
// matches RoleFilter.
type PermissionFilter struct {
	TenantID *int64
	Search   string
	Limit    int
	Offset   int
}

// NewPermissionFilter creates a PermissionFilter with default values.
func NewPermissionFilter() PermissionFilter {
	return PermissionFilter{Limit: 100}
}

// WithTenant sets the tenant scope filter.
func (f PermissionFilter) WithTenant(tenantID *int64) PermissionFilter {
	f.TenantID = tenantID
	return f
}

// WithSearch sets the substring search filter.
func (f PermissionFilter) WithSearch(search string) PermissionFilter {
	f.Search = search
	return f
}

// WithPagination sets both limit and offset.
func (f PermissionFilter) WithPagination(limit, offset int) PermissionFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// ResourcePermissionFilter provides options for listing resource permission
// rows. Unlike role/permission listing, the tenant filter unions global rows
// with tenant rows, because both apply when evaluating for a tenant user.
type ResourcePermissionFilter struct {
	TenantID     *int64
	RoleID       *int64
	ResourceType string
	PermissionID int64
}

// NewResourcePermissionFilter creates an empty filter (all rows).
func NewResourcePermissionFilter() ResourcePermissionFilter {
	return ResourcePermissionFilter{}
}

// WithTenant sets the tenant scope filter.
func (f ResourcePermissionFilter) WithTenant(tenantID *int64) ResourcePermissionFilter {
	f.TenantID = tenantID
	return f
}

// WithRole sets the role filter. Global (role_id IS NULL) rows are always
// included alongside the given role's rows.
func (f ResourcePermissionFilter) WithRole(roleID *int64) ResourcePermissionFilter {
	f.RoleID = roleID
	return f
}

// WithResourceType sets the resource type filter.
func (f ResourcePermissionFilter) WithResourceType(resourceType string) ResourcePermissionFilter {
	f.ResourceType = resourceType
	return f
}

// WithPermission sets the permission id filter.
func (f ResourcePermissionFilter) WithPermission(permissionID int64) ResourcePermissionFilter {
	f.PermissionID = permissionID
	return f
}

// AuditLogFilter provides options for filtering audit log queries.
type AuditLogFilter struct {
	// Filter by actor who performed the action
	ActorID int64

	// Filter by tenant scope
	TenantID *int64

	// Filter by action ("create", "update", "delete", "bulk_update", ...)
	Action string

	// Filter by entity kind ("role", "permission", ...)
	EntityKind string

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewAuditLogFilter creates a new AuditLogFilter with default values.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{Limit: 100}
}

// WithActor sets the actor ID filter.
func (f AuditLogFilter) WithActor(actorID int64) AuditLogFilter {
	f.ActorID = actorID
	return f
}

// WithTenant sets the tenant scope filter.
func (f AuditLogFilter) WithTenant(tenantID *int64) AuditLogFilter {
	f.TenantID = tenantID
	return f
}

// WithAction sets the action filter.
func (f AuditLogFilter) WithAction(action string) AuditLogFilter {
	f.Action = action
	return f
}

// WithEntityKind sets the entity kind filter.
func (f AuditLogFilter) WithEntityKind(kind string) AuditLogFilter {
	f.EntityKind = kind
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditLogFilter) WithTimeRange(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithPagination sets both limit and offset.
func (f AuditLogFilter) WithPagination(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}
