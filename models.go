package permkit

import (
	"time"

	"github.com/uptrace/bun"
)

// Reserved super-admin markers. A user whose role id or role key matches
// bypasses every permission check.
const (
	SuperAdminRoleID  int64 = 1
	SuperAdminRoleKey       = "super_admin"
)

// Role is a named role definition. TenantID nil means the role is defined
// globally and usable across tenants.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          int64     `bun:"id,pk,autoincrement"`
	TenantID    *int64    `bun:"tenant_id"`
	KeyName     string    `bun:"key_name,notnull"`
	DisplayName string    `bun:"display_name,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Permission is a named flat capability (e.g. "manage_users"), independent of
// any resource type. TenantID nil means global.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement"`
	TenantID    *int64    `bun:"tenant_id"`
	KeyName     string    `bun:"key_name,notnull"`
	DisplayName string    `bun:"display_name,notnull"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// RolePermission joins a role to a flat permission. A role's permission set is
// the union of all joined Permission rows whose tenant scope is global or
// matches the user's tenant.
type RolePermission struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	ID           int64     `bun:"id,pk,autoincrement"`
	TenantID     *int64    `bun:"tenant_id"`
	RoleID       int64     `bun:"role_id,notnull"`
	PermissionID int64     `bun:"permission_id,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ResourceFlags is one row's worth of CRUD capabilities for a resource type.
type ResourceFlags struct {
	CanViewAll    bool `bun:"can_view_all,notnull,default:false" json:"can_view_all"`
	CanViewOwn    bool `bun:"can_view_own,notnull,default:false" json:"can_view_own"`
	CanViewTenant bool `bun:"can_view_tenant,notnull,default:false" json:"can_view_tenant"`
	CanCreate     bool `bun:"can_create,notnull,default:false" json:"can_create"`
	CanEditAll    bool `bun:"can_edit_all,notnull,default:false" json:"can_edit_all"`
	CanEditOwn    bool `bun:"can_edit_own,notnull,default:false" json:"can_edit_own"`
	CanDeleteAll  bool `bun:"can_delete_all,notnull,default:false" json:"can_delete_all"`
	CanDeleteOwn  bool `bun:"can_delete_own,notnull,default:false" json:"can_delete_own"`
}

// Merge ORs another set of flags into this one. Grants are additive; there is
// no deny primitive in this model.
func (f *ResourceFlags) Merge(other ResourceFlags) {
	f.CanViewAll = f.CanViewAll || other.CanViewAll
	f.CanViewOwn = f.CanViewOwn || other.CanViewOwn
	f.CanViewTenant = f.CanViewTenant || other.CanViewTenant
	f.CanCreate = f.CanCreate || other.CanCreate
	f.CanEditAll = f.CanEditAll || other.CanEditAll
	f.CanEditOwn = f.CanEditOwn || other.CanEditOwn
	f.CanDeleteAll = f.CanDeleteAll || other.CanDeleteAll
	f.CanDeleteOwn = f.CanDeleteOwn || other.CanDeleteOwn
}

// ResourcePermission is one row of the fine-grained CRUD matrix for a resource
// type. RoleID nil means the row applies regardless of role; TenantID nil
// means it applies regardless of tenant (a global default). Multiple rows for
// the same (tenant, role, resource type) are combined by union.
type ResourcePermission struct {
	bun.BaseModel `bun:"table:resource_permissions,alias:rsp"`

	ID           int64  `bun:"id,pk,autoincrement"`
	TenantID     *int64 `bun:"tenant_id"`
	RoleID       *int64 `bun:"role_id"`
	ResourceType string `bun:"resource_type,notnull"`
	PermissionID int64  `bun:"permission_id,notnull"`

	ResourceFlags `bun:"embed"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Flags returns the row's capability flags.
func (rp *ResourcePermission) Flags() ResourceFlags {
	return rp.ResourceFlags
}

// User identifies the requester for permission checks. It is supplied by the
// caller (session layer, API middleware) and never mutated or persisted by
// this package. TenantID nil means the user acts without a tenant context and
// only global grants apply.
type User struct {
	ID       int64
	RoleID   int64
	RoleKey  string
	TenantID *int64
}

// IsSuperAdmin reports whether the user carries the reserved super-admin role.
func (u User) IsSuperAdmin() bool {
	return u.RoleID == SuperAdminRoleID || u.RoleKey == SuperAdminRoleKey
}

// Action is a resource-matrix action.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Modifier narrows a view/edit/delete action. Create takes no modifier.
type Modifier string

const (
	ModifierNone   Modifier = ""
	ModifierAll    Modifier = "all"
	ModifierOwn    Modifier = "own"
	ModifierTenant Modifier = "tenant"
)

// ResourceRef carries the instance context a resource check may need: the
// owning user id for "own" checks and the instance's tenant for "tenant"
// checks. Either may be nil when the caller has not resolved it; a nil field
// never satisfies the corresponding modifier.
type ResourceRef struct {
	OwnerID  *int64
	TenantID *int64
}

// OwnedBy builds a ResourceRef for an instance owned by the given user.
func OwnedBy(userID int64) ResourceRef {
	return ResourceRef{OwnerID: &userID}
}

// InTenant builds a ResourceRef for an instance belonging to the given tenant.
func InTenant(tenantID int64) ResourceRef {
	return ResourceRef{TenantID: &tenantID}
}

// AuditLog records an administration mutation for compliance and debugging.
type AuditLog struct {
	bun.BaseModel `bun:"table:admin_audit_log,alias:al"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	TenantID   *int64 `bun:"tenant_id"`
	ActorID    int64  `bun:"actor_id,notnull"`
	Action     string `bun:"action,notnull"`
	EntityKind string `bun:"entity_kind,notnull"`
	EntityID   int64  `bun:"entity_id"`

	Payload map[string]any `bun:"payload,type:jsonb"`

	// Request metadata for forensics
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`
}

// AuditEntry is used to create new audit log rows.
type AuditEntry struct {
	ActorID    int64
	Action     string
	EntityKind string
	EntityID   int64
	TenantID   *int64
	Payload    map[string]any
	IPAddress  string
	UserAgent  string
	RequestID  string
}

// ToModel converts an AuditEntry to an AuditLog model.
func (e *AuditEntry) ToModel() *AuditLog {
	return &AuditLog{
		TenantID:   e.TenantID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		Payload:    e.Payload,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		RequestID:  e.RequestID,
		Timestamp:  time.Now(),
	}
}
