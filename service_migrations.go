package permkit

import (
	"github.com/fernandezvara/dbkit"
)

// Migrations returns all database migrations required for PermKit.
// Use db.Migrate(ctx, service.Migrations()) to run them.
//
// The unique indexes use COALESCE so the NULL tenant/role scopes take part
// in uniqueness like any other value.
func (s *Service) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "permkit-001",
			Description: "Create roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS roles (
                    id BIGSERIAL PRIMARY KEY,
                    tenant_id BIGINT,
                    key_name TEXT NOT NULL,
                    display_name TEXT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE UNIQUE INDEX IF NOT EXISTS uq_roles_scope_key
                    ON roles (COALESCE(tenant_id, 0), key_name);
                CREATE INDEX IF NOT EXISTS idx_roles_tenant ON roles (tenant_id)`,
		},
		{
			ID:          "permkit-002",
			Description: "Create permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS permissions (
                    id BIGSERIAL PRIMARY KEY,
                    tenant_id BIGINT,
                    key_name TEXT NOT NULL,
                    display_name TEXT NOT NULL,
                    description TEXT NOT NULL DEFAULT '',
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE UNIQUE INDEX IF NOT EXISTS uq_permissions_scope_key
                    ON permissions (COALESCE(tenant_id, 0), key_name);
                CREATE INDEX IF NOT EXISTS idx_permissions_tenant ON permissions (tenant_id)`,
		},
		{
			ID:          "permkit-003",
			Description: "Create role_permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS role_permissions (
                    id BIGSERIAL PRIMARY KEY,
                    tenant_id BIGINT,
                    role_id BIGINT NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
                    permission_id BIGINT NOT NULL REFERENCES permissions (id) ON DELETE CASCADE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE UNIQUE INDEX IF NOT EXISTS uq_role_permissions_identity
                    ON role_permissions (COALESCE(tenant_id, 0), role_id, permission_id);
                CREATE INDEX IF NOT EXISTS idx_role_permissions_role ON role_permissions (role_id)`,
		},
		{
			ID:          "permkit-004",
			Description: "Create resource_permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS resource_permissions (
                    id BIGSERIAL PRIMARY KEY,
                    tenant_id BIGINT,
                    role_id BIGINT REFERENCES roles (id) ON DELETE CASCADE,
                    resource_type TEXT NOT NULL,
                    permission_id BIGINT NOT NULL REFERENCES permissions (id) ON DELETE CASCADE,
                    can_view_all BOOLEAN NOT NULL DEFAULT FALSE,
                    can_view_own BOOLEAN NOT NULL DEFAULT FALSE,
                    can_view_tenant BOOLEAN NOT NULL DEFAULT FALSE,
                    can_create BOOLEAN NOT NULL DEFAULT FALSE,
                    can_edit_all BOOLEAN NOT NULL DEFAULT FALSE,
                    can_edit_own BOOLEAN NOT NULL DEFAULT FALSE,
                    can_delete_all BOOLEAN NOT NULL DEFAULT FALSE,
                    can_delete_own BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE UNIQUE INDEX IF NOT EXISTS uq_resource_permissions_identity
                    ON resource_permissions (COALESCE(tenant_id, 0), COALESCE(role_id, 0), resource_type);
                CREATE INDEX IF NOT EXISTS idx_resource_permissions_type ON resource_permissions (resource_type)`,
		},
		{
			ID:          "permkit-005",
			Description: "Create admin_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS admin_audit_log (
                    id BIGSERIAL PRIMARY KEY,
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    tenant_id BIGINT,
                    actor_id BIGINT NOT NULL,
                    action TEXT NOT NULL,
                    entity_kind TEXT NOT NULL,
                    entity_id BIGINT,
                    payload JSONB,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT
                );
                CREATE INDEX IF NOT EXISTS idx_audit_actor ON admin_audit_log (actor_id);
                CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON admin_audit_log (timestamp)`,
		},
	}
}
