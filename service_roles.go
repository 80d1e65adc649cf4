package permkit

import (
	"context"
	"strings"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// ROLES
// ============================================================================

// ListRoles returns roles in one tenant scope. The filter's tenant is exact:
// nil lists global roles, a tenant id lists only that tenant's roles.
func (s *Service) ListRoles(ctx context.Context, filter RoleFilter) ([]Role, error) {
	var roles []Role
	err := s.retryRead(ctx, 3, func() error {
		roles = roles[:0]
		q := s.db.NewSelect().Model(&roles)
		if filter.TenantID == nil {
			q = q.Where("tenant_id IS NULL")
		} else {
			q = q.Where("tenant_id = ?", *filter.TenantID)
		}
		if filter.Search != "" {
			search := "%" + strings.ToLower(filter.Search) + "%"
			q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("LOWER(key_name) LIKE ?", search).
					WhereOr("LOWER(display_name) LIKE ?", search)
			})
		}
		limit := filter.Limit
		if limit == 0 {
			limit = 100
		}
		q = q.Limit(limit)
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
		return dbkit.WithErr1(q.Order("key_name ASC").Scan(ctx), "ListRoles").Err()
	})
	if err != nil {
		return nil, storeError(err, "ListRoles")
	}
	return roles, nil
}

// GetRole returns one role by id.
func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	var role Role
	err := dbkit.WithErr1(s.db.NewSelect().Model(&role).Where("id = ?", id).Limit(1).Scan(ctx), "GetRole").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "role not found").WithEntity("role", id)
		}
		return nil, storeError(err, "GetRole")
	}
	return &role, nil
}

// CreateRole creates a role. key_name must be unique within its tenant scope
// (global and each tenant are separate scopes).
func (s *Service) CreateRole(ctx context.Context, role *Role) error {
	if err := validateKeyName(role.KeyName); err != nil {
		return err
	}
	if role.DisplayName == "" {
		role.DisplayName = role.KeyName
	}

	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		existing, err := findRoleByKey(ctx, txs.db, role.TenantID, role.KeyName)
		if err != nil {
			return err
		}
		if existing != nil {
			return NewError(ErrConflict, "role key already exists in scope").
				WithField("key_name").
				WithTenant(role.TenantID)
		}
		result, err := txs.db.NewInsert().Model(role).Exec(ctx)
		return storeError(dbkit.WithErr(result, err, "CreateRole").Err(), "CreateRole")
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "create", "role", role.ID, role.TenantID, map[string]any{
		"key_name":     role.KeyName,
		"display_name": role.DisplayName,
	})
	s.invalidate(ctx, role.TenantID, CacheKindRoles)
	return nil
}

// UpdateRole updates a role's key and display name. The tenant scope of an
// existing role never changes; the stored scope is written back onto role so
// the model reflects the row after the call.
func (s *Service) UpdateRole(ctx context.Context, role *Role) error {
	if role.ID == 0 {
		return NewError(ErrValidation, "role id is required").WithField("id")
	}
	if err := validateKeyName(role.KeyName); err != nil {
		return err
	}

	var tenantID *int64
	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		existing, err := txs.GetRole(ctx, role.ID)
		if err != nil {
			return err
		}
		tenantID = existing.TenantID
		role.TenantID = existing.TenantID

		if existing.KeyName != role.KeyName {
			dup, err := findRoleByKey(ctx, txs.db, existing.TenantID, role.KeyName)
			if err != nil {
				return err
			}
			if dup != nil {
				return NewError(ErrConflict, "role key already exists in scope").
					WithField("key_name").
					WithTenant(existing.TenantID)
			}
		}

		result, err := txs.db.NewUpdate().Model((*Role)(nil)).
			Set("key_name = ?", role.KeyName).
			Set("display_name = ?", role.DisplayName).
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("id = ?", role.ID).
			Exec(ctx)
		return storeError(dbkit.WithErr(result, err, "UpdateRole").Err(), "UpdateRole")
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "update", "role", role.ID, tenantID, map[string]any{
		"key_name":     role.KeyName,
		"display_name": role.DisplayName,
	})
	s.invalidate(ctx, tenantID, CacheKindRoles)
	return nil
}

// DeleteRole deletes a role and cascades: its role-permission assignments
// and the resource-permission rows that name it are removed in the same
// transaction. The reserved super-admin role cannot be deleted.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	if id == SuperAdminRoleID {
		return NewError(ErrValidation, "the super admin role cannot be deleted").WithEntity("role", id)
	}

	var tenantID *int64
	var assignmentScopes, matrixScopes []*int64
	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		existing, err := txs.GetRole(ctx, id)
		if err != nil {
			return err
		}
		tenantID = existing.TenantID

		// The cascade removes rows naming the role in every tenant scope,
		// not just the role's own. Collect the scopes before deleting.
		assignmentScopes, err = cascadeTenantScopes(ctx, txs.db, (*RolePermission)(nil), "role_id", id)
		if err != nil {
			return err
		}
		matrixScopes, err = cascadeTenantScopes(ctx, txs.db, (*ResourcePermission)(nil), "role_id", id)
		if err != nil {
			return err
		}

		result, err := txs.db.NewDelete().Model((*RolePermission)(nil)).Where("role_id = ?", id).Exec(ctx)
		if err := storeError(dbkit.WithErr(result, err, "DeleteRoleAssignments").Err(), "DeleteRole"); err != nil {
			return err
		}

		result, err = txs.db.NewDelete().Model((*ResourcePermission)(nil)).Where("role_id = ?", id).Exec(ctx)
		if err := storeError(dbkit.WithErr(result, err, "DeleteRoleResourceRows").Err(), "DeleteRole"); err != nil {
			return err
		}

		result, err = txs.db.NewDelete().Model((*Role)(nil)).Where("id = ?", id).Exec(ctx)
		return storeError(dbkit.WithErr(result, err, "DeleteRole").Err(), "DeleteRole")
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "delete", "role", id, tenantID, nil)
	s.invalidate(ctx, tenantID, CacheKindRoles)
	for _, scope := range assignmentScopes {
		s.invalidate(ctx, scope, CacheKindRolePermissions)
	}
	for _, scope := range matrixScopes {
		s.invalidate(ctx, scope, CacheKindResourcePermissions)
	}
	return nil
}

// CountRoles returns the number of roles in one exact tenant scope.
func (s *Service) CountRoles(ctx context.Context, tenantID *int64) (int, error) {
	count, err := dbkit.Count[Role](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		if tenantID == nil {
			return q.Where("tenant_id IS NULL")
		}
		return q.Where("tenant_id = ?", *tenantID)
	})
	if err != nil {
		return 0, storeError(err, "CountRoles")
	}
	return count, nil
}

// ============================================================================
// ROLE-PERMISSION ASSIGNMENTS
// ============================================================================

// GetRolePermissions returns the assignment rows for one role in one exact
// tenant scope, matching what SetRolePermissions writes. Evaluation (the
// Checker path) separately unions global and tenant rows.
func (s *Service) GetRolePermissions(ctx context.Context, roleID int64, tenantID *int64) ([]RolePermission, error) {
	var rows []RolePermission
	err := s.retryRead(ctx, 3, func() error {
		rows = rows[:0]
		q := s.db.NewSelect().Model(&rows).Where("role_id = ?", roleID)
		if tenantID == nil {
			q = q.Where("tenant_id IS NULL")
		} else {
			q = q.Where("tenant_id = ?", *tenantID)
		}
		return dbkit.WithErr1(q.Order("permission_id ASC").Scan(ctx), "GetRolePermissions").Err()
	})
	if err != nil {
		return nil, storeError(err, "GetRolePermissions")
	}
	return rows, nil
}

// SetRolePermissions replaces a role's flat permission set for one tenant
// scope with exactly the given permission ids. The whole replacement is one
// transaction; an unknown permission id fails everything.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, tenantID *int64, permissionIDs []int64) error {
	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		if _, err := txs.GetRole(ctx, roleID); err != nil {
			return err
		}

		for _, pid := range permissionIDs {
			ok, err := permissionExists(ctx, txs.db, pid)
			if err != nil {
				return err
			}
			if !ok {
				return NewError(ErrValidation, "unknown permission id").
					WithField("permission_id").
					WithEntity("permission", pid)
			}
		}

		q := txs.db.NewDelete().Model((*RolePermission)(nil)).Where("role_id = ?", roleID)
		if tenantID == nil {
			q = q.Where("tenant_id IS NULL")
		} else {
			q = q.Where("tenant_id = ?", *tenantID)
		}
		result, err := q.Exec(ctx)
		if err := storeError(dbkit.WithErr(result, err, "ClearRolePermissions").Err(), "SetRolePermissions"); err != nil {
			return err
		}

		if len(permissionIDs) == 0 {
			return nil
		}

		rows := make([]*RolePermission, len(permissionIDs))
		for i, pid := range permissionIDs {
			rows[i] = &RolePermission{
				TenantID:     tenantID,
				RoleID:       roleID,
				PermissionID: pid,
			}
		}
		_, err = dbkit.BatchInsert(ctx, txs.db, rows, dbkit.BatchSize)
		return storeError(dbkit.WithErr1(err, "InsertRolePermissions").Err(), "SetRolePermissions")
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "set_permissions", "role", roleID, tenantID, map[string]any{
		"permission_ids": permissionIDs,
	})
	s.invalidate(ctx, tenantID, CacheKindRolePermissions)
	return nil
}

// AssignPermissionToRole adds one permission to a role in one tenant scope.
// Assigning an already-assigned permission is a conflict.
func (s *Service) AssignPermissionToRole(ctx context.Context, roleID, permissionID int64, tenantID *int64) error {
	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		if _, err := txs.GetRole(ctx, roleID); err != nil {
			return err
		}
		ok, err := permissionExists(ctx, txs.db, permissionID)
		if err != nil {
			return err
		}
		if !ok {
			return NewError(ErrValidation, "unknown permission id").
				WithField("permission_id").
				WithEntity("permission", permissionID)
		}

		row := &RolePermission{TenantID: tenantID, RoleID: roleID, PermissionID: permissionID}
		result, err := txs.db.NewInsert().Model(row).Exec(ctx)
		err = dbkit.WithErr(result, err, "AssignPermissionToRole").Err()
		if dbkit.IsDuplicate(err) {
			return NewError(ErrConflict, "permission already assigned").
				WithRole(&roleID).
				WithTenant(tenantID)
		}
		return storeError(err, "AssignPermissionToRole")
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "assign_permission", "role", roleID, tenantID, map[string]any{
		"permission_id": permissionID,
	})
	s.invalidate(ctx, tenantID, CacheKindRolePermissions)
	return nil
}

// RevokePermissionFromRole removes one permission from a role in one tenant
// scope. Revoking an unassigned permission reports not found.
func (s *Service) RevokePermissionFromRole(ctx context.Context, roleID, permissionID int64, tenantID *int64) error {
	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		q := txs.db.NewDelete().Model((*RolePermission)(nil)).
			Where("role_id = ?", roleID).
			Where("permission_id = ?", permissionID)
		if tenantID == nil {
			q = q.Where("tenant_id IS NULL")
		} else {
			q = q.Where("tenant_id = ?", *tenantID)
		}
		result, err := q.Exec(ctx)
		if err := storeError(dbkit.WithErr(result, err, "RevokePermissionFromRole").Err(), "RevokePermissionFromRole"); err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return storeError(err, "RevokePermissionFromRole")
		}
		if affected == 0 {
			return NewError(ErrNotFound, "permission not assigned").
				WithRole(&roleID).
				WithTenant(tenantID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "revoke_permission", "role", roleID, tenantID, map[string]any{
		"permission_id": permissionID,
	})
	s.invalidate(ctx, tenantID, CacheKindRolePermissions)
	return nil
}

// validateKeyName enforces the key format shared by roles and permissions:
// non-empty, no whitespace, no '|' (reserved as the spec separator).
func validateKeyName(key string) error {
	if key == "" {
		return NewError(ErrValidation, "key name is required").WithField("key_name")
	}
	if strings.ContainsAny(key, "| \t\n") {
		return NewError(ErrValidation, "key name must not contain '|' or whitespace").WithField("key_name")
	}
	return nil
}
