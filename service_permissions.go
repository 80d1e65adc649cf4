package permkit

import (
	"context"
	"strings"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// PERMISSIONS
// ============================================================================

// ListPermissions returns permissions in one exact tenant scope (nil =
// global), like ListRoles.
func (s *Service) ListPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, error) {
	var perms []Permission
	err := s.retryRead(ctx, 3, func() error {
		perms = perms[:0]
		q := s.db.NewSelect().Model(&perms)
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
		return dbkit.WithErr1(q.Order("key_name ASC").Scan(ctx), "ListPermissions").Err()
	})
	if err != nil {
		return nil, storeError(err, "ListPermissions")
	}
	return perms, nil
}

// GetPermission returns one permission by id.
func (s *Service) GetPermission(ctx context.Context, id int64) (*Permission, error) {
	var perm Permission
	err := dbkit.WithErr1(s.db.NewSelect().Model(&perm).Where("id = ?", id).Limit(1).Scan(ctx), "GetPermission").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "permission not found").WithEntity("permission", id)
		}
		return nil, storeError(err, "GetPermission")
	}
	return &perm, nil
}

// CreatePermission creates a permission. key_name must be unique within its
// tenant scope.
func (s *Service) CreatePermission(ctx context.Context, perm *Permission) error {
	if err := validateKeyName(perm.KeyName); err != nil {
		return err
	}
	if perm.DisplayName == "" {
		perm.DisplayName = perm.KeyName
	}

	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		existing, err := findPermissionByKey(ctx, txs.db, perm.TenantID, perm.KeyName)
		if err != nil {
			return err
		}
		if existing != nil {
			return NewError(ErrConflict, "permission key already exists in scope").
				WithField("key_name").
				WithTenant(perm.TenantID)
		}
		result, err := txs.db.NewInsert().Model(perm).Exec(ctx)
		return storeError(dbkit.WithErr(result, err, "CreatePermission").Err(), "CreatePermission")
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "create", "permission", perm.ID, perm.TenantID, map[string]any{
		"key_name":     perm.KeyName,
		"display_name": perm.DisplayName,
	})
	s.invalidate(ctx, perm.TenantID, CacheKindPermissions)
	return nil
}

// UpdatePermission updates a permission's key, display name and description.
// The tenant scope of an existing permission never changes; the stored scope
// is written back onto perm so the model reflects the row after the call.
func (s *Service) UpdatePermission(ctx context.Context, perm *Permission) error {
	if perm.ID == 0 {
		return NewError(ErrValidation, "permission id is required").WithField("id")
	}
	if err := validateKeyName(perm.KeyName); err != nil {
		return err
	}

	var tenantID *int64
	var assignmentScopes []*int64
	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		existing, err := txs.GetPermission(ctx, perm.ID)
		if err != nil {
			return err
		}
		tenantID = existing.TenantID
		perm.TenantID = existing.TenantID

		// The permission can be assigned in tenant scopes other than its
		// own; a key rename goes stale in every one of them.
		assignmentScopes, err = cascadeTenantScopes(ctx, txs.db, (*RolePermission)(nil), "permission_id", perm.ID)
		if err != nil {
			return err
		}

		if existing.KeyName != perm.KeyName {
			dup, err := findPermissionByKey(ctx, txs.db, existing.TenantID, perm.KeyName)
			if err != nil {
				return err
			}
			if dup != nil {
				return NewError(ErrConflict, "permission key already exists in scope").
					WithField("key_name").
					WithTenant(existing.TenantID)
			}
		}

		result, err := txs.db.NewUpdate().Model((*Permission)(nil)).
			Set("key_name = ?", perm.KeyName).
			Set("display_name = ?", perm.DisplayName).
			Set("description = ?", perm.Description).
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("id = ?", perm.ID).
			Exec(ctx)
		return storeError(dbkit.WithErr(result, err, "UpdatePermission").Err(), "UpdatePermission")
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "update", "permission", perm.ID, tenantID, map[string]any{
		"key_name":     perm.KeyName,
		"display_name": perm.DisplayName,
	})
	// Renaming a key changes what cached permission sets resolve to.
	s.invalidate(ctx, tenantID, CacheKindPermissions)
	for _, scope := range assignmentScopes {
		s.invalidate(ctx, scope, CacheKindRolePermissions)
	}
	return nil
}

// DeletePermission deletes a permission and cascades: role-permission
// assignments and resource-permission rows referencing it are removed in the
// same transaction.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	var tenantID *int64
	var assignmentScopes, matrixScopes []*int64
	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		existing, err := txs.GetPermission(ctx, id)
		if err != nil {
			return err
		}
		tenantID = existing.TenantID

		// The cascade removes rows naming the permission in every tenant
		// scope, not just the permission's own. Collect the scopes before
		// deleting.
		assignmentScopes, err = cascadeTenantScopes(ctx, txs.db, (*RolePermission)(nil), "permission_id", id)
		if err != nil {
			return err
		}
		matrixScopes, err = cascadeTenantScopes(ctx, txs.db, (*ResourcePermission)(nil), "permission_id", id)
		if err != nil {
			return err
		}

		result, err := txs.db.NewDelete().Model((*RolePermission)(nil)).Where("permission_id = ?", id).Exec(ctx)
		if err := storeError(dbkit.WithErr(result, err, "DeletePermissionAssignments").Err(), "DeletePermission"); err != nil {
			return err
		}

		result, err = txs.db.NewDelete().Model((*ResourcePermission)(nil)).Where("permission_id = ?", id).Exec(ctx)
		if err := storeError(dbkit.WithErr(result, err, "DeletePermissionResourceRows").Err(), "DeletePermission"); err != nil {
			return err
		}

		result, err = txs.db.NewDelete().Model((*Permission)(nil)).Where("id = ?", id).Exec(ctx)
		return storeError(dbkit.WithErr(result, err, "DeletePermission").Err(), "DeletePermission")
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "delete", "permission", id, tenantID, nil)
	s.invalidate(ctx, tenantID, CacheKindPermissions)
	for _, scope := range assignmentScopes {
		s.invalidate(ctx, scope, CacheKindRolePermissions)
	}
	for _, scope := range matrixScopes {
		s.invalidate(ctx, scope, CacheKindResourcePermissions)
	}
	return nil
}

// CountPermissions returns the number of permissions in one exact tenant
// scope.
func (s *Service) CountPermissions(ctx context.Context, tenantID *int64) (int, error) {
	count, err := dbkit.Count[Permission](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		if tenantID == nil {
			return q.Where("tenant_id IS NULL")
		}
		return q.Where("tenant_id = ?", *tenantID)
	})
	if err != nil {
		return 0, storeError(err, "CountPermissions")
	}
	return count, nil
}
