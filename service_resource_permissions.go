package permkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// RESOURCE PERMISSIONS
// ============================================================================

// ListResourcePermissions returns matrix rows. Unlike role/permission
// listing, a tenant filter unions global rows with tenant rows, because both
// apply when evaluating for a tenant user; a role filter likewise includes
// wildcard (role_id IS NULL) rows.
func (s *Service) ListResourcePermissions(ctx context.Context, filter ResourcePermissionFilter) ([]ResourcePermission, error) {
	var rows []ResourcePermission
	err := s.retryRead(ctx, 3, func() error {
		rows = rows[:0]
		q := s.db.NewSelect().Model(&rows)
		if filter.TenantID != nil {
			q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("tenant_id IS NULL").WhereOr("tenant_id = ?", *filter.TenantID)
			})
		}
		if filter.RoleID != nil {
			q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("role_id IS NULL").WhereOr("role_id = ?", *filter.RoleID)
			})
		}
		if filter.ResourceType != "" {
			q = q.Where("resource_type = ?", filter.ResourceType)
		}
		if filter.PermissionID != 0 {
			q = q.Where("permission_id = ?", filter.PermissionID)
		}
		return dbkit.WithErr1(q.Order("resource_type ASC", "id ASC").Scan(ctx), "ListResourcePermissions").Err()
	})
	if err != nil {
		return nil, storeError(err, "ListResourcePermissions")
	}
	return rows, nil
}

// GetResourcePermission returns one matrix row by id.
func (s *Service) GetResourcePermission(ctx context.Context, id int64) (*ResourcePermission, error) {
	var row ResourcePermission
	err := dbkit.WithErr1(s.db.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx), "GetResourcePermission").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "resource permission not found").WithEntity("resource_permission", id)
		}
		return nil, storeError(err, "GetResourcePermission")
	}
	return &row, nil
}

// CreateResourcePermission creates or refreshes a matrix row. Identity is
// (tenant, role, resource type): when a row with the same identity exists its
// flags and permission are overwritten instead of inserting a duplicate.
func (s *Service) CreateResourcePermission(ctx context.Context, row *ResourcePermission) error {
	if err := s.validateResourceRow(ctx, row.ResourceType, row.PermissionID, row.RoleID); err != nil {
		return err
	}

	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		return txs.upsertResourceRow(ctx, row)
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "create", "resource_permission", row.ID, row.TenantID, map[string]any{
		"resource_type": row.ResourceType,
		"role_id":       row.RoleID,
	})
	s.invalidate(ctx, row.TenantID, CacheKindResourcePermissions)
	return nil
}

// UpdateResourcePermission updates a matrix row by id. Missing ids report
// not found; the row's identity columns (tenant, role, resource type) are
// replaced along with the flags.
func (s *Service) UpdateResourcePermission(ctx context.Context, row *ResourcePermission) error {
	if row.ID == 0 {
		return NewError(ErrValidation, "resource permission id is required").WithField("id")
	}
	if err := s.validateResourceRow(ctx, row.ResourceType, row.PermissionID, row.RoleID); err != nil {
		return err
	}

	var previousTenant *int64
	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		existing, err := txs.GetResourcePermission(ctx, row.ID)
		if err != nil {
			return err
		}
		previousTenant = existing.TenantID
		return txs.updateResourceRowByID(ctx, row)
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "update", "resource_permission", row.ID, row.TenantID, map[string]any{
		"resource_type": row.ResourceType,
		"role_id":       row.RoleID,
	})
	s.invalidate(ctx, row.TenantID, CacheKindResourcePermissions)
	if !tenantEqual(previousTenant, row.TenantID) {
		s.invalidate(ctx, previousTenant, CacheKindResourcePermissions)
	}
	return nil
}

// DeleteResourcePermission deletes one matrix row by id.
func (s *Service) DeleteResourcePermission(ctx context.Context, id int64) error {
	var tenantID *int64
	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		existing, err := txs.GetResourcePermission(ctx, id)
		if err != nil {
			return err
		}
		tenantID = existing.TenantID

		result, err := txs.db.NewDelete().Model((*ResourcePermission)(nil)).Where("id = ?", id).Exec(ctx)
		return storeError(dbkit.WithErr(result, err, "DeleteResourcePermission").Err(), "DeleteResourcePermission")
	})
	if err != nil {
		return err
	}

	_ = s.logAudit(ctx, "delete", "resource_permission", id, tenantID, nil)
	s.invalidate(ctx, tenantID, CacheKindResourcePermissions)
	return nil
}

// ============================================================================
// BULK UPDATE
// ============================================================================

// ResourcePermissionUpdate is one item of a bulk matrix save. ID zero means
// upsert by identity (tenant, role, resource type); a non-zero ID must name
// an existing row.
type ResourcePermissionUpdate struct {
	ID           int64
	TenantID     *int64
	RoleID       *int64
	ResourceType string
	PermissionID int64
	Flags        ResourceFlags
}

// BulkResult reports the outcome of a bulk update.
type BulkResult struct {
	Updated int `json:"updated"`
}

// BulkUpdateResourcePermissions applies a batch of matrix changes
// atomically: every item is validated first, then all are applied in one
// transaction; any failure rolls back everything and reports Updated 0.
//
// Two guards serialize concurrent saves per (tenant, role) scope: an
// in-process try-lock that rejects overlapping bulk calls with
// ErrBulkInFlight, and a Postgres advisory transaction lock on the same
// scope keys for cross-process safety. An empty batch succeeds with
// Updated 0 and touches nothing.
func (s *Service) BulkUpdateResourcePermissions(ctx context.Context, items []ResourcePermissionUpdate) (*BulkResult, error) {
	result := &BulkResult{}
	if len(items) == 0 {
		return result, nil
	}

	scopes := make([]string, 0, len(items))
	for _, item := range items {
		scopes = append(scopes, bulkScopeKey(item.TenantID, item.RoleID))
	}
	taken, err := s.bulkGuard.acquire(scopes)
	if err != nil {
		return result, err
	}
	defer s.bulkGuard.release(taken)

	affectedTenants := make(map[string]*int64)

	err = s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		for _, scope := range taken {
			if _, err := txs.db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", scope).Exec(ctx); err != nil {
				return storeError(dbkit.WithErr1(err, "BulkAdvisoryLock").Err(), "BulkUpdateResourcePermissions")
			}
		}

		// Validate the whole batch before touching any row. Id-addressed
		// items can move a row between tenant scopes, so the pre-update
		// tenant counts as affected too.
		for i := range items {
			item := &items[i]
			if err := txs.validateResourceRow(ctx, item.ResourceType, item.PermissionID, item.RoleID); err != nil {
				return err
			}
			if item.ID != 0 {
				existing, err := txs.GetResourcePermission(ctx, item.ID)
				if err != nil {
					return err
				}
				affectedTenants[tenantKey(existing.TenantID)] = existing.TenantID
			}
		}

		for i := range items {
			item := &items[i]
			row := &ResourcePermission{
				ID:            item.ID,
				TenantID:      item.TenantID,
				RoleID:        item.RoleID,
				ResourceType:  item.ResourceType,
				PermissionID:  item.PermissionID,
				ResourceFlags: item.Flags,
			}
			var err error
			if item.ID != 0 {
				err = txs.updateResourceRowByID(ctx, row)
			} else {
				err = txs.upsertResourceRow(ctx, row)
			}
			if err != nil {
				return err
			}
			affectedTenants[tenantKey(item.TenantID)] = item.TenantID
		}
		return nil
	})
	if err != nil {
		return &BulkResult{}, err
	}

	result.Updated = len(items)
	_ = s.logAudit(ctx, "bulk_update", "resource_permission", 0, nil, map[string]any{
		"items": len(items),
	})
	for _, tenantID := range affectedTenants {
		s.invalidate(ctx, tenantID, CacheKindResourcePermissions)
	}
	return result, nil
}

// ============================================================================
// INTERNAL
// ============================================================================

// validateResourceRow checks the parts of a matrix row that can be rejected
// without touching the row itself.
func (s *Service) validateResourceRow(ctx context.Context, resourceType string, permissionID int64, roleID *int64) error {
	if err := s.registry.ValidateResourceType(resourceType); err != nil {
		return err
	}
	if permissionID == 0 {
		return NewError(ErrValidation, "permission id is required").WithField("permission_id")
	}
	ok, err := permissionExists(ctx, s.db, permissionID)
	if err != nil {
		return err
	}
	if !ok {
		return NewError(ErrValidation, "unknown permission id").
			WithField("permission_id").
			WithEntity("permission", permissionID)
	}
	if roleID != nil {
		ok, err := roleExists(ctx, s.db, *roleID)
		if err != nil {
			return err
		}
		if !ok {
			return NewError(ErrValidation, "unknown role id").
				WithField("role_id").
				WithEntity("role", *roleID)
		}
	}
	return nil
}

// upsertResourceRow writes a row by its (tenant, role, resource type)
// identity: update when a row exists, insert otherwise. Callers run it
// inside a transaction.
func (s *Service) upsertResourceRow(ctx context.Context, row *ResourcePermission) error {
	existing, err := findResourcePermissionByIdentity(ctx, s.db, row.TenantID, row.RoleID, row.ResourceType)
	if err != nil {
		return err
	}
	if existing != nil {
		row.ID = existing.ID
		return s.updateResourceRowByID(ctx, row)
	}
	result, err := s.db.NewInsert().Model(row).Exec(ctx)
	return storeError(dbkit.WithErr(result, err, "InsertResourceRow").Err(), "CreateResourcePermission")
}

// updateResourceRowByID overwrites a row's identity, permission and flags.
func (s *Service) updateResourceRowByID(ctx context.Context, row *ResourcePermission) error {
	result, err := s.db.NewUpdate().Model((*ResourcePermission)(nil)).
		Set("tenant_id = ?", row.TenantID).
		Set("role_id = ?", row.RoleID).
		Set("resource_type = ?", row.ResourceType).
		Set("permission_id = ?", row.PermissionID).
		Set("can_view_all = ?", row.CanViewAll).
		Set("can_view_own = ?", row.CanViewOwn).
		Set("can_view_tenant = ?", row.CanViewTenant).
		Set("can_create = ?", row.CanCreate).
		Set("can_edit_all = ?", row.CanEditAll).
		Set("can_edit_own = ?", row.CanEditOwn).
		Set("can_delete_all = ?", row.CanDeleteAll).
		Set("can_delete_own = ?", row.CanDeleteOwn).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", row.ID).
		Exec(ctx)
	return storeError(dbkit.WithErr(result, err, "UpdateResourceRow").Err(), "UpdateResourcePermission")
}
