package permkit

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// CACHED EVALUATION READS
// ============================================================================

// PermissionSetFor resolves the flat permission set for a user's role: the
// union of permission keys joined through role_permissions rows that are
// global or in the user's tenant. Results are cached per (tenant, role).
func (s *Service) PermissionSetFor(ctx context.Context, user User) (PermissionSet, error) {
	key := cacheKey(CacheKindRolePermissions, user.TenantID, "r"+strconv.FormatInt(user.RoleID, 10)+":set")
	if data, ok := s.cache.Get(ctx, key); ok {
		var keys []string
		if err := json.Unmarshal(data, &keys); err == nil {
			return NewPermissionSet(keys...), nil
		}
	}

	var keys []string
	err := s.retryRead(ctx, 3, func() error {
		keys = keys[:0]
		var q *bun.RawQuery
		if user.TenantID == nil {
			q = s.db.NewRaw(
				"SELECT DISTINCT p.key_name FROM role_permissions rp "+
					"INNER JOIN permissions p ON p.id = rp.permission_id "+
					"WHERE rp.role_id = ? AND rp.tenant_id IS NULL",
				user.RoleID)
		} else {
			q = s.db.NewRaw(
				"SELECT DISTINCT p.key_name FROM role_permissions rp "+
					"INNER JOIN permissions p ON p.id = rp.permission_id "+
					"WHERE rp.role_id = ? AND (rp.tenant_id IS NULL OR rp.tenant_id = ?)",
				user.RoleID, *user.TenantID)
		}
		err := dbkit.WithErr1(q.Scan(ctx, &keys), "PermissionSetFor").Err()
		if dbkit.IsNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, storeError(err, "PermissionSetFor")
	}

	if data, err := json.Marshal(keys); err == nil {
		s.cache.Set(ctx, key, data, s.cacheTTL)
	}
	return NewPermissionSet(keys...), nil
}

// ResourceRowsFor returns the matrix rows that may apply to a user for one
// resource type: rows whose role is wildcard or the user's role, and whose
// tenant is global or the user's tenant. Results are cached per
// (tenant, role, resource type).
func (s *Service) ResourceRowsFor(ctx context.Context, user User, resourceType string) ([]ResourcePermission, error) {
	key := cacheKey(CacheKindResourcePermissions, user.TenantID,
		"r"+strconv.FormatInt(user.RoleID, 10)+":"+resourceType)
	if data, ok := s.cache.Get(ctx, key); ok {
		var rows []ResourcePermission
		if err := json.Unmarshal(data, &rows); err == nil {
			return rows, nil
		}
	}

	var rows []ResourcePermission
	err := s.retryRead(ctx, 3, func() error {
		rows = rows[:0]
		q := s.db.NewSelect().Model(&rows).
			Where("resource_type = ?", resourceType).
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("role_id IS NULL").WhereOr("role_id = ?", user.RoleID)
			})
		if user.TenantID == nil {
			q = q.Where("tenant_id IS NULL")
		} else {
			q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("tenant_id IS NULL").WhereOr("tenant_id = ?", *user.TenantID)
			})
		}
		return dbkit.WithErr1(q.Scan(ctx), "ResourceRowsFor").Err()
	})
	if err != nil {
		return nil, storeError(err, "ResourceRowsFor")
	}

	if data, err := json.Marshal(rows); err == nil {
		s.cache.Set(ctx, key, data, s.cacheTTL)
	}
	return rows, nil
}

// GetChecker builds a Checker for a user: its flat set is resolved eagerly,
// matrix rows are fetched lazily per resource type through the cache. A row
// fetch failure inside a later check logs and denies (fail closed); only the
// eager set resolution can surface an error here.
func (s *Service) GetChecker(ctx context.Context, user User) (*Checker, error) {
	var perms PermissionSet
	if !user.IsSuperAdmin() {
		var err error
		perms, err = s.PermissionSetFor(ctx, user)
		if err != nil {
			return nil, err
		}
	}

	rows := func(resourceType string) []ResourcePermission {
		fetched, err := s.ResourceRowsFor(ctx, user, resourceType)
		if err != nil {
			s.log.WithError(err).WithField("resource_type", resourceType).
				Warn("resource permission fetch failed, denying")
			return nil
		}
		return fetched
	}

	return NewChecker(user, perms, rows), nil
}

// Can reports whether the user holds ANY permission of the spec. Store
// failures resolve to an empty set, so only empty (vacuously true) specs
// pass when the store is down.
func (s *Service) Can(ctx context.Context, user User, spec PermSpec) bool {
	if spec.IsEmpty() || user.IsSuperAdmin() {
		return true
	}
	perms, err := s.PermissionSetFor(ctx, user)
	if err != nil {
		s.log.WithError(err).Warn("permission set fetch failed")
		return false
	}
	return perms.HasAny(spec)
}

// CanAll reports whether the user holds EVERY permission of the spec.
func (s *Service) CanAll(ctx context.Context, user User, spec PermSpec) bool {
	if spec.IsEmpty() || user.IsSuperAdmin() {
		return true
	}
	perms, err := s.PermissionSetFor(ctx, user)
	if err != nil {
		s.log.WithError(err).Warn("permission set fetch failed")
		return false
	}
	return perms.HasAll(spec)
}

// CanOnResource evaluates one cell of the resource matrix for a user. Store
// failures deny (fail closed).
func (s *Service) CanOnResource(ctx context.Context, user User, resourceType string, action Action, modifier Modifier, ref ResourceRef) bool {
	if user.IsSuperAdmin() {
		return true
	}
	rows, err := s.ResourceRowsFor(ctx, user, resourceType)
	if err != nil {
		s.log.WithError(err).WithField("resource_type", resourceType).
			Warn("resource permission fetch failed, denying")
		return false
	}
	return decideResource(EffectiveFlags(rows, user), action, modifier, ref, user)
}
