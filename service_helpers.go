package permkit

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

// storeError translates a low-level database error into the package taxonomy.
// Errors already carrying a sentinel pass through unchanged.
func storeError(err error, op string) error {
	if err == nil {
		return nil
	}
	var pkgErr *Error
	if errors.As(err, &pkgErr) {
		return err
	}
	switch {
	case dbkit.IsNotFound(err):
		return NewError(ErrNotFound, op+": "+err.Error())
	case dbkit.IsDuplicate(err):
		return NewError(ErrConflict, op+": "+err.Error())
	case isTransientStoreError(err):
		return NewError(ErrStoreUnavailable, op+": "+err.Error())
	default:
		return NewError(ErrDatabase, op+": "+err.Error())
	}
}

// isTransientStoreError reports whether an error is worth retrying on the
// read path. Write paths never auto-retry.
func isTransientStoreError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	transientErrors := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"deadlock",
		"temporary failure",
		"try again",
		"resource temporarily unavailable",
	}
	for _, transient := range transientErrors {
		if strings.Contains(errStr, transient) {
			return true
		}
	}
	return false
}

// retryRead runs a read operation, retrying transient failures with
// exponential backoff and jitter.
func (s *Service) retryRead(ctx context.Context, maxAttempts int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransientStoreError(err) || errors.Is(ctx.Err(), context.Canceled) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}

		backoff := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
		jitter := time.Duration(float64(backoff) * 0.1 * (0.5 + rand.Float64()))
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(backoff + jitter):
		}
	}
	return lastErr
}

// cascadeTenantScopes returns the distinct tenant scopes of the rows a
// cascade is about to remove or rewrite. Rows referencing a role or
// permission can live in any tenant scope, not just the referenced entity's
// own, so each collected scope needs its cache invalidated. A nil entry is a
// global row.
func cascadeTenantScopes(ctx context.Context, db dbkit.IDB, model any, column string, value int64) ([]*int64, error) {
	var tenants []*int64
	err := db.NewSelect().Model(model).
		ColumnExpr("DISTINCT tenant_id").
		Where("? = ?", bun.Ident(column), value).
		Scan(ctx, &tenants)
	if err != nil {
		return nil, storeError(dbkit.WithErr1(err, "CascadeTenantScopes").Err(), "CascadeTenantScopes")
	}
	return tenants, nil
}

// permissionExists checks a permission id against the store.
func permissionExists(ctx context.Context, db dbkit.IDB, id int64) (bool, error) {
	exists, err := dbkit.Exists[Permission](ctx, db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err != nil {
		return false, storeError(err, "PermissionExists")
	}
	return exists, nil
}

// roleExists checks a role id against the store.
func roleExists(ctx context.Context, db dbkit.IDB, id int64) (bool, error) {
	exists, err := dbkit.Exists[Role](ctx, db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err != nil {
		return false, storeError(err, "RoleExists")
	}
	return exists, nil
}

// findRoleByKey looks up a role by (tenant, key_name) exact scope.
func findRoleByKey(ctx context.Context, db dbkit.IDB, tenantID *int64, keyName string) (*Role, error) {
	var role Role
	q := db.NewSelect().Model(&role).Where("key_name = ?", keyName)
	if tenantID == nil {
		q = q.Where("tenant_id IS NULL")
	} else {
		q = q.Where("tenant_id = ?", *tenantID)
	}
	err := dbkit.WithErr1(q.Limit(1).Scan(ctx), "FindRoleByKey").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, storeError(err, "FindRoleByKey")
	}
	return &role, nil
}

// findPermissionByKey looks up a permission by (tenant, key_name) exact scope.
func findPermissionByKey(ctx context.Context, db dbkit.IDB, tenantID *int64, keyName string) (*Permission, error) {
	var perm Permission
	q := db.NewSelect().Model(&perm).Where("key_name = ?", keyName)
	if tenantID == nil {
		q = q.Where("tenant_id IS NULL")
	} else {
		q = q.Where("tenant_id = ?", *tenantID)
	}
	err := dbkit.WithErr1(q.Limit(1).Scan(ctx), "FindPermissionByKey").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, storeError(err, "FindPermissionByKey")
	}
	return &perm, nil
}

// findResourcePermissionByIdentity looks up a matrix row by its upsert
// identity (tenant, role, resource type), both scopes matched exactly.
func findResourcePermissionByIdentity(ctx context.Context, db dbkit.IDB, tenantID, roleID *int64, resourceType string) (*ResourcePermission, error) {
	var row ResourcePermission
	q := db.NewSelect().Model(&row).Where("resource_type = ?", resourceType)
	if tenantID == nil {
		q = q.Where("tenant_id IS NULL")
	} else {
		q = q.Where("tenant_id = ?", *tenantID)
	}
	if roleID == nil {
		q = q.Where("role_id IS NULL")
	} else {
		q = q.Where("role_id = ?", *roleID)
	}
	err := dbkit.WithErr1(q.Limit(1).Scan(ctx), "FindResourcePermissionByIdentity").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, storeError(err, "FindResourcePermissionByIdentity")
	}
	return &row, nil
}

// logAudit records an admin mutation. Best-effort: callers ignore the error
// so a broken audit table never blocks administration.
func (s *Service) logAudit(ctx context.Context, action, entityKind string, entityID int64, tenantID *int64, payload map[string]any) error {
	audit := GetAuditContext(ctx)
	entry := &AuditEntry{
		ActorID:    audit.ActorID,
		Action:     action,
		EntityKind: entityKind,
		EntityID:   entityID,
		TenantID:   tenantID,
		Payload:    payload,
		IPAddress:  audit.IPAddress,
		UserAgent:  audit.UserAgent,
		RequestID:  audit.RequestID,
	}
	_, err := s.db.NewInsert().Model(entry.ToModel()).Exec(ctx)
	if err != nil {
		s.log.WithError(err).WithField("action", action).Warn("audit log write failed")
	}
	return dbkit.WithErr1(err, "LogAudit").Err()
}
