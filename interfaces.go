package permkit

import "context"

// Evaluator answers permission questions. *Service satisfies it; handlers
// that only check permissions can depend on this instead of the full
// Service.
type Evaluator interface {
	Can(ctx context.Context, user User, spec PermSpec) bool
	CanAll(ctx context.Context, user User, spec PermSpec) bool
	CanOnResource(ctx context.Context, user User, resourceType string, action Action, modifier Modifier, ref ResourceRef) bool
	GetChecker(ctx context.Context, user User) (*Checker, error)
}

// BulkUpdater applies atomic batches of matrix changes.
type BulkUpdater interface {
	BulkUpdateResourcePermissions(ctx context.Context, items []ResourcePermissionUpdate) (*BulkResult, error)
}

// AuditReader retrieves the administration audit trail.
type AuditReader interface {
	GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditLog, error)
}

var (
	_ Evaluator    = (*Service)(nil)
	_ BulkUpdater  = (*Service)(nil)
	_ AuditReader  = (*Service)(nil)
	_ AdminService = (*Service)(nil)

	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
