package permkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/sirupsen/logrus"
)

// Service is the entity store and evaluation entry point: CRUD over roles,
// permissions, role-permission assignments and resource-permission rows, plus
// cached permission resolution for checks.
//
// Error Handling:
// Database operations use dbkit's chainable error wrapping and surface the
// package taxonomy (ErrValidation, ErrNotFound, ErrConflict, ErrDatabase,
// ErrStoreUnavailable) to callers.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := permkit.NewService(permkit.DefaultRegistry(), db)
//	checker, _ := service.GetChecker(ctx, user)
type Service struct {
	db        dbkit.IDB
	registry  *Registry
	cache     Cache
	cacheTTL  time.Duration
	log       *logrus.Logger
	txMonitor *transactionMonitor
	bulkGuard *bulkGuard
}

// Option configures a Service.
type Option func(*Service)

// WithCache replaces the default in-memory cache. Pass a RedisCache for
// multi-process deployments.
func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithCacheTTL sets the lifetime of cached permission reads.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheTTL = ttl
	}
}

// WithLogger sets the structured logger. Defaults to the logrus standard
// logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// NewService creates a new PermKit service.
func NewService(registry *Registry, db dbkit.IDB, opts ...Option) *Service {
	s := &Service{
		db:        db,
		registry:  registry,
		cacheTTL:  DefaultCacheTTL,
		log:       logrus.StandardLogger(),
		txMonitor: newTransactionMonitor(),
		bulkGuard: newBulkGuard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewMemoryCache(DefaultCacheSize, s.cacheTTL)
	}
	return s
}

// Registry returns the resource registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Close releases the cache. The database connection belongs to the caller.
func (s *Service) Close() error {
	return s.cache.Close()
}

// invalidate drops cached reads for the given kinds in the given tenant
// scope. A nil tenant is a global write and drops the whole kind.
func (s *Service) invalidate(ctx context.Context, tenantID *int64, kinds ...string) {
	for _, kind := range kinds {
		s.cache.DeletePrefix(ctx, cacheScope(kind, tenantID))
	}
}

// ============================================================================
// AUDIT LOG
// ============================================================================

// GetAuditLog retrieves audit log entries with optional filters.
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditLog, error) {
	var logs []AuditLog
	q := s.db.NewSelect().Model(&logs)
	if filter.ActorID != 0 {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TenantID != nil {
		q = q.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.EntityKind != "" {
		q = q.Where("entity_kind = ?", filter.EntityKind)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	if err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err(); err != nil {
		return nil, storeError(err, "GetAuditLog")
	}

	return logs, nil
}
