package permkit

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache kinds. Every cache key starts with its kind so writers can
// invalidate all derived reads for one (kind, tenant) scope at once.
const (
	CacheKindRoles               = "roles"
	CacheKindPermissions         = "permissions"
	CacheKindRolePermissions     = "role_permissions"
	CacheKindResourcePermissions = "resource_permissions"
)

// DefaultCacheTTL bounds staleness for cached permission reads.
const DefaultCacheTTL = 30 * time.Minute

// DefaultCacheSize is the entry capacity of the in-memory cache.
const DefaultCacheSize = 4096

// Cache stores serialized permission reads keyed by (kind, tenant, detail).
// Implementations must be safe for concurrent use. Get misses are not errors;
// the caller falls through to the store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	DeletePrefix(ctx context.Context, prefix string)
	Close() error
}

// cacheKey builds "kind:tenantScope:detail".
func cacheKey(kind string, tenantID *int64, detail string) string {
	return kind + ":" + tenantKey(tenantID) + ":" + detail
}

// cacheScope builds the invalidation prefix for one (kind, tenant) scope.
// A nil tenant is a global write, which can affect reads in every tenant, so
// the scope widens to the whole kind.
func cacheScope(kind string, tenantID *int64) string {
	if tenantID == nil {
		return kind + ":"
	}
	return kind + ":" + tenantKey(tenantID) + ":"
}

// MemoryCache is the default Cache: an in-process LRU with a fixed TTL.
// The per-call ttl argument is ignored; the TTL is set at construction.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryCache creates an in-memory cache holding up to size entries, each
// expiring after ttl.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

// Get returns the cached value for key, if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.lru.Get(key)
}

// Set stores value under key. The ttl argument is ignored; entries expire on
// the cache-wide TTL.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.lru.Add(key, value)
}

// DeletePrefix removes every entry whose key starts with prefix.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) {
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}

// Close releases the cache. The in-memory cache has nothing to release.
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
