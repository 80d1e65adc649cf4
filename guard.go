package permkit

import (
	"sort"
	"strconv"
	"sync"
)

// bulkGuard serializes bulk resource-permission updates per scope within one
// process. Acquisition is try-only: a concurrent overlapping bulk update is
// rejected, never queued, so a stuck client cannot pile up writes.
type bulkGuard struct {
	inFlight sync.Map // scope key -> struct{}
}

func newBulkGuard() *bulkGuard {
	return &bulkGuard{}
}

// bulkScopeKey names the lock scope for one (tenant, role) pair. The same
// string feeds the Postgres advisory lock, so in-process and cross-process
// serialization agree on scope identity.
func bulkScopeKey(tenantID, roleID *int64) string {
	role := "any"
	if roleID != nil {
		role = "r" + strconv.FormatInt(*roleID, 10)
	}
	return "resource_permissions:" + tenantKey(tenantID) + ":" + role
}

// acquire try-locks every scope key. On any contention it releases what it
// took and reports ErrBulkInFlight. Keys are sorted and deduplicated first so
// two overlapping batches always collide instead of deadlocking.
func (g *bulkGuard) acquire(keys []string) ([]string, error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	taken := make([]string, 0, len(sorted))
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		if _, loaded := g.inFlight.LoadOrStore(key, struct{}{}); loaded {
			g.release(taken)
			return nil, NewError(ErrBulkInFlight, "scope "+key+" is being updated")
		}
		taken = append(taken, key)
	}
	return taken, nil
}

// release unlocks previously acquired scope keys.
func (g *bulkGuard) release(keys []string) {
	for _, key := range keys {
		g.inFlight.Delete(key)
	}
}
