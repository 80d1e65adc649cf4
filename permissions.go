package permkit

import (
	"sort"
	"strings"
)

// PermSpec names one or more flat permissions to check. It is built once at
// the call boundary; evaluation works on the parsed slice and never re-splits
// strings.
//
// Example:
//
//	permkit.ParsePermSpec("manage_users|manage_roles") // ANY-of via Can, ALL-of via CanAll
//	permkit.PermSpecOf("manage_users")
type PermSpec []string

// ParsePermSpec parses a permission expression. Keys are separated by '|';
// whitespace around keys is trimmed and empty fragments are dropped, so
// "a | b" and "a|b" are the same spec.
func ParsePermSpec(expr string) PermSpec {
	if expr == "" {
		return nil
	}
	parts := strings.Split(expr, "|")
	spec := make(PermSpec, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			spec = append(spec, p)
		}
	}
	return spec
}

// PermSpecOf builds a spec from explicit keys.
func PermSpecOf(keys ...string) PermSpec {
	return PermSpec(keys)
}

// IsEmpty reports whether the spec names no permissions. Empty specs are
// vacuously satisfied.
func (s PermSpec) IsEmpty() bool {
	return len(s) == 0
}

// PermissionSet is the resolved set of flat permission keys a user holds.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from keys.
func NewPermissionSet(keys ...string) PermissionSet {
	set := make(PermissionSet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Add inserts a key into the set.
func (ps PermissionSet) Add(key string) {
	ps[key] = struct{}{}
}

// Has reports whether the set contains the key.
func (ps PermissionSet) Has(key string) bool {
	_, ok := ps[key]
	return ok
}

// HasAny reports whether the set contains at least one key of the spec.
// An empty spec is vacuously true.
func (ps PermissionSet) HasAny(spec PermSpec) bool {
	if spec.IsEmpty() {
		return true
	}
	for _, key := range spec {
		if ps.Has(key) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every key of the spec.
// An empty spec is vacuously true.
func (ps PermissionSet) HasAll(spec PermSpec) bool {
	for _, key := range spec {
		if !ps.Has(key) {
			return false
		}
	}
	return true
}

// Keys returns the set's keys sorted, for stable serialization and logging.
func (ps PermissionSet) Keys() []string {
	keys := make([]string, 0, len(ps))
	for k := range ps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys in the set.
func (ps PermissionSet) Len() int {
	return len(ps)
}
