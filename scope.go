package permkit

import "github.com/uptrace/bun"

// ScopeListQuery narrows a list query over a resource table to the rows the
// user is allowed to view. The widest granted view path wins:
//
//   - super-admin or can_view_all: no filter
//   - can_view_tenant: rows in the user's tenant (plus their own rows when
//     can_view_own is also granted)
//   - can_view_own only: rows owned by the user
//   - nothing granted: an impossible predicate, so the list is empty
//
// Column names come from the resource registry. Unknown resource types get
// the impossible predicate.
func (c *Checker) ScopeListQuery(q *bun.SelectQuery, registry *Registry, resourceType string) *bun.SelectQuery {
	if c.user.IsSuperAdmin() {
		return q
	}
	flags := c.effectiveFlags(resourceType)
	if flags.CanViewAll {
		return q
	}

	def, ok := registry.GetResource(resourceType)
	if !ok {
		return q.Where("1 = 0")
	}

	if flags.CanViewTenant && c.user.TenantID != nil {
		if flags.CanViewOwn {
			return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("? = ?", bun.Ident(def.GetTenantColumn()), *c.user.TenantID).
					WhereOr("? = ?", bun.Ident(def.GetOwnerColumn()), c.user.ID)
			})
		}
		return q.Where("? = ?", bun.Ident(def.GetTenantColumn()), *c.user.TenantID)
	}

	if flags.CanViewOwn {
		return q.Where("? = ?", bun.Ident(def.GetOwnerColumn()), c.user.ID)
	}

	return q.Where("1 = 0")
}
