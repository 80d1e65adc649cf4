package permkit

// RowSource supplies the resource-permission rows that may apply to the
// checker's user for a resource type. The Service wires a cached store read
// here; tests supply fixtures.
type RowSource func(resourceType string) []ResourcePermission

// Checker answers permission questions for one user against an immutable
// snapshot of that user's flat permission set. It is cheap to copy and safe
// for concurrent use.
//
// Example:
//
//	checker, err := service.GetChecker(ctx, user)
//	if err != nil { ... }
//	if checker.Can(permkit.ParsePermSpec("manage_users|manage_roles")) { ... }
//	if checker.CanOnResource("products", permkit.ActionEdit, permkit.ModifierOwn, permkit.OwnedBy(ownerID)) { ... }
type Checker struct {
	user  User
	perms PermissionSet
	rows  RowSource
}

// NewChecker builds a checker from a resolved permission set and a row
// source. rows may be nil, in which case every resource check denies (unless
// the user is a super-admin).
func NewChecker(user User, perms PermissionSet, rows RowSource) *Checker {
	return &Checker{user: user, perms: perms, rows: rows}
}

// User returns the user this checker answers for.
func (c *Checker) User() User {
	return c.user
}

// Permissions returns the resolved flat permission set.
func (c *Checker) Permissions() PermissionSet {
	return c.perms
}

// Can reports whether the user holds ANY permission of the spec. An empty
// spec is vacuously true. Super-admins always pass.
func (c *Checker) Can(spec PermSpec) bool {
	if spec.IsEmpty() || c.user.IsSuperAdmin() {
		return true
	}
	return c.perms.HasAny(spec)
}

// CanAll reports whether the user holds EVERY permission of the spec. An
// empty spec is vacuously true. Super-admins always pass.
func (c *Checker) CanAll(spec PermSpec) bool {
	if spec.IsEmpty() || c.user.IsSuperAdmin() {
		return true
	}
	return c.perms.HasAll(spec)
}

// CanOnResource evaluates one cell of the resource matrix: action+modifier on
// a resource type, with instance context in ref. Zero matching rows deny.
func (c *Checker) CanOnResource(resourceType string, action Action, modifier Modifier, ref ResourceRef) bool {
	if c.user.IsSuperAdmin() {
		return true
	}
	flags := c.effectiveFlags(resourceType)
	return decideResource(flags, action, modifier, ref, c.user)
}

// CanViewResource reports whether any granted view path (all, own, tenant)
// permits viewing the referenced instance.
func (c *Checker) CanViewResource(resourceType string, ref ResourceRef) bool {
	if c.user.IsSuperAdmin() {
		return true
	}
	flags := c.effectiveFlags(resourceType)
	return decideResource(flags, ActionView, ModifierAll, ref, c.user) ||
		decideResource(flags, ActionView, ModifierOwn, ref, c.user) ||
		decideResource(flags, ActionView, ModifierTenant, ref, c.user)
}

// CanEditResource reports whether any granted edit path permits editing the
// referenced instance.
func (c *Checker) CanEditResource(resourceType string, ref ResourceRef) bool {
	if c.user.IsSuperAdmin() {
		return true
	}
	flags := c.effectiveFlags(resourceType)
	return decideResource(flags, ActionEdit, ModifierAll, ref, c.user) ||
		decideResource(flags, ActionEdit, ModifierOwn, ref, c.user)
}

// CanDeleteResource reports whether any granted delete path permits deleting
// the referenced instance.
func (c *Checker) CanDeleteResource(resourceType string, ref ResourceRef) bool {
	if c.user.IsSuperAdmin() {
		return true
	}
	flags := c.effectiveFlags(resourceType)
	return decideResource(flags, ActionDelete, ModifierAll, ref, c.user) ||
		decideResource(flags, ActionDelete, ModifierOwn, ref, c.user)
}

// CanCreateResource reports whether the user may create instances of the
// resource type.
func (c *Checker) CanCreateResource(resourceType string) bool {
	if c.user.IsSuperAdmin() {
		return true
	}
	flags := c.effectiveFlags(resourceType)
	return flags.CanCreate
}

func (c *Checker) effectiveFlags(resourceType string) ResourceFlags {
	if c.rows == nil {
		return ResourceFlags{}
	}
	return EffectiveFlags(c.rows(resourceType), c.user)
}

// EffectiveFlags selects the rows that apply to the user (wildcard or
// matching role, global or matching tenant) and combines their flags by
// union. Grants only accumulate; a row can never revoke what another grants.
func EffectiveFlags(rows []ResourcePermission, user User) ResourceFlags {
	var flags ResourceFlags
	for i := range rows {
		row := &rows[i]
		if row.RoleID != nil && *row.RoleID != user.RoleID {
			continue
		}
		if !tenantMatches(row.TenantID, user.TenantID) {
			continue
		}
		flags.Merge(row.ResourceFlags)
	}
	return flags
}

// decideResource maps (action, modifier) to a flag and checks the instance
// context. Unknown combinations deny. Missing owner or tenant context in ref
// denies the corresponding modifier rather than widening it.
func decideResource(flags ResourceFlags, action Action, modifier Modifier, ref ResourceRef, user User) bool {
	switch action {
	case ActionCreate:
		return flags.CanCreate

	case ActionView:
		switch modifier {
		case ModifierAll:
			return flags.CanViewAll
		case ModifierOwn:
			return flags.CanViewOwn && refOwnedBy(ref, user)
		case ModifierTenant:
			return flags.CanViewTenant && refInTenant(ref, user)
		}

	case ActionEdit:
		switch modifier {
		case ModifierAll:
			return flags.CanEditAll
		case ModifierOwn:
			return flags.CanEditOwn && refOwnedBy(ref, user)
		}

	case ActionDelete:
		switch modifier {
		case ModifierAll:
			return flags.CanDeleteAll
		case ModifierOwn:
			return flags.CanDeleteOwn && refOwnedBy(ref, user)
		}
	}
	return false
}

func refOwnedBy(ref ResourceRef, user User) bool {
	return ref.OwnerID != nil && *ref.OwnerID == user.ID
}

func refInTenant(ref ResourceRef, user User) bool {
	return ref.TenantID != nil && user.TenantID != nil && *ref.TenantID == *user.TenantID
}
