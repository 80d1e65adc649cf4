// Package permkit is the authorization core for a multi-tenant marketplace
// platform: flat permission checks, per-resource-type CRUD matrices, and the
// administration surface that maintains both.
//
// # Overview
//
// PermKit manages four kinds of rows: roles, flat permissions, the
// role-permission assignments joining them, and resource-permission rows
// that grant CRUD capabilities (view/create/edit/delete with all/own/tenant
// modifiers) on named resource types. Every row carries an optional tenant
// scope; a NULL tenant means the row applies platform-wide.
//
// # Checks
//
// Flat checks answer "does this user's role hold permission X":
//
//	service.Can(ctx, user, permkit.ParsePermSpec("manage_users|manage_roles")) // ANY of
//	service.CanAll(ctx, user, permkit.PermSpecOf("manage_users", "manage_roles"))
//
// Resource checks answer one cell of the CRUD matrix, with instance context
// when the modifier needs it:
//
//	service.CanOnResource(ctx, user, "products", permkit.ActionEdit,
//	    permkit.ModifierOwn, permkit.OwnedBy(product.CreatedBy))
//
// A user whose role is the reserved super-admin (id 1 or key "super_admin")
// passes every check. Rows matching a user (wildcard or matching role,
// global or matching tenant) combine by union; there is no deny primitive.
// Empty flat specs are vacuously true; resource checks with no matching rows
// deny.
//
// # Administration
//
// Service methods cover CRUD for all four row kinds, including an atomic
// bulk save of matrix rows guarded per (tenant, role) scope. Gateway exposes
// them over HTTP with a JSON envelope; tenant ids on the wire use 0 for the
// global scope, converted at the gateway boundary only.
//
// # Caching
//
// Evaluation reads go through a Cache (in-memory LRU by default, Redis
// optional) keyed by (kind, tenant). Every write invalidates its exact
// (tenant, kind) scope before returning, so checks observe writes
// immediately.
//
// # Setup
//
//	db, err := dbkit.New(dbkit.Config{URL: databaseURL})
//	if err != nil { ... }
//	service := permkit.NewService(permkit.DefaultRegistry(), db)
//	if _, err := db.Migrate(ctx, service.Migrations()); err != nil { ... }
package permkit
