package permkit

import (
	"sort"
	"sync"
)

// Registry holds the resource types the platform knows about. Resource
// permission writes are validated against it, and the list-scoping query
// builder reads the owner/tenant column names from it.
//
// Example:
//
//	registry := permkit.NewRegistry()
//	registry.DefineResource("products").OwnerColumn("created_by").
//		DefineResource("orders").OwnerColumn("user_id")
type Registry struct {
	mu        sync.RWMutex
	resources map[string]*ResourceDefinition
}

// ResourceDefinition describes one resource type: its name and the columns
// that carry ownership and tenant scope in the platform's tables.
type ResourceDefinition struct {
	registry     *Registry
	name         string
	ownerColumn  string
	tenantColumn string
}

// NewRegistry creates an empty resource registry.
func NewRegistry() *Registry {
	return &Registry{
		resources: make(map[string]*ResourceDefinition),
	}
}

// DefaultRegistry creates a registry preloaded with the marketplace resource
// types and their ownership columns.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.DefineResource("tenants").OwnerColumn("owner_user_id").TenantColumn("id").
		DefineResource("users").OwnerColumn("id").
		DefineResource("tenant_users").OwnerColumn("user_id").
		DefineResource("products").OwnerColumn("created_by").
		DefineResource("orders").OwnerColumn("user_id")
	return r
}

// DefineResource registers a resource type and returns its definition for
// fluent configuration. Redefining a name replaces the previous definition.
// Default columns are "created_by" (owner) and "tenant_id" (tenant).
func (r *Registry) DefineResource(name string) *ResourceDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	def := &ResourceDefinition{
		registry:     r,
		name:         name,
		ownerColumn:  "created_by",
		tenantColumn: "tenant_id",
	}
	r.resources[name] = def
	return def
}

// OwnerColumn sets the column holding the owning user id.
func (d *ResourceDefinition) OwnerColumn(column string) *ResourceDefinition {
	d.ownerColumn = column
	return d
}

// TenantColumn sets the column holding the tenant id.
func (d *ResourceDefinition) TenantColumn(column string) *ResourceDefinition {
	d.tenantColumn = column
	return d
}

// DefineResource continues the fluent chain on the parent registry.
func (d *ResourceDefinition) DefineResource(name string) *ResourceDefinition {
	return d.registry.DefineResource(name)
}

// Name returns the resource type name.
func (d *ResourceDefinition) Name() string {
	return d.name
}

// GetOwnerColumn returns the configured owner column.
func (d *ResourceDefinition) GetOwnerColumn() string {
	return d.ownerColumn
}

// GetTenantColumn returns the configured tenant column.
func (d *ResourceDefinition) GetTenantColumn() string {
	return d.tenantColumn
}

// GetResource looks up a resource definition by name.
func (r *Registry) GetResource(name string) (*ResourceDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.resources[name]
	return def, ok
}

// Resources returns the registered resource type names, sorted.
func (r *Registry) Resources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateResourceType returns a validation error when the resource type is
// empty or not registered.
func (r *Registry) ValidateResourceType(name string) error {
	if name == "" {
		return NewError(ErrValidation, "resource type is required").WithField("resource_type")
	}
	if _, ok := r.GetResource(name); !ok {
		return NewError(ErrValidation, "unknown resource type: "+name).WithField("resource_type")
	}
	return nil
}
