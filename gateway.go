package permkit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// AdminService is the store surface the gateway needs. *Service satisfies
// it; tests use a stub.
type AdminService interface {
	ListRoles(ctx context.Context, filter RoleFilter) ([]Role, error)
	CreateRole(ctx context.Context, role *Role) error
	UpdateRole(ctx context.Context, role *Role) error
	DeleteRole(ctx context.Context, id int64) error

	ListPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, error)
	CreatePermission(ctx context.Context, perm *Permission) error
	UpdatePermission(ctx context.Context, perm *Permission) error
	DeletePermission(ctx context.Context, id int64) error

	GetRolePermissions(ctx context.Context, roleID int64, tenantID *int64) ([]RolePermission, error)
	SetRolePermissions(ctx context.Context, roleID int64, tenantID *int64, permissionIDs []int64) error

	ListResourcePermissions(ctx context.Context, filter ResourcePermissionFilter) ([]ResourcePermission, error)
	GetResourcePermission(ctx context.Context, id int64) (*ResourcePermission, error)
	CreateResourcePermission(ctx context.Context, row *ResourcePermission) error
	UpdateResourcePermission(ctx context.Context, row *ResourcePermission) error
	DeleteResourcePermission(ctx context.Context, id int64) error
	BulkUpdateResourcePermissions(ctx context.Context, items []ResourcePermissionUpdate) (*BulkResult, error)
}

// DefaultRequestTimeout bounds each admin request.
const DefaultRequestTimeout = 10 * time.Second

// Gateway is the HTTP administration surface over an AdminService. All
// payloads carry tenant_id as an int64 where 0 means global; the conversion
// to the core's nullable form happens here and nowhere deeper.
type Gateway struct {
	svc     AdminService
	log     *logrus.Logger
	timeout time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the gateway's structured logger.
func WithGatewayLogger(log *logrus.Logger) GatewayOption {
	return func(g *Gateway) {
		g.log = log
	}
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.timeout = timeout
	}
}

// NewGateway creates the administration gateway.
func NewGateway(svc AdminService, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		svc:     svc,
		log:     logrus.StandardLogger(),
		timeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Router builds the gateway's route table. Mount it under the platform's
// admin prefix.
func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/roles", g.handleListRoles).Methods(http.MethodGet)
	r.HandleFunc("/roles", g.handleCreateRole).Methods(http.MethodPost)
	r.HandleFunc("/roles/{id:[0-9]+}", g.handleUpdateRole).Methods(http.MethodPut)
	r.HandleFunc("/roles/{id:[0-9]+}", g.handleDeleteRole).Methods(http.MethodDelete)

	r.HandleFunc("/permissions", g.handleListPermissions).Methods(http.MethodGet)
	r.HandleFunc("/permissions", g.handleCreatePermission).Methods(http.MethodPost)
	r.HandleFunc("/permissions/{id:[0-9]+}", g.handleUpdatePermission).Methods(http.MethodPut)
	r.HandleFunc("/permissions/{id:[0-9]+}", g.handleDeletePermission).Methods(http.MethodDelete)

	r.HandleFunc("/role_permissions", g.handleGetRolePermissions).Methods(http.MethodGet)
	r.HandleFunc("/role_permissions", g.handleSetRolePermissions).Methods(http.MethodPut)

	r.HandleFunc("/resource_permissions", g.handleListResourcePermissions).Methods(http.MethodGet)
	r.HandleFunc("/resource_permissions", g.handleBulkUpdateResourcePermissions).Methods(http.MethodPut)
	r.HandleFunc("/resource_permissions", g.handleCreateResourcePermission).Methods(http.MethodPost)
	r.HandleFunc("/resource_permissions/{id:[0-9]+}", g.handleGetResourcePermission).Methods(http.MethodGet)
	r.HandleFunc("/resource_permissions/{id:[0-9]+}", g.handleUpdateResourcePermission).Methods(http.MethodPut)
	r.HandleFunc("/resource_permissions/{id:[0-9]+}", g.handleDeleteResourcePermission).Methods(http.MethodDelete)

	return r
}

// ============================================================================
// PAYLOADS
// ============================================================================

// response is the JSON envelope every gateway reply uses.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type rolePayload struct {
	ID          int64  `json:"id,omitempty"`
	TenantID    int64  `json:"tenant_id"`
	KeyName     string `json:"key_name"`
	DisplayName string `json:"display_name"`
}

func roleToPayload(role *Role) rolePayload {
	return rolePayload{
		ID:          role.ID,
		TenantID:    TenantToAPI(role.TenantID),
		KeyName:     role.KeyName,
		DisplayName: role.DisplayName,
	}
}

type permissionPayload struct {
	ID          int64  `json:"id,omitempty"`
	TenantID    int64  `json:"tenant_id"`
	KeyName     string `json:"key_name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

func permissionToPayload(perm *Permission) permissionPayload {
	return permissionPayload{
		ID:          perm.ID,
		TenantID:    TenantToAPI(perm.TenantID),
		KeyName:     perm.KeyName,
		DisplayName: perm.DisplayName,
		Description: perm.Description,
	}
}

type rolePermissionsPayload struct {
	RoleID        int64   `json:"role_id"`
	TenantID      int64   `json:"tenant_id"`
	PermissionIDs []int64 `json:"permission_ids"`
}

// resourcePermissionPayload carries role_id as a JSON-nullable field: null
// means the row applies to every role. tenant_id keeps the 0-means-global
// convention of the rest of the API.
type resourcePermissionPayload struct {
	ID           int64  `json:"id,omitempty"`
	TenantID     int64  `json:"tenant_id"`
	RoleID       *int64 `json:"role_id"`
	ResourceType string `json:"resource_type"`
	PermissionID int64  `json:"permission_id"`
	ResourceFlags
}

func resourcePermissionToPayload(row *ResourcePermission) resourcePermissionPayload {
	return resourcePermissionPayload{
		ID:            row.ID,
		TenantID:      TenantToAPI(row.TenantID),
		RoleID:        row.RoleID,
		ResourceType:  row.ResourceType,
		PermissionID:  row.PermissionID,
		ResourceFlags: row.ResourceFlags,
	}
}

func (p *resourcePermissionPayload) toModel() *ResourcePermission {
	return &ResourcePermission{
		ID:            p.ID,
		TenantID:      TenantFromAPI(p.TenantID),
		RoleID:        p.RoleID,
		ResourceType:  p.ResourceType,
		PermissionID:  p.PermissionID,
		ResourceFlags: p.ResourceFlags,
	}
}

func (p *resourcePermissionPayload) toUpdate() ResourcePermissionUpdate {
	return ResourcePermissionUpdate{
		ID:           p.ID,
		TenantID:     TenantFromAPI(p.TenantID),
		RoleID:       p.RoleID,
		ResourceType: p.ResourceType,
		PermissionID: p.PermissionID,
		Flags:        p.ResourceFlags,
	}
}

type bulkUpdatePayload struct {
	Updates []resourcePermissionPayload `json:"updates"`
}

// ============================================================================
// HANDLERS
// ============================================================================

func (g *Gateway) handleListRoles(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	filter := NewRoleFilter().WithTenant(tenantFromQuery(r))
	if search := r.URL.Query().Get("search"); search != "" {
		filter = filter.WithSearch(search)
	}
	roles, err := g.svc.ListRoles(ctx, filter)
	if err != nil {
		g.respondError(w, r, err)
		return
	}
	payload := make([]rolePayload, len(roles))
	for i := range roles {
		payload[i] = roleToPayload(&roles[i])
	}
	g.respond(w, r, http.StatusOK, payload)
}

func (g *Gateway) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	var payload rolePayload
	if !g.decode(w, r, &payload) {
		return
	}
	role := &Role{
		TenantID:    TenantFromAPI(payload.TenantID),
		KeyName:     payload.KeyName,
		DisplayName: payload.DisplayName,
	}
	if err := g.svc.CreateRole(ctx, role); err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusCreated, roleToPayload(role))
}

func (g *Gateway) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	var payload rolePayload
	if !g.decode(w, r, &payload) {
		return
	}
	role := &Role{
		ID:          pathID(r),
		KeyName:     payload.KeyName,
		DisplayName: payload.DisplayName,
	}
	if err := g.svc.UpdateRole(ctx, role); err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusOK, roleToPayload(role))
}

func (g *Gateway) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	if err := g.svc.DeleteRole(ctx, pathID(r)); err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusOK, nil)
}

func (g *Gateway) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	filter := NewPermissionFilter().WithTenant(tenantFromQuery(r))
	if search := r.URL.Query().Get("search"); search != "" {
		filter = filter.WithSearch(search)
	}
	perms, err := g.svc.ListPermissions(ctx, filter)
	if err != nil {
		g.respondError(w, r, err)
		return
	}
	payload := make([]permissionPayload, len(perms))
	for i := range perms {
		payload[i] = permissionToPayload(&perms[i])
	}
	g.respond(w, r, http.StatusOK, payload)
}

func (g *Gateway) handleCreatePermission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	var payload permissionPayload
	if !g.decode(w, r, &payload) {
		return
	}
	perm := &Permission{
		TenantID:    TenantFromAPI(payload.TenantID),
		KeyName:     payload.KeyName,
		DisplayName: payload.DisplayName,
		Description: payload.Description,
	}
	if err := g.svc.CreatePermission(ctx, perm); err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusCreated, permissionToPayload(perm))
}

func (g *Gateway) handleUpdatePermission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	var payload permissionPayload
	if !g.decode(w, r, &payload) {
		return
	}
	perm := &Permission{
		ID:          pathID(r),
		KeyName:     payload.KeyName,
		DisplayName: payload.DisplayName,
		Description: payload.Description,
	}
	if err := g.svc.UpdatePermission(ctx, perm); err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusOK, permissionToPayload(perm))
}

func (g *Gateway) handleDeletePermission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	if err := g.svc.DeletePermission(ctx, pathID(r)); err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusOK, nil)
}

func (g *Gateway) handleGetRolePermissions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	roleID, err := strconv.ParseInt(r.URL.Query().Get("role_id"), 10, 64)
	if err != nil || roleID <= 0 {
		g.respondError(w, r, NewError(ErrValidation, "role_id query parameter is required").WithField("role_id"))
		return
	}
	tenantID := tenantFromQuery(r)

	rows, err := g.svc.GetRolePermissions(ctx, roleID, tenantID)
	if err != nil {
		g.respondError(w, r, err)
		return
	}
	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].PermissionID
	}
	g.respond(w, r, http.StatusOK, rolePermissionsPayload{
		RoleID:        roleID,
		TenantID:      TenantToAPI(tenantID),
		PermissionIDs: ids,
	})
}

func (g *Gateway) handleSetRolePermissions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	var payload rolePermissionsPayload
	if !g.decode(w, r, &payload) {
		return
	}
	if payload.RoleID <= 0 {
		g.respondError(w, r, NewError(ErrValidation, "role_id is required").WithField("role_id"))
		return
	}
	if err := g.svc.SetRolePermissions(ctx, payload.RoleID, TenantFromAPI(payload.TenantID), payload.PermissionIDs); err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusOK, payload)
}

func (g *Gateway) handleListResourcePermissions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	filter := NewResourcePermissionFilter().WithTenant(tenantFromQuery(r))
	if roleID, err := strconv.ParseInt(r.URL.Query().Get("role_id"), 10, 64); err == nil && roleID > 0 {
		filter = filter.WithRole(&roleID)
	}
	if resourceType := r.URL.Query().Get("resource_type"); resourceType != "" {
		filter = filter.WithResourceType(resourceType)
	}
	rows, err := g.svc.ListResourcePermissions(ctx, filter)
	if err != nil {
		g.respondError(w, r, err)
		return
	}
	payload := make([]resourcePermissionPayload, len(rows))
	for i := range rows {
		payload[i] = resourcePermissionToPayload(&rows[i])
	}
	g.respond(w, r, http.StatusOK, payload)
}

func (g *Gateway) handleGetResourcePermission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	row, err := g.svc.GetResourcePermission(ctx, pathID(r))
	if err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusOK, resourcePermissionToPayload(row))
}

func (g *Gateway) handleCreateResourcePermission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	var payload resourcePermissionPayload
	if !g.decode(w, r, &payload) {
		return
	}
	row := payload.toModel()
	row.ID = 0
	if err := g.svc.CreateResourcePermission(ctx, row); err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusCreated, resourcePermissionToPayload(row))
}

func (g *Gateway) handleUpdateResourcePermission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	var payload resourcePermissionPayload
	if !g.decode(w, r, &payload) {
		return
	}
	row := payload.toModel()
	row.ID = pathID(r)
	if err := g.svc.UpdateResourcePermission(ctx, row); err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusOK, resourcePermissionToPayload(row))
}

func (g *Gateway) handleDeleteResourcePermission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	if err := g.svc.DeleteResourcePermission(ctx, pathID(r)); err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusOK, nil)
}

func (g *Gateway) handleBulkUpdateResourcePermissions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := g.requestContext(r)
	defer cancel()

	var payload bulkUpdatePayload
	if !g.decode(w, r, &payload) {
		return
	}
	items := make([]ResourcePermissionUpdate, len(payload.Updates))
	for i := range payload.Updates {
		items[i] = payload.Updates[i].toUpdate()
	}
	result, err := g.svc.BulkUpdateResourcePermissions(ctx, items)
	if err != nil {
		g.respondError(w, r, err)
		return
	}
	g.respond(w, r, http.StatusOK, result)
}

// ============================================================================
// INTERNAL
// ============================================================================

func (g *Gateway) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), g.timeout)
}

// tenantFromQuery reads ?tenant_id= with the 0-means-global convention.
// A missing or unparseable parameter is the global scope.
func tenantFromQuery(r *http.Request) *int64 {
	id, err := strconv.ParseInt(r.URL.Query().Get("tenant_id"), 10, 64)
	if err != nil {
		return nil
	}
	return TenantFromAPI(id)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// decode parses a JSON body, answering 422 on malformed input.
func (g *Gateway) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		g.respondError(w, r, NewError(ErrValidation, "malformed JSON body: "+err.Error()))
		return false
	}
	return true
}

func (g *Gateway) respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Success: true, Data: data})

	g.log.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	}).Info("admin request")
}

func (g *Gateway) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case IsValidation(err):
		status = http.StatusUnprocessableEntity
	case IsNotFound(err):
		status = http.StatusNotFound
	case IsConflict(err):
		status = http.StatusConflict
	case IsStoreUnavailable(err):
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Success: false, Message: err.Error()})

	g.log.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	}).WithError(err).Warn("admin request failed")
}
