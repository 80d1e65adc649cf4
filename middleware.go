package permkit

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// Middleware provides HTTP middleware for permission checking on the
// platform's protected routes.
type Middleware struct {
	service      *Service
	getUser      func(*http.Request) (User, bool)
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := permkit.NewMiddleware(service,
//	    permkit.WithUserExtractor(func(r *http.Request) (permkit.User, bool) {
//	        return sessionUser(r)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getUser:      defaultGetUser,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithUserExtractor sets a custom function to extract the requesting user.
func WithUserExtractor(fn func(*http.Request) (User, bool)) MiddlewareOption {
	return func(m *Middleware) {
		m.getUser = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetUser(r *http.Request) (User, bool) {
	return GetUser(r.Context())
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsUnauthorized(err):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case IsValidation(err):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// RefExtractor resolves the instance context for a resource check from the
// request.
type RefExtractor func(*http.Request) ResourceRef

// NoRef is a RefExtractor for checks that need no instance context
// ("all"-modifier checks, create).
func NoRef() RefExtractor {
	return func(*http.Request) ResourceRef {
		return ResourceRef{}
	}
}

// OwnerFromParam builds a RefExtractor reading the instance owner id from a
// mux route variable.
//
// Example:
//
//	// For route /products/{ownerID}/...
//	mw.RequireResourceAction("products", permkit.ActionEdit, permkit.ModifierOwn, permkit.OwnerFromParam("ownerID"))
func OwnerFromParam(paramName string) RefExtractor {
	return func(r *http.Request) ResourceRef {
		raw := mux.Vars(r)[paramName]
		if raw == "" {
			raw = r.PathValue(paramName)
		}
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return OwnedBy(id)
		}
		return ResourceRef{}
	}
}

// TenantFromHeader builds a RefExtractor reading the instance tenant id from
// a header, with the 0-means-global convention applied.
func TenantFromHeader(headerName string) RefExtractor {
	return func(r *http.Request) ResourceRef {
		if id, err := strconv.ParseInt(r.Header.Get(headerName), 10, 64); err == nil {
			return ResourceRef{TenantID: TenantFromAPI(id)}
		}
		return ResourceRef{}
	}
}

// RequirePermission creates middleware that requires ANY permission of the
// spec.
//
// Example:
//
//	router.Handle("/admin/users",
//	    mw.RequirePermission(permkit.ParsePermSpec("manage_users|manage_tenants"))(usersHandler))
func (m *Middleware) RequirePermission(spec PermSpec) func(http.Handler) http.Handler {
	return m.requireFlat(spec, func(checker *Checker) bool {
		return checker.Can(spec)
	})
}

// RequireAllPermissions creates middleware that requires EVERY permission of
// the spec.
func (m *Middleware) RequireAllPermissions(spec PermSpec) func(http.Handler) http.Handler {
	return m.requireFlat(spec, func(checker *Checker) bool {
		return checker.CanAll(spec)
	})
}

func (m *Middleware) requireFlat(spec PermSpec, allowed func(*Checker) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user, ok := m.getUser(r)
			if !ok {
				m.errorHandler(w, r, ErrNoUser)
				return
			}

			checker, err := m.service.GetChecker(ctx, user)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			if !allowed(checker) {
				m.errorHandler(w, r, NewError(ErrUnauthorized, "missing required permission").
					WithTenant(user.TenantID))
				return
			}

			ctx = WithChecker(ctx, checker)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireResourceAction creates middleware that requires one resource-matrix
// capability, with instance context supplied by the extractor.
//
// Example:
//
//	router.Handle("/products/{ownerID}/archive",
//	    mw.RequireResourceAction("products", permkit.ActionEdit, permkit.ModifierOwn,
//	        permkit.OwnerFromParam("ownerID"))(archiveHandler))
func (m *Middleware) RequireResourceAction(resourceType string, action Action, modifier Modifier, extractor RefExtractor) func(http.Handler) http.Handler {
	if extractor == nil {
		extractor = NoRef()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user, ok := m.getUser(r)
			if !ok {
				m.errorHandler(w, r, ErrNoUser)
				return
			}

			if !m.service.CanOnResource(ctx, user, resourceType, action, modifier, extractor(r)) {
				m.errorHandler(w, r, NewError(ErrUnauthorized, "missing resource capability").
					WithTenant(user.TenantID))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoadChecker creates middleware that loads the user's Checker into context.
// Use this when you want to do permission checks in the handler rather than
// in middleware.
//
// Example:
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    checker := permkit.FromContext(r.Context())
//	    if checker != nil && checker.Can(permkit.PermSpecOf("manage_orders")) {
//	        // Show order administration
//	    }
//	}
func (m *Middleware) LoadChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user, ok := m.getUser(r)
			if !ok {
				// No user, continue without checker
				next.ServeHTTP(w, r)
				return
			}

			checker, err := m.service.GetChecker(ctx, user)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithChecker(ctx, checker)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from
// the request and adds it to the context for use in admin mutations.
//
// Example:
//
//	router.Use(mw.InjectAuditContext())
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)
			ctx = WithUserAgent(ctx, r.UserAgent())

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			if user, ok := m.getUser(r); ok {
				ctx = WithUser(ctx, user)
				ctx = WithActorID(ctx, user.ID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
