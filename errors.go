package permkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for PermKit operations.
var (
	// ErrValidation is returned when input fails validation (unknown resource
	// type, missing key name, unknown permission id, malformed payload).
	ErrValidation = errors.New("permkit: validation failed")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("permkit: not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("permkit: conflict")

	// ErrBulkInFlight is returned when a bulk update is rejected because
	// another bulk update for an overlapping scope is still running.
	// It matches ErrConflict under errors.Is.
	ErrBulkInFlight = fmt.Errorf("%w: bulk update already in flight", ErrConflict)

	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached or times out. Retrying later may succeed.
	ErrStoreUnavailable = errors.New("permkit: store unavailable")

	// ErrDatabase is returned for non-transient database failures.
	ErrDatabase = errors.New("permkit: database error")

	// ErrUnauthorized is returned by the middleware when a check denies.
	ErrUnauthorized = errors.New("permkit: unauthorized")

	// ErrNoUser is returned when no user is found in the request context.
	ErrNoUser = errors.New("permkit: no user in context")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	Field      string // Offending input field (if applicable)
	EntityKind string // Entity kind involved ("role", "permission", ...)
	EntityID   int64  // Entity id involved (if applicable)
	TenantID   *int64 // Tenant scope involved (nil = global)
	RoleID     *int64 // Role involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithField records the offending input field.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithEntity records the entity kind and id involved.
func (e *Error) WithEntity(kind string, id int64) *Error {
	e.EntityKind = kind
	e.EntityID = id
	return e
}

// WithTenant records the tenant scope involved.
func (e *Error) WithTenant(tenantID *int64) *Error {
	e.TenantID = tenantID
	return e
}

// WithRole records the role involved.
func (e *Error) WithRole(roleID *int64) *Error {
	e.RoleID = roleID
	return e
}

// IsValidation checks if an error is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound checks if an error is a missing-entity error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a uniqueness or concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsBulkInFlight checks if an error is a rejected concurrent bulk update.
func IsBulkInFlight(err error) bool {
	return errors.Is(err, ErrBulkInFlight)
}

// IsStoreUnavailable checks if an error is a transient store failure.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsUnauthorized checks if an error is an authorization denial.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
