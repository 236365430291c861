// Package apperr defines the caller-facing error taxonomy.
//
// Errors wrap the github.com/containerd/errdefs sentinels so callers can
// classify with errors.Is while handlers translate to HTTP status codes
// through Kind/Status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/containerd/errdefs"
)

// Kind is the machine-readable error class surfaced to API clients.
type Kind string

const (
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation_error"
	KindInvalidTransition Kind = "invalid_transition"
	KindKillSwitchActive  Kind = "kill_switch_active"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

// Unauthorized reports a request with no authenticated identity.
func Unauthorized(msg string) error {
	return fmt.Errorf("%s: %w", msg, errdefs.ErrUnauthenticated)
}

// Forbidden reports an authenticated identity that lacks privilege.
func Forbidden(msg string) error {
	return fmt.Errorf("%s: %w", msg, errdefs.ErrPermissionDenied)
}

// NotFoundf reports an absent resource. Resources owned by a different
// user also surface through this constructor so that cross-user access
// is indistinguishable from non-existence.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, errdefs.ErrNotFound)...)
}

// FieldError is a validation failure carrying the offending field name.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func (e *FieldError) Unwrap() error {
	return errdefs.ErrInvalidArgument
}

// Validation reports malformed input on a named field.
func Validation(field, msg string) error {
	return &FieldError{Field: field, Msg: msg}
}

// InvalidTransition reports an illegal state-machine edge.
func InvalidTransition(from, to string) error {
	return fmt.Errorf("invalid transition from %q to %q: %w", from, to, errdefs.ErrFailedPrecondition)
}

// KillSwitchActive reports a mutative operation attempted while the
// global kill switch is engaged.
func KillSwitchActive() error {
	return fmt.Errorf("kill switch is active, mutations are disabled: %w", errdefs.ErrUnavailable)
}

// Conflict reports a concurrent-update race the caller may retry.
func Conflict(msg string) error {
	return fmt.Errorf("%s: %w", msg, errdefs.ErrConflict)
}

// Internal wraps an unexpected fault. The original error is preserved
// for logging; clients only ever see the generic kind.
func Internal(err error) error {
	return fmt.Errorf("%w: %w", errdefs.ErrInternal, err)
}

// KindOf classifies err into the taxonomy. Unclassified errors are
// internal faults.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errdefs.ErrUnauthenticated):
		return KindUnauthorized
	case errors.Is(err, errdefs.ErrPermissionDenied):
		return KindForbidden
	case errors.Is(err, errdefs.ErrNotFound):
		return KindNotFound
	case errors.Is(err, errdefs.ErrInvalidArgument):
		return KindValidation
	case errors.Is(err, errdefs.ErrFailedPrecondition):
		return KindInvalidTransition
	case errors.Is(err, errdefs.ErrUnavailable):
		return KindKillSwitchActive
	case errors.Is(err, errdefs.ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// Status maps an error kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidTransition, KindConflict:
		return http.StatusConflict
	case KindKillSwitchActive:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound reports whether err classifies as a missing resource.
func IsNotFound(err error) bool {
	return errdefs.IsNotFound(err)
}
