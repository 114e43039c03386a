// Package apperr defines the closed error taxonomy used across the service.
//
// Every failure that can surface on the wire is classified into one of a
// fixed set of kinds. Each kind maps to an HTTP status and an operational
// flag: operational errors represent expected business conditions whose
// message is always safe to show a client, while non-operational errors are
// programming or infrastructure faults that must be flattened to a generic
// message in production.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into the service taxonomy.
type Kind int

const (
	// KindInternal covers anything uncategorized. Non-operational.
	KindInternal Kind = iota

	// KindValidation covers malformed or schema-failing input.
	KindValidation

	// KindAuth covers missing, invalid, expired, or stale credentials.
	KindAuth

	// KindForbidden covers authenticated but disallowed access,
	// such as a deactivated account.
	KindForbidden

	// KindNotFound covers unmatched routes and missing resources.
	KindNotFound

	// KindConflict covers unique-constraint violations.
	KindConflict

	// KindDependency covers an unreachable or failed backing service.
	// Non-operational: the real cause is logged, never shown to clients
	// in production.
	KindDependency
)

// Status returns the HTTP status associated with the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Operational reports whether errors of this kind are expected business
// conditions safe to surface to the client verbatim.
func (k Kind) Operational() bool {
	switch k {
	case KindValidation, KindAuth, KindForbidden, KindNotFound, KindConflict:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	default:
		return "internal"
	}
}

// statusTexts is the fixed lookup from HTTP status codes to their
// human-readable status line.
var statusTexts = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	409: "Conflict",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

// StatusText returns the status line for a code, or "unavailable" for codes
// outside the fixed table.
func StatusText(code int) string {
	if text, ok := statusTexts[code]; ok {
		return text
	}
	return "unavailable"
}

// Error is a classified error carrying everything the response renderer
// needs to produce the wire contract.
type Error struct {
	Kind    Kind
	Message string

	// Details optionally carries structured context, such as per-field
	// validation messages or the name of a duplicated column.
	Details map[string]string

	// Err is the wrapped cause, if any. It is logged but never rendered
	// to clients in production.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// Operational reports whether the error is safe to show a client.
func (e *Error) Operational() bool {
	return e.Kind.Operational()
}

// Validation constructs a 400 validation error with per-field details.
func Validation(message string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// Auth constructs a 401 authentication error.
func Auth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

// Forbidden constructs a 403 error.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound constructs a 404 error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict constructs a 409 error with duplicate-field details.
func Conflict(message string, details map[string]string) *Error {
	return &Error{Kind: KindConflict, Message: message, Details: details}
}

// Dependency constructs a 503 error wrapping a backing-service failure.
func Dependency(message string, err error) *Error {
	return &Error{Kind: KindDependency, Message: message, Err: err}
}

// Internal wraps an uncategorized error. The client-facing message is fixed;
// the cause is preserved for server-side logging.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Something went wrong", Err: err}
}

// From classifies an arbitrary error. Classified errors pass through
// unchanged; anything else becomes an internal error.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// KindOf returns the kind of a classified error, or KindInternal for
// unclassified errors.
func KindOf(err error) Kind {
	return From(err).Kind
}

// IsKind reports whether err is classified with the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == kind
}
