// Package errs provides the unified error type used across all of dbdeck.
//
// Every engine driver (MySQL, PostgreSQL, SQLite, MongoDB) and every supporting
// subsystem (session, profiles, export sinks) wraps its native errors into
// *errs.Error before returning them. Callers use the Is* predicates to react
// to a failure without importing driver-specific packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindQueryFailed, "MySQL query failed", myErr)
//
//	// In a handler, check the error kind:
//	if errs.IsNotConnected(err) {
//	    http.Error(w, "connect first", http.StatusConflict)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing engine-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindConnectionFailed         // cannot reach, authenticate to, or open the engine
	ErrKindNotConnected             // operation attempted with no active connection
	ErrKindQueryFailed              // engine rejected or failed a query
	ErrKindSchemaFailed             // a catalog query failed during introspection
	ErrKindInvalidConfig            // missing or malformed configuration field
	ErrKindTimeout                  // caller context cancelled or deadline exceeded
	ErrKindNotFound                 // unknown profile, missing export object
	ErrKindPermissionDenied         // object storage access denied
	ErrKindUnsupported              // operation has no meaning for the engine
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindNotConnected:
		return "not_connected"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindSchemaFailed:
		return "schema_failed"
	case ErrKindInvalidConfig:
		return "invalid_config"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all dbdeck subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original engine-level error, its text is kept verbatim
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// NotConnected is returned by every session operation issued before a
// successful connect.
func NotConnected() *Error {
	return New(ErrKindNotConnected, "database not connected")
}

// --- Predicates ---

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsNotConnected reports whether err was raised because no connection is active.
func IsNotConnected(err error) bool {
	return KindOf(err) == ErrKindNotConnected
}

// IsQueryFailed reports whether err is a query execution failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsSchemaFailed reports whether err is a schema retrieval failure.
func IsSchemaFailed(err error) bool {
	return KindOf(err) == ErrKindSchemaFailed
}

// IsInvalidConfig reports whether err was caused by bad configuration from the caller.
func IsInvalidConfig(err error) bool {
	return KindOf(err) == ErrKindInvalidConfig
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsNotFound reports whether err represents a missing profile or object.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsUnsupported reports whether err marks an operation the engine cannot serve.
func IsUnsupported(err error) bool {
	return KindOf(err) == ErrKindUnsupported
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
