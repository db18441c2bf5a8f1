// Package errors provides standardized domain errors with codes for the
// cache layer.
//
// Usage:
//
//	// In store/controller code - return typed errors
//	if author == nil {
//	    return errors.Validation("post author is not cached")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrNotFound) {
//	    ...
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is = errors.Is
	As = errors.As
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the cache.
const (
	// CodeNotFound is a single-entity lookup on a missing id. Always
	// surfaced to the caller, never silently defaulted.
	CodeNotFound Code = "NOT_FOUND"
	// CodeValidation is a rejected payload, e.g. a post whose author is
	// not cached, or an unknown action verb.
	CodeValidation Code = "VALIDATION"
	// CodeStoreInit is a schema creation, open, or forced-recreation
	// failure. Fatal at startup, never retried automatically.
	CodeStoreInit Code = "STORE_INIT"
	// CodeConflict is a write that collides with existing state.
	CodeConflict Code = "CONFLICT"
)

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors for errors.Is matching by code.
var (
	ErrNotFound   = &Error{Code: CodeNotFound, Message: "resource not found"}
	ErrValidation = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrStoreInit  = &Error{Code: CodeStoreInit, Message: "store initialization failed"}
	ErrConflict   = &Error{Code: CodeConflict, Message: "resource conflict"}
)

// NotFound creates a not-found error with a custom message.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error with a custom message.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error carrying per-field details.
func ValidationWithDetails(message string, details any) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

// StoreInit creates a store initialization error wrapping its cause.
func StoreInit(message string, cause error) *Error {
	return &Error{Code: CodeStoreInit, Message: message, cause: cause}
}

// Conflict creates a conflict error with a custom message.
func Conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}
