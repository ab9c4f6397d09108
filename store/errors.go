package store

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the storage layer can produce. The set is
// closed: each internal failure path constructs one of these explicitly, and
// handler mapping is a single exhaustive switch.
type Kind int

const (
	// KindValidation is malformed input, caught before any storage access.
	KindValidation Kind = iota

	// KindNotFound is a missing or soft-deleted entity.
	KindNotFound

	// KindConflict is an email collision or idempotency-key reuse with a
	// divergent payload.
	KindConflict

	// KindInternal is any unexpected storage or transport failure.
	KindInternal
)

// Code returns the stable machine-readable code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is the one error type crossing the storage and service boundaries.
type Error struct {
	Kind    Kind
	Message string

	// Details carries field-level context (validation errors, the colliding
	// email, the reused idempotency key). Never populated for KindInternal.
	Details map[string]string

	// cause is the wrapped upstream error, kept for logging only.
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewValidation builds a validation error with field-level details.
func NewValidation(message string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// NewNotFound builds a not-found error.
func NewNotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewConflict builds a conflict error with context details.
func NewConflict(message string, details map[string]string) *Error {
	return &Error{Kind: KindConflict, Message: message, Details: details}
}

// NewInternal wraps an unexpected upstream failure. The message stays generic;
// the cause is retained for logs and never reaches API responses.
func NewInternal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, cause: cause}
}

// KindOf returns the kind of err, or KindInternal for any error that is not a
// *Error. Unclassified failures collapse to the generic internal code.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
