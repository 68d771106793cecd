// Package domainerrors provides coded errors for the subscription engine.
//
// Services return these so transports can map them to a status code and a
// single human-readable message without string matching. Stores do NOT use
// this package; they return sentinel errors (pkg/platform/sentinel) which
// services translate into coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers.
type Code string

const (
	// CodeValidation marks input that fails domain validation rules.
	CodeValidation Code = "validation"
	// CodeInvalidInput marks malformed identifiers or payloads at trust boundaries.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks requests that cannot be decoded or are semantically incomplete.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks a missing rider, bus, or subscription entry.
	CodeNotFound Code = "not_found"
	// CodeConflict marks an operation that lost a write race and should be retried by the caller.
	CodeConflict Code = "conflict"
	// CodeCapacityExceeded marks a subscribe attempt against a full bus.
	CodeCapacityExceeded Code = "capacity_exceeded"
	// CodeInvalidState marks an operation that is illegal for the entry's current state,
	// including an unrecognized subscription type at payment time.
	CodeInvalidState Code = "invalid_state"
	// CodeUnauthorized marks missing or invalid caller credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller without the required privilege.
	CodeForbidden Code = "forbidden"
	// CodeUnavailable marks a store or downstream transport failure.
	CodeUnavailable Code = "unavailable"
	// CodeInvariantViolation marks a broken domain invariant; always a bug.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks unexpected failures with no better classification.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It optionally wraps a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a coded error with a human-readable message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. A nil cause
// returns nil so call sites can wrap unconditionally.
func Wrap(cause error, code Code, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability in conditions.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, or CodeInternal when err is not coded.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}
