// Package apperr carries the error taxonomy shared by services and the HTTP
// layer: validation failures, state conflicts, missing records, authorization
// failures, and store errors (of which lock-wait exhaustion is the retryable
// case). Every mutation failure rolls back its whole transaction before one
// of these surfaces.
package apperr

import (
	"errors"
	"fmt"
)

// Code is the wire-level error code returned to clients
type Code string

const (
	CodeValidation    Code = "BAD_REQUEST"
	CodeStateConflict Code = "INVALID_STATE"
	CodeNotFound      Code = "NOTFOUND"
	CodeForbidden     Code = "FORBIDDEN"
	CodeStore         Code = "DB_ERROR"
	CodeBusy          Code = "DB_BUSY"
)

// Error is a classified application error
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation rejects a malformed payload before any mutation
func Validation(format string, args ...interface{}) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// StateConflict rejects a transition whose precondition status does not hold
func StateConflict(format string, args ...interface{}) *Error {
	return &Error{Code: CodeStateConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFound marks a missing request, item, or decision
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbidden marks an actor lacking the relationship or capability a
// transition requires
func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// Store wraps a transaction failure; the transaction has been rolled back
func Store(err error, message string) *Error {
	return &Error{Code: CodeStore, Message: message, Err: err}
}

// Busy wraps lock-wait exhaustion; callers may retry the whole operation
func Busy(err error) *Error {
	return &Error{Code: CodeBusy, Message: "store busy, retry the operation", Err: err}
}

// CodeOf extracts the taxonomy code from an error chain, defaulting to a
// store error for unclassified failures
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeStore
}

// IsRetryable reports whether the caller may retry the operation as-is
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeBusy
}
