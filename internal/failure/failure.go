// Package failure defines the error taxonomy shared by the store, the ledger,
// the reconciler, the HTTP layer and the API client.
//
// Every error that crosses a package boundary and needs to be classified
// (for an HTTP status, an exit code or a user message) is a *Error carrying
// a Code. Lower layers keep wrapping with fmt.Errorf("...: %w", err); the
// classification survives because the helpers below use errors.As.
package failure

import (
	"errors"
	"fmt"
)

// Code categorizes failures.
type Code string

const (
	// CodeValidation indicates caller input violated a contract.
	// Field names the offending input.
	CodeValidation Code = "VALIDATION"

	// CodeStorage indicates a query or write against the store failed.
	CodeStorage Code = "STORAGE"

	// CodeNetwork indicates the client could not reach the server.
	CodeNetwork Code = "NETWORK"

	// CodePartialSeed indicates one reference row could not be reconciled.
	// The batch continues.
	CodePartialSeed Code = "PARTIAL_SEED"

	// CodeNotFound indicates a well-formed identifier matched no record.
	CodeNotFound Code = "NOT_FOUND"
)

// Error is a classified failure.
type Error struct {
	// Code identifies the failure category.
	Code Code

	// Field names the violated input for validation failures.
	Field string

	// Message is safe to show to a caller.
	Message string

	// Err is the underlying cause, if any. Never shown to callers.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates a validation failure for field.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: message}
}

// Storage wraps a store failure. The message is generic on purpose: the
// cause is logged, not returned to callers.
func Storage(message string, err error) *Error {
	return &Error{Code: CodeStorage, Message: message, Err: err}
}

// Network wraps a transport failure seen by the client.
func Network(message string, err error) *Error {
	return &Error{Code: CodeNetwork, Message: message, Err: err}
}

// PartialSeed records a single reference row that was skipped.
func PartialSeed(message string, err error) *Error {
	return &Error{Code: CodePartialSeed, Message: message, Err: err}
}

// NotFound creates a not-found failure.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsStorage reports whether err is a storage failure.
func IsStorage(err error) bool { return CodeOf(err) == CodeStorage }

// IsNetwork reports whether err is a network failure.
func IsNetwork(err error) bool { return CodeOf(err) == CodeNetwork }

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsPartialSeed reports whether err is a skipped reference row.
func IsPartialSeed(err error) bool { return CodeOf(err) == CodePartialSeed }
