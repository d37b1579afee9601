package types

import (
	"errors"
	"fmt"
)

// Code is the machine-readable class of an error.
type Code string

// Error codes shared by the store, the bridge protocol and the MCP server.
const (
	CodeValidation Code = "VALIDATION"
	CodeConflict   Code = "CONFLICT"
	CodeInternal   Code = "INTERNAL"
)

// Sentinel causes reachable through errors.Is
var (
	ErrNotFound = errors.New("not found")
	ErrStale    = errors.New("stale write")
)

// Error is a coded domain error. Message is what callers see; Err is the
// optional underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates a VALIDATION error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a VALIDATION error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a VALIDATION error for a missing entity, e.g. NotFound("note").
func NotFound(what string) *Error {
	return &Error{Code: CodeValidation, Message: what + " not found", Err: ErrNotFound}
}

// Conflict creates a CONFLICT error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg, Err: ErrStale}
}

// Internal wraps an engine or filesystem failure.
func Internal(err error) *Error {
	var te *Error
	if errors.As(err, &te) && te.Code == CodeInternal {
		return te
	}
	return &Error{Code: CodeInternal, Message: err.Error(), Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeInternal
}

// IsValidation reports whether err carries CodeValidation.
func IsValidation(err error) bool {
	return err != nil && CodeOf(err) == CodeValidation
}

// IsConflict reports whether err carries CodeConflict.
func IsConflict(err error) bool {
	return err != nil && CodeOf(err) == CodeConflict
}
