package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Planning-stage error codes. These abort a command before any dispatch.
const (
	ErrClassificationAmbiguous ErrorCode = "CLASSIFICATION_AMBIGUOUS"
	ErrIncompleteIntent        ErrorCode = "INCOMPLETE_INTENT"
	ErrUnknownCapability       ErrorCode = "UNKNOWN_CAPABILITY"
	ErrCyclicDependency        ErrorCode = "CYCLIC_DEPENDENCY"
	ErrMissingParameter        ErrorCode = "MISSING_PARAMETER"
)

// Dispatch-stage error codes. These are recovered locally and downgrade
// the affected branch instead of aborting the command.
const (
	ErrCapabilityInvocationFailed ErrorCode = "CAPABILITY_INVOCATION_FAILED"
	ErrStepTimedOut               ErrorCode = "STEP_TIMED_OUT"
	ErrStepSkipped                ErrorCode = "STEP_SKIPPED_DUE_TO_DEPENDENCY"
	ErrCommandCancelled           ErrorCode = "COMMAND_CANCELLED"
)

// Registry and collaborator error codes.
const (
	ErrCapabilityExists  ErrorCode = "CAPABILITY_EXISTS"
	ErrInvalidSchema     ErrorCode = "INVALID_SCHEMA"
	ErrInvalidParameter  ErrorCode = "INVALID_PARAMETER"
	ErrCollaboratorError ErrorCode = "COLLABORATOR_ERROR"
	ErrRateLimited       ErrorCode = "RATE_LIMITED"
	ErrInternalError     ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Capability string    `json:"capability,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Sanitized returns a caller-safe rendering of the error: code plus
// message, without the cause chain. Collaborator payloads live in the
// cause and therefore never reach user-visible summaries.
func (e *Error) Sanitized() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithCapability tags the error with the capability it arose from.
func (e *Error) WithCapability(name string) *Error {
	e.Capability = name
	return e
}

// AsError extracts a *Error from an error chain, or wraps a plain error
// as an internal error so callers always see a structured code.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(ErrInternalError, "internal error").WithCause(err)
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
