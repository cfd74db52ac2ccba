package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes backend execution failures. The dispatcher
// pattern-matches on the kind when deciding whether to fall back, so
// the fallback policy stays visible as data rather than hidden in
// exception-style control flow.
type ErrorKind string

const (
	ErrKindNotFound      ErrorKind = "NOT_FOUND"
	ErrKindTimeout       ErrorKind = "TIMEOUT"
	ErrKindInvalidFormat ErrorKind = "INVALID_FORMAT"
	ErrKindBackendFault  ErrorKind = "BACKEND_FAULT"
)

// ExecutionError is the failure type raised by an execution backend.
type ExecutionError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewExecutionError creates an ExecutionError with a formatted message.
func NewExecutionError(kind ErrorKind, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsExecutionError unwraps err into an *ExecutionError. Unknown errors
// are wrapped as BackendFault so the dispatcher always has a kind to
// match on.
func AsExecutionError(err error) *ExecutionError {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr
	}
	return &ExecutionError{Kind: ErrKindBackendFault, Message: err.Error()}
}

// ValidationError reports malformed or oversized input, detected
// before any I/O is spent on it.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// FirstLine returns the first line of an error message, used when
// embedding a failure cause inside a degraded result's narrative.
func FirstLine(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	return strings.TrimSpace(msg)
}
