package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the conversation runtime.
type ErrorCode string

// Configuration error codes. These are fatal at startup.
const (
	ErrConfigInvalid   ErrorCode = "CONFIG_INVALID"
	ErrUnknownEndpoint ErrorCode = "UNKNOWN_ENDPOINT"
)

// Topology and permission error codes. Recoverable: the action is skipped.
const (
	ErrUnknownAgent      ErrorCode = "UNKNOWN_AGENT"
	ErrUnknownChannel    ErrorCode = "UNKNOWN_CHANNEL"
	ErrInvalidPermission ErrorCode = "INVALID_PERMISSION"
	ErrAlreadyMember     ErrorCode = "ALREADY_MEMBER"
	ErrNotMember         ErrorCode = "NOT_MEMBER"
	ErrPermissionDenied  ErrorCode = "PERMISSION_DENIED"
	ErrInvalidCommand    ErrorCode = "INVALID_COMMAND"
)

// Parse error codes. Recoverable: the turn is abandoned.
const (
	ErrNoSendPermission ErrorCode = "NO_SEND_PERMISSION"
)

// Completion transport error codes. Recoverable at the turn level.
const (
	ErrConnection ErrorCode = "CONNECTION_ERROR"
	ErrResponse   ErrorCode = "RESPONSE_ERROR"
)

// Persistence error codes. Reported, never abort the loop.
const (
	ErrSnapshotFailed ErrorCode = "SNAPSHOT_FAILED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Agent     string    `json:"agent,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Cause     error     `json:"-"`
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

// WithAgent records the agent the error concerns.
func (e *Error) WithAgent(agent string) *Error {
	e.Agent = agent
	return e
}

// WithEndpoint records the completion endpoint the error came from.
func (e *Error) WithEndpoint(endpoint string) *Error {
	e.Endpoint = endpoint
	return e
}

// AsError extracts an *Error from the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return err != nil && GetErrorCode(err) == code
}
