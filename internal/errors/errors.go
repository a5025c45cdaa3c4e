package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeConfigLoad indicates the remote configuration document could not be fetched or parsed.
	// Fatal to startup.
	ErrCodeConfigLoad ErrorCode = "config_load"
	// ErrCodeAuthProtocol indicates an error surfaced by the OIDC client (discovery, code exchange, nonce).
	ErrCodeAuthProtocol ErrorCode = "auth_protocol"
	// ErrCodeAuthentication indicates a 401 response on a non-issuer request.
	ErrCodeAuthentication ErrorCode = "authentication"
	// ErrCodeAuthorization indicates a 404 response on a non-issuer request.
	ErrCodeAuthorization ErrorCode = "authorization"
	// ErrCodeRefresh indicates a silent token renewal was rejected.
	ErrCodeRefresh ErrorCode = "refresh"
	// ErrCodeDisabled indicates the operation was skipped because auth is disabled.
	ErrCodeDisabled ErrorCode = "disabled"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError without a cause.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// AuthProtocolf creates a new AuthProtocol error with formatted message.
func AuthProtocolf(format string, args ...any) *AppError {
	return Newf(ErrCodeAuthProtocol, format, args...)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Coder is implemented by errors that carry an ErrorCode without being an AppError.
type Coder interface {
	ErrorCode() ErrorCode
}

// ErrorCode returns e.Code.
func (e *AppError) ErrorCode() ErrorCode { return e.Code }

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsConfigLoad checks if an error is a ConfigLoad error.
func IsConfigLoad(err error) bool {
	return isCode(err, ErrCodeConfigLoad)
}

// IsAuthProtocol checks if an error is an AuthProtocol error.
func IsAuthProtocol(err error) bool {
	return isCode(err, ErrCodeAuthProtocol)
}

// IsAuthentication checks if an error is an Authentication error.
func IsAuthentication(err error) bool {
	return isCode(err, ErrCodeAuthentication)
}

// IsAuthorization checks if an error is an Authorization error.
func IsAuthorization(err error) bool {
	return isCode(err, ErrCodeAuthorization)
}

// IsRefresh checks if an error is a Refresh error.
func IsRefresh(err error) bool {
	return isCode(err, ErrCodeRefresh)
}

// IsDisabled checks if an error is a Disabled error.
func IsDisabled(err error) bool {
	return isCode(err, ErrCodeDisabled)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// GetCode returns the ErrorCode of the first Coder in the chain, or empty string.
func GetCode(err error) ErrorCode {
	var c Coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}
