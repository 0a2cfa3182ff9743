package graphauth

import (
	"errors"
	"fmt"
)

// ErrorCategory categorizes authentication errors for handling and reporting.
type ErrorCategory string

const (
	// ErrCategoryUnknownCloud indicates an unsupported cloud identifier.
	// Fatal: there is no fallback to the commercial cloud.
	ErrCategoryUnknownCloud ErrorCategory = "unknown_cloud"
	// ErrCategoryInvalidToken indicates a nil or expired caller-supplied token.
	ErrCategoryInvalidToken ErrorCategory = "invalid_token"
	// ErrCategoryAuthFailed indicates the identity service returned no usable token.
	ErrCategoryAuthFailed ErrorCategory = "auth_failed"
	// ErrCategoryNotConnected indicates a token was requested before any
	// successful connect.
	ErrCategoryNotConnected ErrorCategory = "not_connected"
	// ErrCategoryValidation indicates invalid input or configuration.
	ErrCategoryValidation ErrorCategory = "validation"
	// ErrCategoryInternal indicates an internal error.
	ErrCategoryInternal ErrorCategory = "internal"
)

// AuthError is a structured error with category and context.
type AuthError struct {
	// Category classifies the error type.
	Category ErrorCategory

	// Message is a human-readable error message.
	Message string

	// Cloud is the cloud the failing operation targeted, if known.
	Cloud Cloud

	// Operation is the operation that failed.
	Operation string

	// Cause is the underlying error.
	Cause error

	// Details contains additional error context.
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Category, e.Message)
	if e.Cloud != "" {
		msg = fmt.Sprintf("[%s:%s] %s", e.Cloud, e.Category, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error's category.
func (e *AuthError) Is(target error) bool {
	var aErr *AuthError
	if errors.As(target, &aErr) {
		return e.Category == aErr.Category
	}
	return false
}

// NewError creates a new AuthError.
func NewError(category ErrorCategory, message string) *AuthError {
	return &AuthError{
		Category: category,
		Message:  message,
		Details:  make(map[string]interface{}),
	}
}

// WithCloud sets the cloud.
func (e *AuthError) WithCloud(c Cloud) *AuthError {
	e.Cloud = c
	return e
}

// WithOperation sets the operation.
func (e *AuthError) WithOperation(op string) *AuthError {
	e.Operation = op
	return e
}

// WithCause sets the underlying error.
func (e *AuthError) WithCause(err error) *AuthError {
	e.Cause = err
	return e
}

// WithDetail adds a detail to the error.
func (e *AuthError) WithDetail(key string, value interface{}) *AuthError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common error types

// ErrUnknownCloud creates an unknown-cloud error.
func ErrUnknownCloud(c Cloud) *AuthError {
	return NewError(ErrCategoryUnknownCloud, fmt.Sprintf("unsupported cloud: %s", c)).WithCloud(c)
}

// ErrInvalidToken creates an invalid external token error.
func ErrInvalidToken(message string) *AuthError {
	return NewError(ErrCategoryInvalidToken, message)
}

// ErrAuthFailed creates an authentication-failed error.
func ErrAuthFailed(message string) *AuthError {
	return NewError(ErrCategoryAuthFailed, message)
}

// ErrNotConnected creates a not-connected error.
func ErrNotConnected() *AuthError {
	return NewError(ErrCategoryNotConnected, "not connected: no token has been acquired in this session")
}

// ErrValidation creates a validation error.
func ErrValidation(message string) *AuthError {
	return NewError(ErrCategoryValidation, message)
}

// ErrInternal creates an internal error.
func ErrInternal(message string) *AuthError {
	return NewError(ErrCategoryInternal, message)
}

// IsCategory checks if an error is of a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	var aErr *AuthError
	if errors.As(err, &aErr) {
		return aErr.Category == category
	}
	return false
}
