// Package apperror defines the application's error model. Errors come in two
// disjoint kinds: operational errors (expected, client-facing failures such as
// bad input, auth failures or missing resources, carrying an HTTP status and a
// human message) and unexpected errors (bugs or infrastructure failures, which
// must never leak internals to the client). Handlers never format error
// responses themselves; they hand any error to the Responder, which is the
// single terminal formatter.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType enumerates the error categories the API distinguishes.
type ErrorType int

const (
	// UnknownError is for unclassified errors; treated as unexpected.
	UnknownError ErrorType = iota
	// DatabaseError represents a failure originating from the store.
	DatabaseError
	// ConfigError represents an application configuration problem.
	ConfigError
	// AuthError represents an authentication failure (401).
	AuthError
	// ForbiddenError represents an authorization failure (403): the caller is
	// authenticated but its role does not permit the operation.
	ForbiddenError
	// NotFoundError represents a missing resource (404).
	NotFoundError
	// ValidationError represents rejected input (400).
	ValidationError
	// BadRequestError represents a generic malformed request (400).
	BadRequestError
	// InternalError represents a generic server-side failure (500).
	InternalError
	// EmailError represents a failure to deliver outbound email (500).
	EmailError
	// TooManyRequestsError represents a rate-limited client (429).
	TooManyRequestsError
	// ConflictError represents a uniqueness conflict (409).
	ConflictError
)

// AppError is the application error type. It satisfies the error interface
// and wraps an optional underlying cause for debugging.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error // underlying cause, never shown to clients in production
}

// Error returns the error string, including the cause when present.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error type to its HTTP status code.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case AuthError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case NotFoundError:
		return http.StatusNotFound
	case ValidationError, BadRequestError:
		return http.StatusBadRequest
	case ConflictError:
		return http.StatusConflict
	case TooManyRequestsError:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Status returns the response status text by convention: "fail" for 4xx
// statuses, "error" for everything else.
func (e *AppError) Status() string {
	return StatusText(e.StatusCode())
}

// StatusText implements the envelope status convention for a bare status code.
func StatusText(code int) string {
	if code >= 400 && code < 500 {
		return "fail"
	}
	return "error"
}

// IsOperational reports whether the error is an expected, client-facing
// failure. Database, config and internal errors are programming or infra
// errors: the client only ever sees a generic message for those.
func (e *AppError) IsOperational() bool {
	switch e.Type {
	case DatabaseError, ConfigError, InternalError, UnknownError:
		return false
	default:
		return true
	}
}

// New creates an AppError of an arbitrary type. The specific constructors
// below are preferred where they apply.
func New(errType ErrorType, message string, underlying error) *AppError {
	return &AppError{Type: errType, Message: message, Err: underlying}
}

// NewDatabaseError creates a store-level failure (unexpected, 500).
func NewDatabaseError(message string, underlying error) *AppError {
	return New(DatabaseError, message, underlying)
}

// NewConfigError creates a configuration failure.
func NewConfigError(message string, underlying error) *AppError {
	return New(ConfigError, message, underlying)
}

// NewAuthError creates an authentication failure (401).
func NewAuthError(message string, underlying error) *AppError {
	return New(AuthError, message, underlying)
}

// NewForbiddenError creates an authorization failure (403).
func NewForbiddenError(message string, underlying error) *AppError {
	return New(ForbiddenError, message, underlying)
}

// NewNotFoundError creates a missing-resource failure (404).
func NewNotFoundError(message string, underlying error) *AppError {
	return New(NotFoundError, message, underlying)
}

// NewValidationError creates a rejected-input failure (400).
func NewValidationError(message string, underlying error) *AppError {
	return New(ValidationError, message, underlying)
}

// NewBadRequestError creates a malformed-request failure (400).
func NewBadRequestError(message string, underlying error) *AppError {
	return New(BadRequestError, message, underlying)
}

// NewInternalError creates a generic unexpected failure (500).
func NewInternalError(message string, underlying error) *AppError {
	return New(InternalError, message, underlying)
}

// NewEmailError creates an outbound-email failure (500).
func NewEmailError(message string, underlying error) *AppError {
	return New(EmailError, message, underlying)
}

// NewTooManyRequestsError creates a rate-limit failure (429).
func NewTooManyRequestsError(message string, underlying error) *AppError {
	return New(TooManyRequestsError, message, underlying)
}

// NewConflictError creates a uniqueness-conflict failure (409).
func NewConflictError(message string, underlying error) *AppError {
	return New(ConflictError, message, underlying)
}

// FromError attempts to interpret a generic error as an *AppError.
func FromError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsNotFound checks whether an error anywhere in the chain is a 404.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == NotFoundError
}

// IsAuthError checks for an authentication (401) failure.
func IsAuthError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == AuthError
}

// IsForbidden checks for an authorization (403) failure.
func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ForbiddenError
}

// IsValidationError checks for a rejected-input (400) failure.
func IsValidationError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ValidationError
}

// IsConflict checks for a uniqueness-conflict (409) failure.
func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ConflictError
}
