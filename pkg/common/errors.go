package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared across services.
var (
	ErrNotFound             = errors.New("resource not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrConflict             = errors.New("resource conflict")
	ErrValidation           = errors.New("validation error")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrNoProvidersAvailable = errors.New("no providers available")
	ErrCacheMiss            = errors.New("cache miss")
)

// Machine-readable error codes surfaced in the response envelope.
const (
	CodeValidation        = "VALIDATION"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNoProviders       = "NO_PROVIDERS_AVAILABLE"
	CodeInternal          = "INTERNAL"
)

// AppError is an application error carrying the HTTP status to surface.
type AppError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped error for errors.Is checks.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports a malformed or out-of-range request.
func NewValidationError(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, ErrorCode: CodeValidation, Message: message, Err: ErrValidation}
}

// NewUnauthorizedError reports a missing or invalid bearer credential.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, ErrorCode: CodeUnauthenticated, Message: message, Err: ErrUnauthorized}
}

// NewForbiddenError reports an authenticated caller acting outside its scope.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, ErrorCode: CodeForbidden, Message: message, Err: ErrForbidden}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, ErrorCode: CodeNotFound, Message: message, Err: ErrNotFound}
}

// NewConflictError reports a uniqueness violation.
func NewConflictError(message string) *AppError {
	return &AppError{Code: http.StatusConflict, ErrorCode: CodeConflict, Message: message, Err: ErrConflict}
}

// NewInvalidTransitionError reports a state-machine guard violation with the
// current and requested states so clients can reconcile.
func NewInvalidTransitionError(current, requested string) *AppError {
	return &AppError{
		Code:      http.StatusBadRequest,
		ErrorCode: CodeInvalidTransition,
		Message:   fmt.Sprintf("cannot transition from %s to %s", current, requested),
		Err:       ErrInvalidTransition,
	}
}

// NewNoProvidersError reports that scoring produced an empty candidate set.
func NewNoProvidersError(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, ErrorCode: CodeNoProviders, Message: message, Err: ErrNoProvidersAvailable}
}

// NewInternalError reports a transient or unexpected failure.
func NewInternalError(message string, err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, ErrorCode: CodeInternal, Message: message, Err: err}
}
