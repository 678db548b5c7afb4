package labdb

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeTransaction  ErrorType = "transaction"
	ErrorTypeStorage      ErrorType = "storage"
	ErrorTypeInternal     ErrorType = "internal"
)

// EntityRef names a stored record in error messages.
type EntityRef struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
}

// LabError is the error type returned by every store operation.
type LabError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Entity  *EntityRef     `json:"entity,omitempty"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *LabError) Error() string {
	if e.Entity != nil {
		return fmt.Sprintf("[%s:%s] %s %s: %s", e.Type, e.Code, e.Entity.Kind, e.Entity.Key, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *LabError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail
func (e *LabError) WithDetail(key string, value any) *LabError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *LabError) WithCause(cause error) *LabError {
	e.Cause = cause
	return e
}

// WithField sets field context
func (e *LabError) WithField(field string) *LabError {
	e.Field = field
	return e
}

// Error codes
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeAlreadyExists      = "ALREADY_EXISTS"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInactiveUser       = "INACTIVE_USER"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeTransactionFailed  = "TRANSACTION_FAILED"
	ErrCodeQueryFailed        = "QUERY_FAILED"
	ErrCodeMissingTables      = "MISSING_TABLES"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// NewNotFoundError reports a missing record.
func NewNotFoundError(kind, key string) *LabError {
	return &LabError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeNotFound,
		Message: "not found",
		Entity:  &EntityRef{Kind: kind, Key: key},
	}
}

// NewConflictError reports a uniqueness violation.
func NewConflictError(kind, key string) *LabError {
	return &LabError{
		Type:    ErrorTypeConflict,
		Code:    ErrCodeAlreadyExists,
		Message: "already exists",
		Entity:  &EntityRef{Kind: kind, Key: key},
	}
}

// NewValidationError creates a validation error
func NewValidationError(field, message string) *LabError {
	return &LabError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: message,
		Field:   field,
	}
}

// NewUnauthorizedError reports a failed authentication.
func NewUnauthorizedError(code, message string) *LabError {
	return &LabError{
		Type:    ErrorTypeUnauthorized,
		Code:    code,
		Message: message,
	}
}

// NewTransactionError creates a transaction error
func NewTransactionError(message string, cause error) *LabError {
	return &LabError{
		Type:    ErrorTypeTransaction,
		Code:    ErrCodeTransactionFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewStorageError wraps a driver failure.
func NewStorageError(message string, cause error) *LabError {
	return &LabError{
		Type:    ErrorTypeStorage,
		Code:    ErrCodeQueryFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *LabError {
	return &LabError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
	}
}

func errorType(err error) (ErrorType, bool) {
	var le *LabError
	if errors.As(err, &le) {
		return le.Type, true
	}
	return "", false
}

// IsNotFound checks if err is, or wraps, a not found error.
func IsNotFound(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeNotFound
}

// IsConflict checks if err is, or wraps, a uniqueness violation.
func IsConflict(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeConflict
}

// IsValidation checks if err is, or wraps, a validation error.
func IsValidation(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeValidation
}

// IsUnauthorized checks if err is, or wraps, an authentication failure.
func IsUnauthorized(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrorTypeUnauthorized
}
