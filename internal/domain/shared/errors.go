package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError of the same kind.
// Two domain errors match when their codes are equal, so callers can write
// errors.Is(err, shared.ErrNotFound) regardless of the message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of the error kind carrying a specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message}
}

// WithMessagef is WithMessage with formatting
func (e *DomainError) WithMessagef(format string, args ...any) *DomainError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error kinds surfaced by the clinic core
var (
	ErrValidationFailed    = NewDomainError("VALIDATION_FAILED", "Invalid input provided")
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrConflictingBooking  = NewDomainError("CONFLICTING_BOOKING", "Another pending appointment holds this slot")
	ErrReferentialInUse    = NewDomainError("REFERENTIAL_IN_USE", "Resource is referenced by other records")
	ErrInconsistentCredit  = NewDomainError("INCONSISTENT_CREDIT", "Client credit would become negative")
	ErrResourceExhausted   = NewDomainError("RESOURCE_EXHAUSTED", "No database connection available, try again")
	ErrStoreFailure        = NewDomainError("STORE_FAILURE", "Database operation failed")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)

// NewStoreFailure wraps an infrastructure error as a StoreFailure, keeping the cause
func NewStoreFailure(cause error) *DomainError {
	return &DomainError{
		Code:    ErrStoreFailure.Code,
		Message: ErrStoreFailure.Message,
		cause:   cause,
	}
}

// NewResourceExhausted wraps a pool acquisition failure
func NewResourceExhausted(cause error) *DomainError {
	return &DomainError{
		Code:    ErrResourceExhausted.Code,
		Message: ErrResourceExhausted.Message,
		cause:   cause,
	}
}

// IsDomainError reports whether err carries a DomainError anywhere in its chain
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
