package dto

import "net/http"

// API error codes. Domain error kinds are translated to these by DomainCode.
const (
	ErrCodeInternal           = "ERR_INTERNAL"
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeBadRequest         = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON        = "ERR_INVALID_JSON"
	ErrCodeNotFound           = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists      = "ERR_ALREADY_EXISTS"
	ErrCodeConflictingBooking = "ERR_CONFLICTING_BOOKING"
	ErrCodeReferentialInUse   = "ERR_REFERENTIAL_IN_USE"
	ErrCodeConcurrency        = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeDuplicateRequest   = "ERR_DUPLICATE_REQUEST"
	ErrCodeInvalidState       = "ERR_INVALID_STATE"
	ErrCodeInconsistentCredit = "ERR_INCONSISTENT_CREDIT"
	ErrCodeResourceExhausted  = "ERR_RESOURCE_EXHAUSTED"
	ErrCodeStoreFailure       = "ERR_STORE_FAILURE"
	ErrCodeRequestTooLarge    = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInvalidJSON:        http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeAlreadyExists:      http.StatusConflict,
	ErrCodeConflictingBooking: http.StatusConflict,
	ErrCodeReferentialInUse:   http.StatusConflict,
	ErrCodeConcurrency:        http.StatusConflict,
	ErrCodeDuplicateRequest:   http.StatusConflict,
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeInconsistentCredit: http.StatusUnprocessableEntity,
	ErrCodeResourceExhausted:  http.StatusServiceUnavailable,
	ErrCodeStoreFailure:       http.StatusInternalServerError,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,
}

// domainCodes translates shared.DomainError codes
var domainCodes = map[string]string{
	"VALIDATION_FAILED":    ErrCodeValidation,
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"CONFLICTING_BOOKING":  ErrCodeConflictingBooking,
	"REFERENTIAL_IN_USE":   ErrCodeReferentialInUse,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrency,
	"INVALID_STATE":        ErrCodeInvalidState,
	"INCONSISTENT_CREDIT":  ErrCodeInconsistentCredit,
	"RESOURCE_EXHAUSTED":   ErrCodeResourceExhausted,
	"STORE_FAILURE":        ErrCodeStoreFailure,
}

// GetHTTPStatus returns the status for an API error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainCode returns the API code for a domain error code, ERR_INTERNAL when unknown
func DomainCode(code string) string {
	if c, ok := domainCodes[code]; ok {
		return c
	}
	return ErrCodeInternal
}
