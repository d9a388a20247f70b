package csvimport

import (
	"errors"
	"fmt"
)

// Row error codes
const (
	ErrCodeRequiredField   = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidFormat   = "ERR_IMPORT_INVALID_FORMAT"
	ErrCodeInvalidLength   = "ERR_IMPORT_INVALID_LENGTH"
	ErrCodeDuplicateInFile = "ERR_IMPORT_DUPLICATE_IN_FILE"
	ErrCodeDuplicateInDB   = "ERR_IMPORT_DUPLICATE_IN_DB"
	ErrCodeMalformedRow    = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeValidation      = "ERR_IMPORT_VALIDATION"
)

var (
	// ErrEmptyFile is returned when the CSV file is empty
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the file is not UTF-8
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")
)

// RowError is a problem found in one line of the file
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection keeps up to maxErrors row errors and counts the rest
type ErrorCollection struct {
	errors     []RowError
	rows       map[int]struct{}
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		rows:      make(map[int]struct{}),
		maxErrors: maxErrors,
	}
}

// Add records an error
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	ec.rows[err.Row] = struct{}{}
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRowError records an error for a line without a specific column
func (ec *ErrorCollection) AddRowError(row int, code, message string) {
	ec.Add(RowError{Row: row, Code: code, Message: message})
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// RowCount returns the number of distinct lines with at least one error
func (ec *ErrorCollection) RowCount() int {
	return len(ec.rows)
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > len(ec.errors)
}
