package feed

import (
	"fmt"

	"github.com/catsync/backend/internal/domain/shared"
)

// Feed error codes
const (
	ErrCodeFeedEmptyFirstPage = "ERR_FEED_EMPTY_FIRST_PAGE"
	ErrCodeFeedMissingHeader  = "ERR_FEED_MISSING_HEADER"
	ErrCodeFeedCountMismatch  = "ERR_FEED_COUNT_MISMATCH"
	ErrCodeFeedBelowMinimum   = "ERR_FEED_BELOW_MINIMUM"
	ErrCodeFeedRowMismatch    = "ERR_FEED_ROW_MISMATCH"
	ErrCodeFeedMissingID      = "ERR_FEED_MISSING_ID"
	ErrCodeFeedTransport      = "ERR_FEED_TRANSPORT"
	ErrCodeFeedRuleFailure    = "ERR_FEED_RULE_FAILURE"
)

// Common feed errors
var (
	// ErrEmptyFirstPage is returned when the first page has no usable data
	// rows. This distinguishes a malformed single-row dump from a genuine end
	// of data and always aborts the run.
	ErrEmptyFirstPage = shared.NewDomainError(ErrCodeFeedEmptyFirstPage, "first page contains no data rows")

	// ErrMissingHeader is returned when the first page is too short to carry
	// a header row.
	ErrMissingHeader = shared.NewDomainError(ErrCodeFeedMissingHeader, "first page missing header row")
)

// CountMismatchError is the hard failure raised when the rows actually
// received fall short of the server-reported count and the data group does
// not allow a lower count.
type CountMismatchError struct {
	Group    string
	Received int
	Expected int
}

// Error implements the error interface.
func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("feed %s: received %d rows, expected %d", e.Group, e.Received, e.Expected)
}

// Code returns the stable error code for this failure.
func (e *CountMismatchError) Code() string {
	return ErrCodeFeedCountMismatch
}

// BelowMinimumError is the hard failure raised when the final catalog falls
// below the configured minimum size.
type BelowMinimumError struct {
	Group    string
	Received int
	Minimum  int
}

// Error implements the error interface.
func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("feed %s: %d rows is below the configured minimum of %d", e.Group, e.Received, e.Minimum)
}

// Code returns the stable error code for this failure.
func (e *BelowMinimumError) Code() string {
	return ErrCodeFeedBelowMinimum
}

// TransportError wraps a page-fetch failure with its full request context.
// Retry policy, if any, lives in the transport layer behind Source.
type TransportError struct {
	Group    string
	FirstRow int
	MaxRows  int
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("feed %s: fetching rows %d-%d: %v", e.Group, e.FirstRow, e.FirstRow+e.MaxRows-1, e.Err)
}

// Unwrap returns the underlying transport failure.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Code returns the stable error code for this failure.
func (e *TransportError) Code() string {
	return ErrCodeFeedTransport
}

// RowError records a soft per-row failure. Soft failures are logged and
// counted; the run continues.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new row error.
func NewRowError(row int, column, code, message string) *RowError {
	return &RowError{Row: row, Column: column, Code: code, Message: message}
}
