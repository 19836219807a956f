package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError carrying the same code, so that
// errors.Is matches both the sentinel values and errors built with WithMessage.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return de.Code == e.Code
}

// WithMessage returns a copy of the error with a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: message,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes surfaced by the stock ledger
const (
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInvalidState           = "INVALID_STATE"
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeUnknownStockRecord     = "UNKNOWN_STOCK_RECORD"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeAlreadyResolved        = "ALREADY_RESOLVED"
	CodeMissingResolutionNotes = "MISSING_RESOLUTION_NOTES"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidQuantity        = NewDomainError(CodeInvalidQuantity, "Quantity is invalid for this operation")
	ErrInsufficientStock      = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrUnknownStockRecord     = NewDomainError(CodeUnknownStockRecord, "No stock record exists for this product and warehouse")
	ErrConcurrentModification = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
	ErrAlreadyResolved        = NewDomainError(CodeAlreadyResolved, "Alert is already resolved")
	ErrMissingResolutionNotes = NewDomainError(CodeMissingResolutionNotes, "Resolution notes are required")
)

// ErrorCode extracts the domain error code from err, or "" if err is not a domain error
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsDomainError reports whether err carries the given domain error code
func IsDomainError(err error, code string) bool {
	return code != "" && ErrorCode(err) == code
}
