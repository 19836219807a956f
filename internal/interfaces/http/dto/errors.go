package dto

import (
	"net/http"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
)

// Transport-level error codes. Domain failures reuse the domain error codes unchanged.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeNotFound   = shared.CodeNotFound
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeInternal:   http.StatusInternalServerError,

	shared.CodeInvalidQuantity:        http.StatusBadRequest,
	shared.CodeInsufficientStock:      http.StatusBadRequest,
	shared.CodeMissingResolutionNotes: http.StatusBadRequest,
	shared.CodeInvalidInput:           http.StatusBadRequest,

	shared.CodeUnknownStockRecord: http.StatusNotFound,
	shared.CodeNotFound:           http.StatusNotFound,

	shared.CodeConcurrentModification: http.StatusConflict,
	shared.CodeAlreadyResolved:        http.StatusConflict,

	shared.CodeInvalidState: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 when unmapped
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ValidationDetail describes one failed field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponseWithRequestID creates an error response carrying the request ID
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
			Timestamp: time.Now().UTC(),
		},
	}
}

// NewValidationErrorResponse creates a validation error response with field details
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}
