package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{shared.CodeInvalidQuantity, http.StatusBadRequest},
		{shared.CodeInsufficientStock, http.StatusBadRequest},
		{shared.CodeMissingResolutionNotes, http.StatusBadRequest},
		{shared.CodeInvalidInput, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{shared.CodeUnknownStockRecord, http.StatusNotFound},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeConcurrentModification, http.StatusConflict},
		{shared.CodeAlreadyResolved, http.StatusConflict},
		{shared.CodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "product_id", Message: "This field is required"},
		{Field: "mode", Message: "Must be one of: add subtract set"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-789", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.NotZero(t, resp.Error.Timestamp)
	assert.Len(t, resp.Error.Details, 2)
}

func TestErrorResponse_JSONShape(t *testing.T) {
	resp := NewErrorResponseWithRequestID(shared.CodeInsufficientStock, "Insufficient stock available", "req-1")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")
	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, "INSUFFICIENT_STOCK", errObj["code"])
	assert.Equal(t, "req-1", errObj["request_id"])
	assert.NotContains(t, errObj, "details")
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	zero := NewSuccessResponseWithMeta(nil, 5, 1, 0)
	assert.Equal(t, 0, zero.Meta.TotalPages)
}
