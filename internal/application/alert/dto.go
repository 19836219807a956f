package alert

import (
	"time"

	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/google/uuid"
)

// AlertResponse represents an alert in API responses
type AlertResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	WarehouseID     uuid.UUID       `json:"warehouse_id"`
	AlertType       alert.AlertType `json:"alert_type"`
	Severity        alert.Severity  `json:"severity"`
	Message         string          `json:"message"`
	ThresholdValue  int64           `json:"threshold_value"`
	CurrentValue    int64           `json:"current_value"`
	IsResolved      bool            `json:"is_resolved"`
	AutoResolved    bool            `json:"auto_resolved"`
	OpenedAt        time.Time       `json:"opened_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	DurationSeconds *int64          `json:"duration_seconds,omitempty"`
	ResolutionNotes string          `json:"resolution_notes,omitempty"`
	ResolvedBy      string          `json:"resolved_by,omitempty"`
	Version         int             `json:"version"`
}

// ResolveRequest represents an operator resolution
type ResolveRequest struct {
	Notes      string `json:"notes" binding:"max=1000"`
	ResolvedBy string `json:"resolved_by" binding:"max=100"`
}

// EvaluateRequest represents a standalone re-evaluation request
type EvaluateRequest struct {
	ProductID   uuid.UUID `json:"product_id" binding:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required"`
}

// ListFilter represents filter options for alert listings
type ListFilter struct {
	ProductID   *uuid.UUID      `form:"-"`
	WarehouseID *uuid.UUID      `form:"-"`
	AlertType   alert.AlertType `form:"alert_type" binding:"omitempty,oneof=low_stock out_of_stock overstock"`
	Severity    alert.Severity  `form:"severity" binding:"omitempty,oneof=low medium high critical"`
	OpenOnly    bool            `form:"open_only"`
	Page        int             `form:"page" binding:"omitempty,min=1"`
	PageSize    int             `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ToAlertResponse converts a domain AlertState to a response
func ToAlertResponse(a *alert.AlertState) AlertResponse {
	resp := AlertResponse{
		ID:              a.ID,
		ProductID:       a.ProductID,
		WarehouseID:     a.WarehouseID,
		AlertType:       a.AlertType,
		Severity:        a.Severity,
		Message:         a.Message,
		ThresholdValue:  a.ThresholdValue,
		CurrentValue:    a.CurrentValue,
		IsResolved:      a.IsResolved,
		AutoResolved:    a.AutoResolved(),
		OpenedAt:        a.OpenedAt,
		ResolvedAt:      a.ResolvedAt,
		ResolutionNotes: a.ResolutionNotes,
		ResolvedBy:      a.ResolvedBy,
		Version:         a.Version,
	}
	if d, ok := a.Duration(); ok {
		secs := int64(d.Seconds())
		resp.DurationSeconds = &secs
	}
	return resp
}

// ToAlertResponses converts a slice of alerts
func ToAlertResponses(alerts []alert.AlertState) []AlertResponse {
	responses := make([]AlertResponse, len(alerts))
	for i := range alerts {
		responses[i] = ToAlertResponse(&alerts[i])
	}
	return responses
}
