package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustMode selects how an adjustment quantity is applied
type AdjustMode string

const (
	AdjustModeAdd      AdjustMode = "add"
	AdjustModeSubtract AdjustMode = "subtract"
	AdjustModeSet      AdjustMode = "set"
)

// IsValid returns true if the mode is add, subtract or set
func (m AdjustMode) IsValid() bool {
	switch m {
	case AdjustModeAdd, AdjustModeSubtract, AdjustModeSet:
		return true
	}
	return false
}

// StockRecordResponse represents a stock record in API responses
type StockRecordResponse struct {
	ID                uuid.UUID             `json:"id"`
	ProductID         uuid.UUID             `json:"product_id"`
	WarehouseID       uuid.UUID             `json:"warehouse_id"`
	Quantity          int64                 `json:"quantity"`
	ReservedQuantity  int64                 `json:"reserved_quantity"`
	AvailableQuantity int64                 `json:"available_quantity"`
	ReorderPoint      int64                 `json:"reorder_point"`
	MaxStockLevel     int64                 `json:"max_stock_level"`
	StockStatus       inventory.StockStatus `json:"stock_status"`
	IsActive          bool                  `json:"is_active"`
	Version           int                   `json:"version"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// MovementResponse represents a ledger entry in API responses
type MovementResponse struct {
	ID             uuid.UUID              `json:"id"`
	ProductID      uuid.UUID              `json:"product_id"`
	WarehouseID    uuid.UUID              `json:"warehouse_id"`
	MovementType   inventory.MovementType `json:"movement_type"`
	Direction      inventory.Direction    `json:"direction"`
	Quantity       int64                  `json:"quantity"`
	SignedQuantity int64                  `json:"signed_quantity"`
	BalanceAfter   int64                  `json:"balance_after"`
	ReferenceType  string                 `json:"reference_type,omitempty"`
	ReferenceID    string                 `json:"reference_id,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
	UnitCost       *decimal.Decimal       `json:"unit_cost,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// AlertChangeResponse summarizes one alert transition caused by an operation
type AlertChangeResponse struct {
	AlertID        uuid.UUID        `json:"alert_id"`
	ProductID      uuid.UUID        `json:"product_id"`
	WarehouseID    uuid.UUID        `json:"warehouse_id"`
	Kind           alert.ChangeKind `json:"kind"`
	AlertType      alert.AlertType  `json:"alert_type"`
	Severity       alert.Severity   `json:"severity"`
	Message        string           `json:"message"`
	ThresholdValue int64            `json:"threshold_value"`
	CurrentValue   int64            `json:"current_value"`
	PreviousValue  int64            `json:"previous_value"`
	AutoResolved   bool             `json:"auto_resolved"`
}

// StockResult is returned by single-record operations
type StockResult struct {
	Record       StockRecordResponse   `json:"record"`
	Movement     *MovementResponse     `json:"movement,omitempty"`
	AlertChanges []AlertChangeResponse `json:"alert_changes"`
}

// TransferResult is returned by Transfer
type TransferResult struct {
	Source       StockRecordResponse   `json:"source"`
	Destination  StockRecordResponse   `json:"destination"`
	ReferenceID  string                `json:"reference_id"`
	Movements    []MovementResponse    `json:"movements"`
	AlertChanges []AlertChangeResponse `json:"alert_changes"`
}

// BulkAdjustItemResult is the outcome of one item in a bulk adjustment
type BulkAdjustItemResult struct {
	Index     int          `json:"index"`
	Success   bool         `json:"success"`
	Result    *StockResult `json:"result,omitempty"`
	ErrorCode string       `json:"error_code,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// BulkAdjustResult is returned by BulkAdjust
type BulkAdjustResult struct {
	SuccessCount int                    `json:"success_count"`
	FailureCount int                    `json:"failure_count"`
	Results      []BulkAdjustItemResult `json:"results"`
}

// AdjustRequest represents a request to adjust stock on an existing record
type AdjustRequest struct {
	ProductID     uuid.UUID  `json:"product_id" binding:"required"`
	WarehouseID   uuid.UUID  `json:"warehouse_id" binding:"required"`
	Quantity      int64      `json:"quantity"`
	Mode          AdjustMode `json:"mode" binding:"required,adjust_mode"`
	Notes         string     `json:"notes" binding:"max=500"`
	ReferenceType string     `json:"reference_type" binding:"max=50"`
	ReferenceID   string     `json:"reference_id" binding:"max=100"`
}

// TransferRequest represents a request to move stock between warehouses
type TransferRequest struct {
	ProductID       uuid.UUID `json:"product_id" binding:"required"`
	FromWarehouseID uuid.UUID `json:"from_warehouse_id" binding:"required"`
	ToWarehouseID   uuid.UUID `json:"to_warehouse_id" binding:"required"`
	Quantity        int64     `json:"quantity"`
	Notes           string    `json:"notes" binding:"max=500"`
}

// ReceiveRequest represents a request to book incoming stock
type ReceiveRequest struct {
	ProductID     uuid.UUID        `json:"product_id" binding:"required"`
	WarehouseID   uuid.UUID        `json:"warehouse_id" binding:"required"`
	Quantity      int64            `json:"quantity"`
	ReferenceType string           `json:"reference_type" binding:"max=50"`
	ReferenceID   string           `json:"reference_id" binding:"max=100"`
	UnitCost      *decimal.Decimal `json:"unit_cost"`
	Notes         string           `json:"notes" binding:"max=500"`
}

// IssueRequest represents a request to take stock out of a warehouse
type IssueRequest struct {
	ProductID     uuid.UUID `json:"product_id" binding:"required"`
	WarehouseID   uuid.UUID `json:"warehouse_id" binding:"required"`
	Quantity      int64     `json:"quantity"`
	ReferenceType string    `json:"reference_type" binding:"max=50"`
	ReferenceID   string    `json:"reference_id" binding:"max=100"`
	Notes         string    `json:"notes" binding:"max=500"`
}

// ReservationRequest represents a request to reserve or release stock
type ReservationRequest struct {
	ProductID   uuid.UUID `json:"product_id" binding:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required"`
	Quantity    int64     `json:"quantity"`
}

// ThresholdRequest represents a request to set the reorder point and max stock level
type ThresholdRequest struct {
	ProductID     uuid.UUID `json:"product_id" binding:"required"`
	WarehouseID   uuid.UUID `json:"warehouse_id" binding:"required"`
	ReorderPoint  int64     `json:"reorder_point" binding:"min=0"`
	MaxStockLevel int64     `json:"max_stock_level" binding:"min=0,gtefield=ReorderPoint"`
}

// StockRecordListFilter represents filter options for stock record listings
type StockRecordListFilter struct {
	ProductID   *uuid.UUID            `form:"-"`
	WarehouseID *uuid.UUID            `form:"-"`
	Status      inventory.StockStatus `form:"status" binding:"omitempty,oneof=out_of_stock low_stock in_stock"`
	ActiveOnly  bool                  `form:"active_only"`
	Page        int                   `form:"page" binding:"omitempty,min=1"`
	PageSize    int                   `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// MovementListFilter represents filter options for ledger queries
type MovementListFilter struct {
	ProductID     *uuid.UUID             `form:"-"`
	WarehouseID   *uuid.UUID             `form:"-"`
	MovementType  inventory.MovementType `form:"movement_type" binding:"omitempty,oneof=in out transfer_out transfer_in adjustment"`
	ReferenceType string                 `form:"reference_type"`
	ReferenceID   string                 `form:"reference_id"`
	Page          int                    `form:"page" binding:"omitempty,min=1"`
	PageSize      int                    `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// WarehouseLevel is one warehouse's share of a product's stock
type WarehouseLevel struct {
	WarehouseID       uuid.UUID             `json:"warehouse_id"`
	Quantity          int64                 `json:"quantity"`
	ReservedQuantity  int64                 `json:"reserved_quantity"`
	AvailableQuantity int64                 `json:"available_quantity"`
	StockStatus       inventory.StockStatus `json:"stock_status"`
}

// StockLevelsResponse aggregates a product's stock across warehouses
type StockLevelsResponse struct {
	ProductID              uuid.UUID        `json:"product_id"`
	TotalQuantity          int64            `json:"total_quantity"`
	TotalReservedQuantity  int64            `json:"total_reserved_quantity"`
	TotalAvailableQuantity int64            `json:"total_available_quantity"`
	Warehouses             []WarehouseLevel `json:"warehouses"`
}

// ReorderUrgency ranks reorder suggestions
type ReorderUrgency string

const (
	ReorderUrgencyCritical ReorderUrgency = "critical"
	ReorderUrgencyHigh     ReorderUrgency = "high"
	ReorderUrgencyMedium   ReorderUrgency = "medium"
)

// ReorderSuggestion proposes a replenishment quantity for a record at or below its reorder point
type ReorderSuggestion struct {
	ProductID         uuid.UUID      `json:"product_id"`
	WarehouseID       uuid.UUID      `json:"warehouse_id"`
	Quantity          int64          `json:"quantity"`
	ReorderPoint      int64          `json:"reorder_point"`
	MaxStockLevel     int64          `json:"max_stock_level"`
	SuggestedQuantity int64          `json:"suggested_quantity"`
	Urgency           ReorderUrgency `json:"urgency"`
}

// ReconciliationResponse compares the ledger with the stored quantity
type ReconciliationResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	WarehouseID    uuid.UUID `json:"warehouse_id"`
	RecordQuantity int64     `json:"record_quantity"`
	LedgerQuantity int64     `json:"ledger_quantity"`
	Difference     int64     `json:"difference"`
	Consistent     bool      `json:"consistent"`
}

// ToStockRecordResponse converts a domain StockRecord to a response
func ToStockRecordResponse(r *inventory.StockRecord) StockRecordResponse {
	return StockRecordResponse{
		ID:                r.ID,
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		Quantity:          r.Quantity,
		ReservedQuantity:  r.ReservedQuantity,
		AvailableQuantity: r.AvailableQuantity(),
		ReorderPoint:      r.ReorderPoint,
		MaxStockLevel:     r.MaxStockLevel,
		StockStatus:       r.StockStatus(),
		IsActive:          r.IsActive,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// ToStockRecordResponses converts a slice of records
func ToStockRecordResponses(records []inventory.StockRecord) []StockRecordResponse {
	responses := make([]StockRecordResponse, len(records))
	for i := range records {
		responses[i] = ToStockRecordResponse(&records[i])
	}
	return responses
}

// ToMovementResponse converts a ledger entry to a response
func ToMovementResponse(m *inventory.MovementEntry) MovementResponse {
	resp := MovementResponse{
		ID:             m.ID,
		ProductID:      m.ProductID,
		WarehouseID:    m.WarehouseID,
		MovementType:   m.MovementType,
		Direction:      m.Direction,
		Quantity:       m.Quantity,
		SignedQuantity: m.SignedQuantity(),
		BalanceAfter:   m.BalanceAfter,
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.ReferenceID,
		Notes:          m.Notes,
		CreatedAt:      m.CreatedAt,
	}
	if m.UnitCost.Valid {
		cost := m.UnitCost.Decimal
		resp.UnitCost = &cost
	}
	return resp
}

// ToMovementResponses converts a slice of ledger entries
func ToMovementResponses(entries []inventory.MovementEntry) []MovementResponse {
	responses := make([]MovementResponse, len(entries))
	for i := range entries {
		responses[i] = ToMovementResponse(&entries[i])
	}
	return responses
}

// ToAlertChangeResponses converts evaluator output to responses. Never returns nil.
func ToAlertChangeResponses(changes []alert.StateChange) []AlertChangeResponse {
	responses := make([]AlertChangeResponse, 0, len(changes))
	for _, c := range changes {
		responses = append(responses, AlertChangeResponse{
			AlertID:        c.Alert.ID,
			ProductID:      c.Alert.ProductID,
			WarehouseID:    c.Alert.WarehouseID,
			Kind:           c.Kind,
			AlertType:      c.Alert.AlertType,
			Severity:       c.Alert.Severity,
			Message:        c.Alert.Message,
			ThresholdValue: c.Alert.ThresholdValue,
			CurrentValue:   c.Alert.CurrentValue,
			PreviousValue:  c.PreviousValue,
			AutoResolved:   c.AutoResolved,
		})
	}
	return responses
}
