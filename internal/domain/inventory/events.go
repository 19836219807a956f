package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeStockRecord is the aggregate type name used on events
const AggregateTypeStockRecord = "StockRecord"

// EventTypeStockChanged is raised after any committed change to a stock record
const EventTypeStockChanged = "StockChanged"

// Operation names carried on StockChangedEvent
const (
	OperationAdjust     = "adjust"
	OperationTransfer   = "transfer"
	OperationReceive    = "receive"
	OperationIssue      = "issue"
	OperationReserve    = "reserve"
	OperationRelease    = "release"
	OperationThresholds = "thresholds"
	OperationDeactivate = "deactivate"
)

// StockChangedEvent carries the state of a stock record after a committed operation
type StockChangedEvent struct {
	shared.BaseDomainEvent
	ProductID        uuid.UUID    `json:"product_id"`
	WarehouseID      uuid.UUID    `json:"warehouse_id"`
	Operation        string       `json:"operation"`
	MovementType     MovementType `json:"movement_type,omitempty"`
	Delta            int64        `json:"delta"`
	Quantity         int64        `json:"quantity"`
	ReservedQuantity int64        `json:"reserved_quantity"`
	Version          int          `json:"version"`
	ReferenceType    string       `json:"reference_type,omitempty"`
	ReferenceID      string       `json:"reference_id,omitempty"`
}

// NewStockChangedEvent creates a StockChangedEvent for record. movement may be nil
// for operations that do not write the ledger.
func NewStockChangedEvent(record *StockRecord, operation string, movement *MovementEntry, now time.Time) *StockChangedEvent {
	e := &StockChangedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeStockChanged, AggregateTypeStockRecord, record.ID, now),
		ProductID:        record.ProductID,
		WarehouseID:      record.WarehouseID,
		Operation:        operation,
		Quantity:         record.Quantity,
		ReservedQuantity: record.ReservedQuantity,
		Version:          record.Version,
	}
	if movement != nil {
		e.MovementType = movement.MovementType
		e.Delta = movement.SignedQuantity()
		e.ReferenceType = movement.ReferenceType
		e.ReferenceID = movement.ReferenceID
	}
	return e
}
