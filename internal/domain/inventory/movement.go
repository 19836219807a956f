package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a ledger entry
type MovementType string

const (
	MovementTypeIn          MovementType = "in"
	MovementTypeOut         MovementType = "out"
	MovementTypeTransferOut MovementType = "transfer_out"
	MovementTypeTransferIn  MovementType = "transfer_in"
	MovementTypeAdjustment  MovementType = "adjustment"
)

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeTransferOut, MovementTypeTransferIn, MovementTypeAdjustment:
		return true
	}
	return false
}

// Direction is the sign of a movement. It is fixed by the type for every
// type except adjustment, which records it explicitly.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// DirectionOf returns the implied direction for non-adjustment types
func DirectionOf(t MovementType) (Direction, bool) {
	switch t {
	case MovementTypeIn, MovementTypeTransferIn:
		return DirectionIncrease, true
	case MovementTypeOut, MovementTypeTransferOut:
		return DirectionDecrease, true
	}
	return "", false
}

// Reference types written by the engine
const (
	ReferenceTypePurchaseOrder = "purchase_order"
	ReferenceTypeTransfer      = "transfer"
	ReferenceTypeAdjustment    = "adjustment"
	ReferenceTypeIssue         = "issue"
)

// MovementEntry is an immutable ledger row for a single stock-changing event.
// Quantity is always positive; the direction gives the sign.
type MovementEntry struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	WarehouseID   uuid.UUID
	MovementType  MovementType
	Direction     Direction
	Quantity      int64
	BalanceAfter  int64
	ReferenceType string
	ReferenceID   string
	Notes         string
	UnitCost      decimal.NullDecimal
	CreatedAt     time.Time
}

// MovementSpec describes a movement about to be recorded
type MovementSpec struct {
	Type          MovementType
	Direction     Direction // required for adjustments, ignored otherwise
	Quantity      int64
	ReferenceType string
	ReferenceID   string
	Notes         string
	UnitCost      decimal.NullDecimal
}

// NewMovementEntry builds a ledger row for record after the change has been applied to it
func NewMovementEntry(record *StockRecord, spec MovementSpec, now time.Time) (*MovementEntry, error) {
	if !spec.Type.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("Invalid movement type")
	}
	if spec.Quantity <= 0 {
		return nil, shared.ErrInvalidQuantity.WithMessage("Movement quantity must be positive")
	}
	direction := spec.Direction
	if implied, ok := DirectionOf(spec.Type); ok {
		direction = implied
	} else if direction != DirectionIncrease && direction != DirectionDecrease {
		return nil, shared.ErrInvalidInput.WithMessage("Adjustment movements require a direction")
	}
	if spec.UnitCost.Valid && spec.UnitCost.Decimal.IsNegative() {
		return nil, shared.ErrInvalidInput.WithMessage("Unit cost cannot be negative")
	}

	return &MovementEntry{
		ID:            uuid.New(),
		ProductID:     record.ProductID,
		WarehouseID:   record.WarehouseID,
		MovementType:  spec.Type,
		Direction:     direction,
		Quantity:      spec.Quantity,
		BalanceAfter:  record.Quantity,
		ReferenceType: spec.ReferenceType,
		ReferenceID:   spec.ReferenceID,
		Notes:         spec.Notes,
		UnitCost:      spec.UnitCost,
		CreatedAt:     now,
	}, nil
}

// Key returns the stock key the movement belongs to
func (m *MovementEntry) Key() StockKey {
	return StockKey{ProductID: m.ProductID, WarehouseID: m.WarehouseID}
}

// SignedQuantity is the movement's contribution to the balance
func (m *MovementEntry) SignedQuantity() int64 {
	if m.Direction == DirectionDecrease {
		return -m.Quantity
	}
	return m.Quantity
}

// SumSigned folds movements into a balance
func SumSigned(entries []MovementEntry) int64 {
	var total int64
	for i := range entries {
		total += entries[i].SignedQuantity()
	}
	return total
}
