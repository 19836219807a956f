package inventory

import (
	"math"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// StockStatus is the derived availability state of a stock record
type StockStatus string

const (
	StockStatusOutOfStock StockStatus = "out_of_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusInStock    StockStatus = "in_stock"
)

// IsValid returns true if the status is one of the known values
func (s StockStatus) IsValid() bool {
	switch s {
	case StockStatusOutOfStock, StockStatusLowStock, StockStatusInStock:
		return true
	}
	return false
}

var (
	errInvalidProduct   = shared.ErrInvalidInput.WithMessage("Product ID cannot be empty")
	errInvalidWarehouse = shared.ErrInvalidInput.WithMessage("Warehouse ID cannot be empty")
	errRecordInactive   = shared.ErrInvalidState.WithMessage("Stock record is inactive")
)

// StockRecord is the on-hand and reserved quantity of one product at one warehouse.
// It is the aggregate root for every stock-changing operation.
//
// Invariants: Quantity >= 0, 0 <= ReservedQuantity <= Quantity,
// 0 <= ReorderPoint <= MaxStockLevel.
type StockRecord struct {
	shared.BaseAggregateRoot
	ProductID        uuid.UUID
	WarehouseID      uuid.UUID
	Quantity         int64
	ReservedQuantity int64
	ReorderPoint     int64
	MaxStockLevel    int64
	IsActive         bool
}

// NewStockRecord creates an empty, active stock record with the given thresholds
func NewStockRecord(key StockKey, reorderPoint, maxStockLevel int64, now time.Time) (*StockRecord, error) {
	if _, err := NewStockKey(key.ProductID, key.WarehouseID); err != nil {
		return nil, err
	}
	if err := validateThresholds(reorderPoint, maxStockLevel); err != nil {
		return nil, err
	}
	return &StockRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		ProductID:         key.ProductID,
		WarehouseID:       key.WarehouseID,
		ReorderPoint:      reorderPoint,
		MaxStockLevel:     maxStockLevel,
		IsActive:          true,
	}, nil
}

// Key returns the record's (product, warehouse) identity
func (r *StockRecord) Key() StockKey {
	return StockKey{ProductID: r.ProductID, WarehouseID: r.WarehouseID}
}

// AvailableQuantity is the quantity not held by reservations
func (r *StockRecord) AvailableQuantity() int64 {
	return r.Quantity - r.ReservedQuantity
}

// StockStatus derives the availability state from quantity and reorder point
func (r *StockRecord) StockStatus() StockStatus {
	switch {
	case r.Quantity == 0:
		return StockStatusOutOfStock
	case r.Quantity <= r.ReorderPoint:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// Increase adds stock. quantity must be positive.
func (r *StockRecord) Increase(quantity int64, now time.Time) error {
	if err := r.ensureActive(); err != nil {
		return err
	}
	if quantity <= 0 {
		return shared.ErrInvalidQuantity.WithMessage("Quantity must be positive")
	}
	if quantity > math.MaxInt64-r.Quantity {
		return shared.ErrInvalidQuantity.WithMessage("Quantity exceeds the maximum storable stock level")
	}
	r.Quantity += quantity
	r.Touch(now)
	return nil
}

// Decrease removes unreserved stock. Reserved units can never be removed this way.
func (r *StockRecord) Decrease(quantity int64, now time.Time) error {
	if err := r.ensureActive(); err != nil {
		return err
	}
	if quantity <= 0 {
		return shared.ErrInvalidQuantity.WithMessage("Quantity must be positive")
	}
	if quantity > r.AvailableQuantity() {
		return shared.ErrInsufficientStock
	}
	r.Quantity -= quantity
	r.Touch(now)
	return nil
}

// SetQuantity overwrites the on-hand quantity, e.g. after a physical count.
// The new quantity must still cover the reserved quantity.
func (r *StockRecord) SetQuantity(quantity int64, now time.Time) error {
	if err := r.ensureActive(); err != nil {
		return err
	}
	if quantity < 0 {
		return shared.ErrInvalidQuantity.WithMessage("Quantity cannot be negative")
	}
	if quantity < r.ReservedQuantity {
		return shared.ErrInvalidQuantity.WithMessage("Quantity cannot be set below the reserved quantity")
	}
	r.Quantity = quantity
	r.Touch(now)
	return nil
}

// Reserve moves available units into the reserved pool
func (r *StockRecord) Reserve(quantity int64, now time.Time) error {
	if err := r.ensureActive(); err != nil {
		return err
	}
	if quantity <= 0 {
		return shared.ErrInvalidQuantity.WithMessage("Reservation quantity must be positive")
	}
	if quantity > r.AvailableQuantity() {
		return shared.ErrInsufficientStock.WithMessage("Insufficient available stock to reserve")
	}
	r.ReservedQuantity += quantity
	r.Touch(now)
	return nil
}

// Release returns reserved units to the available pool
func (r *StockRecord) Release(quantity int64, now time.Time) error {
	if err := r.ensureActive(); err != nil {
		return err
	}
	if quantity <= 0 {
		return shared.ErrInvalidQuantity.WithMessage("Release quantity must be positive")
	}
	if quantity > r.ReservedQuantity {
		return shared.ErrInsufficientStock.WithMessage("Cannot release more than the reserved quantity")
	}
	r.ReservedQuantity -= quantity
	r.Touch(now)
	return nil
}

// SetThresholds updates the reorder point and maximum stock level
func (r *StockRecord) SetThresholds(reorderPoint, maxStockLevel int64, now time.Time) error {
	if err := validateThresholds(reorderPoint, maxStockLevel); err != nil {
		return err
	}
	r.ReorderPoint = reorderPoint
	r.MaxStockLevel = maxStockLevel
	r.Touch(now)
	return nil
}

// Deactivate soft-retires the record. Retired records keep their history
// but accept no further quantity changes.
func (r *StockRecord) Deactivate(now time.Time) error {
	if !r.IsActive {
		return shared.ErrInvalidState.WithMessage("Stock record is already inactive")
	}
	r.IsActive = false
	r.Touch(now)
	return nil
}

// Clone returns a copy that can be mutated without affecting r
func (r *StockRecord) Clone() *StockRecord {
	c := *r
	c.ClearDomainEvents()
	return &c
}

func (r *StockRecord) ensureActive() error {
	if !r.IsActive {
		return errRecordInactive
	}
	return nil
}

func validateThresholds(reorderPoint, maxStockLevel int64) error {
	if reorderPoint < 0 {
		return shared.ErrInvalidInput.WithMessage("Reorder point cannot be negative")
	}
	if maxStockLevel < reorderPoint {
		return shared.ErrInvalidInput.WithMessage("Maximum stock level cannot be below the reorder point")
	}
	return nil
}
