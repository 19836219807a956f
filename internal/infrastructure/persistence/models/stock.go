package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockRecordModel is the persistence model for the StockRecord aggregate
type StockRecordModel struct {
	AggregateModel
	ProductID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_records_key,priority:1"`
	WarehouseID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_records_key,priority:2;index"`
	Quantity         int64     `gorm:"not null"`
	ReservedQuantity int64     `gorm:"not null"`
	ReorderPoint     int64     `gorm:"not null"`
	MaxStockLevel    int64     `gorm:"not null"`
	IsActive         bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockRecordModel) TableName() string {
	return "stock_records"
}

// ToDomain converts the persistence model to a domain StockRecord
func (m *StockRecordModel) ToDomain() *inventory.StockRecord {
	return &inventory.StockRecord{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ProductID:         m.ProductID,
		WarehouseID:       m.WarehouseID,
		Quantity:          m.Quantity,
		ReservedQuantity:  m.ReservedQuantity,
		ReorderPoint:      m.ReorderPoint,
		MaxStockLevel:     m.MaxStockLevel,
		IsActive:          m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain StockRecord
func (m *StockRecordModel) FromDomain(r *inventory.StockRecord) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.ProductID = r.ProductID
	m.WarehouseID = r.WarehouseID
	m.Quantity = r.Quantity
	m.ReservedQuantity = r.ReservedQuantity
	m.ReorderPoint = r.ReorderPoint
	m.MaxStockLevel = r.MaxStockLevel
	m.IsActive = r.IsActive
}

// StockRecordModelFromDomain creates a new persistence model from a domain StockRecord
func StockRecordModelFromDomain(r *inventory.StockRecord) *StockRecordModel {
	m := &StockRecordModel{}
	m.FromDomain(r)
	return m
}

// StockMovementModel is the persistence model for an immutable ledger entry
type StockMovementModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primary_key"`
	ProductID     uuid.UUID           `gorm:"type:uuid;not null;index:idx_stock_movements_key,priority:1"`
	WarehouseID   uuid.UUID           `gorm:"type:uuid;not null;index:idx_stock_movements_key,priority:2"`
	MovementType  string              `gorm:"type:varchar(20);not null"`
	Direction     string              `gorm:"type:varchar(10);not null"`
	Quantity      int64               `gorm:"not null"`
	BalanceAfter  int64               `gorm:"not null"`
	ReferenceType string              `gorm:"type:varchar(50);index:idx_stock_movements_reference,priority:1"`
	ReferenceID   string              `gorm:"type:varchar(100);index:idx_stock_movements_reference,priority:2"`
	Notes         string              `gorm:"type:text"`
	UnitCost      decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	CreatedAt     time.Time           `gorm:"not null;index:idx_stock_movements_key,priority:3"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain MovementEntry
func (m *StockMovementModel) ToDomain() inventory.MovementEntry {
	return inventory.MovementEntry{
		ID:            m.ID,
		ProductID:     m.ProductID,
		WarehouseID:   m.WarehouseID,
		MovementType:  inventory.MovementType(m.MovementType),
		Direction:     inventory.Direction(m.Direction),
		Quantity:      m.Quantity,
		BalanceAfter:  m.BalanceAfter,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		Notes:         m.Notes,
		UnitCost:      m.UnitCost,
		CreatedAt:     m.CreatedAt,
	}
}

// StockMovementModelFromDomain creates a persistence model from a domain MovementEntry
func StockMovementModelFromDomain(e *inventory.MovementEntry) *StockMovementModel {
	return &StockMovementModel{
		ID:            e.ID,
		ProductID:     e.ProductID,
		WarehouseID:   e.WarehouseID,
		MovementType:  string(e.MovementType),
		Direction:     string(e.Direction),
		Quantity:      e.Quantity,
		BalanceAfter:  e.BalanceAfter,
		ReferenceType: e.ReferenceType,
		ReferenceID:   e.ReferenceID,
		Notes:         e.Notes,
		UnitCost:      e.UnitCost,
		CreatedAt:     e.CreatedAt,
	}
}
