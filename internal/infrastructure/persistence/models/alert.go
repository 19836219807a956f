package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/google/uuid"
)

// StockAlertModel is the persistence model for the AlertState aggregate.
// The partial unique index allows one open alert per product, warehouse and type.
type StockAlertModel struct {
	AggregateModel
	ProductID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_stock_alerts_open,priority:1,where:is_resolved = false"`
	WarehouseID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_stock_alerts_open,priority:2"`
	AlertType       string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_stock_alerts_open,priority:3"`
	Severity        string     `gorm:"type:varchar(10);not null"`
	Message         string     `gorm:"type:text"`
	ThresholdValue  int64      `gorm:"not null"`
	CurrentValue    int64      `gorm:"not null"`
	IsResolved      bool       `gorm:"not null;index"`
	OpenedAt        time.Time  `gorm:"not null;index"`
	ResolvedAt      *time.Time
	ResolutionNotes string     `gorm:"type:text"`
	ResolvedBy      string     `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (StockAlertModel) TableName() string {
	return "stock_alerts"
}

// ToDomain converts the persistence model to a domain AlertState
func (m *StockAlertModel) ToDomain() *alert.AlertState {
	return &alert.AlertState{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ProductID:         m.ProductID,
		WarehouseID:       m.WarehouseID,
		AlertType:         alert.AlertType(m.AlertType),
		Severity:          alert.Severity(m.Severity),
		Message:           m.Message,
		ThresholdValue:    m.ThresholdValue,
		CurrentValue:      m.CurrentValue,
		IsResolved:        m.IsResolved,
		OpenedAt:          m.OpenedAt,
		ResolvedAt:        m.ResolvedAt,
		ResolutionNotes:   m.ResolutionNotes,
		ResolvedBy:        m.ResolvedBy,
	}
}

// FromDomain populates the persistence model from a domain AlertState
func (m *StockAlertModel) FromDomain(a *alert.AlertState) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.ProductID = a.ProductID
	m.WarehouseID = a.WarehouseID
	m.AlertType = string(a.AlertType)
	m.Severity = string(a.Severity)
	m.Message = a.Message
	m.ThresholdValue = a.ThresholdValue
	m.CurrentValue = a.CurrentValue
	m.IsResolved = a.IsResolved
	m.OpenedAt = a.OpenedAt
	m.ResolvedAt = a.ResolvedAt
	m.ResolutionNotes = a.ResolutionNotes
	m.ResolvedBy = a.ResolvedBy
}

// StockAlertModelFromDomain creates a new persistence model from a domain AlertState
func StockAlertModelFromDomain(a *alert.AlertState) *StockAlertModel {
	m := &StockAlertModel{}
	m.FromDomain(a)
	return m
}
