// Package alert derives threshold alerts from stock records and owns their lifecycle.
package alert

import (
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// AlertType is the rule that produced an alert
type AlertType string

const (
	AlertTypeLowStock   AlertType = "low_stock"
	AlertTypeOutOfStock AlertType = "out_of_stock"
	AlertTypeOverstock  AlertType = "overstock"
)

// IsValid returns true if the alert type is valid
func (t AlertType) IsValid() bool {
	switch t {
	case AlertTypeLowStock, AlertTypeOutOfStock, AlertTypeOverstock:
		return true
	}
	return false
}

// Severity ranks alerts for notification routing
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid returns true if the severity is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AlertState is a lifecycle-tracked breach of a stock threshold rule.
// At most one open alert exists per (product, warehouse, alert type).
type AlertState struct {
	shared.BaseAggregateRoot
	ProductID       uuid.UUID
	WarehouseID     uuid.UUID
	AlertType       AlertType
	Severity        Severity
	Message         string
	ThresholdValue  int64
	CurrentValue    int64
	IsResolved      bool
	OpenedAt        time.Time
	ResolvedAt      *time.Time
	ResolutionNotes string
	ResolvedBy      string
}

// NewAlertState opens a new alert
func NewAlertState(key inventory.StockKey, alertType AlertType, severity Severity, threshold, current int64, message string, now time.Time) (*AlertState, error) {
	if !alertType.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("Invalid alert type")
	}
	if !severity.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("Invalid alert severity")
	}
	return &AlertState{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		ProductID:         key.ProductID,
		WarehouseID:       key.WarehouseID,
		AlertType:         alertType,
		Severity:          severity,
		Message:           message,
		ThresholdValue:    threshold,
		CurrentValue:      current,
		OpenedAt:          now,
	}, nil
}

// Key returns the stock key the alert is about
func (a *AlertState) Key() inventory.StockKey {
	return inventory.StockKey{ProductID: a.ProductID, WarehouseID: a.WarehouseID}
}

// IsOpen reports whether the alert is still active
func (a *AlertState) IsOpen() bool {
	return !a.IsResolved
}

// AutoResolved reports whether the alert was closed by evaluation rather than by an operator
func (a *AlertState) AutoResolved() bool {
	return a.IsResolved && a.ResolutionNotes == ""
}

// Duration is how long the alert stayed open. ok is false while the alert is open.
func (a *AlertState) Duration() (d time.Duration, ok bool) {
	if !a.IsResolved || a.ResolvedAt == nil {
		return 0, false
	}
	return a.ResolvedAt.Sub(a.OpenedAt), true
}

// Resolve closes the alert on behalf of an operator. Notes are mandatory.
func (a *AlertState) Resolve(notes, resolvedBy string, now time.Time) error {
	if a.IsResolved {
		return shared.ErrAlreadyResolved
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return shared.ErrMissingResolutionNotes
	}
	a.close(now)
	a.ResolutionNotes = notes
	a.ResolvedBy = resolvedBy
	return nil
}

// autoResolve closes the alert because its condition no longer holds
func (a *AlertState) autoResolve(now time.Time) {
	a.close(now)
	a.ResolutionNotes = ""
	a.ResolvedBy = ""
}

// refresh updates the observed values, reporting whether anything changed
func (a *AlertState) refresh(threshold, current int64, message string, now time.Time) bool {
	if a.CurrentValue == current && a.ThresholdValue == threshold {
		return false
	}
	a.CurrentValue = current
	a.ThresholdValue = threshold
	a.Message = message
	a.Touch(now)
	return true
}

func (a *AlertState) close(now time.Time) {
	resolvedAt := now
	a.IsResolved = true
	a.ResolvedAt = &resolvedAt
	a.Touch(now)
}
