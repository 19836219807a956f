package alert

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
)

// Filter narrows alert listings
type Filter struct {
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
	AlertType   AlertType
	Severity    Severity
	OpenOnly    bool
	Offset      int
	Limit       int
}

// Repository persists AlertState. Alerts are written only by the evaluator and by operator resolution.
type Repository interface {
	// FindByID loads an alert. Returns shared.ErrNotFound if absent.
	FindByID(ctx context.Context, id uuid.UUID) (*AlertState, error)

	// FindOpen returns the open alerts for a stock key
	FindOpen(ctx context.Context, key inventory.StockKey) ([]AlertState, error)

	// Create stores a newly opened alert. Fails with shared.ErrConcurrentModification
	// if an open alert of the same type already exists for the key.
	Create(ctx context.Context, alert *AlertState) error

	// CompareAndSwap writes alert only if its stored version equals expectedVersion
	CompareAndSwap(ctx context.Context, alert *AlertState, expectedVersion int) error

	// List returns alerts matching the filter, newest first
	List(ctx context.Context, filter Filter) ([]AlertState, error)

	// Count counts alerts matching the filter
	Count(ctx context.Context, filter Filter) (int64, error)
}
