package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockRecordFilter narrows stock record listings
type StockRecordFilter struct {
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
	Status      StockStatus
	ActiveOnly  bool
	// AtOrBelowReorderPoint restricts to records with quantity <= reorder_point
	AtOrBelowReorderPoint bool
	Offset                int
	Limit                 int
}

// StockRecordRepository is the StockRecord store.
// Writes are explicit: Insert for new keys, CompareAndSwap for existing ones.
type StockRecordRepository interface {
	// Get loads the record for key. Returns shared.ErrUnknownStockRecord if none exists.
	Get(ctx context.Context, key StockKey) (*StockRecord, error)

	// GetByID loads a record by its surrogate ID
	GetByID(ctx context.Context, id uuid.UUID) (*StockRecord, error)

	// Insert stores a new record. Fails with shared.ErrConcurrentModification
	// when another writer created the same key first.
	Insert(ctx context.Context, record *StockRecord) error

	// CompareAndSwap writes record only if the stored version still equals
	// expectedVersion. On success record.Version becomes expectedVersion+1;
	// on mismatch it returns shared.ErrConcurrentModification and writes nothing.
	CompareAndSwap(ctx context.Context, record *StockRecord, expectedVersion int) error

	// List returns records matching the filter ordered by product then warehouse
	List(ctx context.Context, filter StockRecordFilter) ([]StockRecord, error)

	// Count counts records matching the filter
	Count(ctx context.Context, filter StockRecordFilter) (int64, error)
}

// MovementFilter narrows ledger queries
type MovementFilter struct {
	ProductID     *uuid.UUID
	WarehouseID   *uuid.UUID
	MovementType  MovementType
	ReferenceType string
	ReferenceID   string
	Offset        int
	Limit         int
}

// MovementRepository is the append-only Movement Ledger
type MovementRepository interface {
	// Append stores new entries. Entries are never updated or deleted.
	Append(ctx context.Context, entries ...*MovementEntry) error

	// List returns entries matching the filter, oldest first
	List(ctx context.Context, filter MovementFilter) ([]MovementEntry, error)

	// SumSigned returns the signed quantity total for key
	SumSigned(ctx context.Context, key StockKey) (int64, error)
}
