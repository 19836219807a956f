package memstore

import (
	"context"
	"sort"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

type stockRecordRepository struct {
	a access
}

func (r *stockRecordRepository) Get(_ context.Context, key inventory.StockKey) (*inventory.StockRecord, error) {
	var out *inventory.StockRecord
	err := r.a.with(false, func(st *state) error {
		rec, ok := st.records[key]
		if !ok {
			return shared.ErrUnknownStockRecord
		}
		out = rec.Clone()
		return nil
	})
	return out, err
}

func (r *stockRecordRepository) GetByID(_ context.Context, id uuid.UUID) (*inventory.StockRecord, error) {
	var out *inventory.StockRecord
	err := r.a.with(false, func(st *state) error {
		for _, rec := range st.records {
			if rec.ID == id {
				out = rec.Clone()
				return nil
			}
		}
		return shared.ErrUnknownStockRecord
	})
	return out, err
}

func (r *stockRecordRepository) Insert(_ context.Context, record *inventory.StockRecord) error {
	return r.a.with(true, func(st *state) error {
		key := record.Key()
		if _, exists := st.records[key]; exists {
			return shared.ErrConcurrentModification.WithMessage("Stock record already exists for this product and warehouse")
		}
		st.records[key] = *record.Clone()
		return nil
	})
}

func (r *stockRecordRepository) CompareAndSwap(_ context.Context, record *inventory.StockRecord, expectedVersion int) error {
	return r.a.with(true, func(st *state) error {
		key := record.Key()
		current, ok := st.records[key]
		if !ok {
			return shared.ErrUnknownStockRecord
		}
		if current.Version != expectedVersion {
			return shared.ErrConcurrentModification
		}
		record.Version = expectedVersion + 1
		st.records[key] = *record.Clone()
		return nil
	})
}

func (r *stockRecordRepository) List(_ context.Context, filter inventory.StockRecordFilter) ([]inventory.StockRecord, error) {
	var out []inventory.StockRecord
	err := r.a.with(false, func(st *state) error {
		out = matchRecords(st, filter)
		out = page(out, filter.Offset, filter.Limit)
		return nil
	})
	return out, err
}

func (r *stockRecordRepository) Count(_ context.Context, filter inventory.StockRecordFilter) (int64, error) {
	var n int64
	err := r.a.with(false, func(st *state) error {
		n = int64(len(matchRecords(st, filter)))
		return nil
	})
	return n, err
}

func matchRecords(st *state, filter inventory.StockRecordFilter) []inventory.StockRecord {
	out := make([]inventory.StockRecord, 0)
	for _, rec := range st.records {
		if filter.ProductID != nil && rec.ProductID != *filter.ProductID {
			continue
		}
		if filter.WarehouseID != nil && rec.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.ActiveOnly && !rec.IsActive {
			continue
		}
		if filter.Status != "" && rec.StockStatus() != filter.Status {
			continue
		}
		if filter.AtOrBelowReorderPoint && rec.Quantity > rec.ReorderPoint {
			continue
		}
		out = append(out, *rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().Compare(out[j].Key()) < 0
	})
	return out
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ inventory.StockRecordRepository = (*stockRecordRepository)(nil)
