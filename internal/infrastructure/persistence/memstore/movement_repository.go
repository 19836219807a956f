package memstore

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

type movementRepository struct {
	a access
}

func (r *movementRepository) Append(_ context.Context, entries ...*inventory.MovementEntry) error {
	return r.a.with(true, func(st *state) error {
		for _, e := range entries {
			if e == nil {
				return shared.ErrInvalidInput.WithMessage("Movement entry cannot be nil")
			}
			st.movements = append(st.movements, *e)
		}
		return nil
	})
}

// List returns entries in append order, which is oldest first
func (r *movementRepository) List(_ context.Context, filter inventory.MovementFilter) ([]inventory.MovementEntry, error) {
	var out []inventory.MovementEntry
	err := r.a.with(false, func(st *state) error {
		matched := make([]inventory.MovementEntry, 0)
		for _, m := range st.movements {
			if filter.ProductID != nil && m.ProductID != *filter.ProductID {
				continue
			}
			if filter.WarehouseID != nil && m.WarehouseID != *filter.WarehouseID {
				continue
			}
			if filter.MovementType != "" && m.MovementType != filter.MovementType {
				continue
			}
			if filter.ReferenceType != "" && m.ReferenceType != filter.ReferenceType {
				continue
			}
			if filter.ReferenceID != "" && m.ReferenceID != filter.ReferenceID {
				continue
			}
			matched = append(matched, m)
		}
		out = page(matched, filter.Offset, filter.Limit)
		return nil
	})
	return out, err
}

func (r *movementRepository) SumSigned(_ context.Context, key inventory.StockKey) (int64, error) {
	var total int64
	err := r.a.with(false, func(st *state) error {
		for i := range st.movements {
			if st.movements[i].Key() == key {
				total += st.movements[i].SignedQuantity()
			}
		}
		return nil
	})
	return total, err
}

var _ inventory.MovementRepository = (*movementRepository)(nil)
