package memstore

import (
	"context"
	"sort"

	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

type alertRepository struct {
	a access
}

func copyAlert(a alert.AlertState) *alert.AlertState {
	c := a
	c.ClearDomainEvents()
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

func (r *alertRepository) FindByID(_ context.Context, id uuid.UUID) (*alert.AlertState, error) {
	var out *alert.AlertState
	err := r.a.with(false, func(st *state) error {
		a, ok := st.alerts[id]
		if !ok {
			return shared.ErrNotFound.WithMessage("Alert not found")
		}
		out = copyAlert(a)
		return nil
	})
	return out, err
}

func (r *alertRepository) FindOpen(_ context.Context, key inventory.StockKey) ([]alert.AlertState, error) {
	var out []alert.AlertState
	err := r.a.with(false, func(st *state) error {
		out = make([]alert.AlertState, 0)
		for _, a := range st.alerts {
			if a.IsOpen() && a.Key() == key {
				out = append(out, *copyAlert(a))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
		return nil
	})
	return out, err
}

func (r *alertRepository) Create(_ context.Context, a *alert.AlertState) error {
	return r.a.with(true, func(st *state) error {
		for _, existing := range st.alerts {
			if existing.IsOpen() && existing.Key() == a.Key() && existing.AlertType == a.AlertType {
				return shared.ErrConcurrentModification.WithMessage("An open alert of this type already exists")
			}
		}
		st.alerts[a.ID] = *copyAlert(*a)
		return nil
	})
}

func (r *alertRepository) CompareAndSwap(_ context.Context, a *alert.AlertState, expectedVersion int) error {
	return r.a.with(true, func(st *state) error {
		current, ok := st.alerts[a.ID]
		if !ok {
			return shared.ErrNotFound.WithMessage("Alert not found")
		}
		if current.Version != expectedVersion {
			return shared.ErrConcurrentModification
		}
		a.Version = expectedVersion + 1
		st.alerts[a.ID] = *copyAlert(*a)
		return nil
	})
}

func (r *alertRepository) List(_ context.Context, filter alert.Filter) ([]alert.AlertState, error) {
	var out []alert.AlertState
	err := r.a.with(false, func(st *state) error {
		out = page(matchAlerts(st, filter), filter.Offset, filter.Limit)
		return nil
	})
	return out, err
}

func (r *alertRepository) Count(_ context.Context, filter alert.Filter) (int64, error) {
	var n int64
	err := r.a.with(false, func(st *state) error {
		n = int64(len(matchAlerts(st, filter)))
		return nil
	})
	return n, err
}

// matchAlerts returns matching alerts newest first
func matchAlerts(st *state, filter alert.Filter) []alert.AlertState {
	out := make([]alert.AlertState, 0)
	for _, a := range st.alerts {
		if filter.ProductID != nil && a.ProductID != *filter.ProductID {
			continue
		}
		if filter.WarehouseID != nil && a.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.AlertType != "" && a.AlertType != filter.AlertType {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.OpenOnly && !a.IsOpen() {
			continue
		}
		out = append(out, *copyAlert(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.After(out[j].OpenedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

var _ alert.Repository = (*alertRepository)(nil)
