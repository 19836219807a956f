package alert

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
)

// Evaluator derives alert state from a stock record snapshot.
// It must be called inside the same transaction that produced the snapshot.
type Evaluator struct {
	config Config
}

// NewEvaluator creates an evaluator with the given rule configuration
func NewEvaluator(config Config) *Evaluator {
	return &Evaluator{config: config}
}

// Config returns the evaluator's rule configuration
func (e *Evaluator) Config() Config {
	return e.config
}

// Evaluate compares record against every rule and reconciles the open alerts
// for its key. For each rule: a breach with no open alert opens one, a breach
// with an open alert refreshes its values in place, and an open alert whose
// condition no longer holds is auto-resolved without notes.
//
// Running Evaluate twice on an unchanged record returns no changes.
func (e *Evaluator) Evaluate(ctx context.Context, repo Repository, record *inventory.StockRecord, now time.Time) ([]StateChange, error) {
	key := record.Key()

	open, err := repo.FindOpen(ctx, key)
	if err != nil {
		return nil, err
	}
	openByType := make(map[AlertType]*AlertState, len(open))
	for i := range open {
		if _, seen := openByType[open[i].AlertType]; !seen {
			openByType[open[i].AlertType] = &open[i]
		}
	}

	var changes []StateChange
	for _, cond := range e.config.assess(record) {
		existing := openByType[cond.alertType]

		switch {
		case cond.holds && existing == nil:
			a, err := NewAlertState(key, cond.alertType, cond.severity, cond.threshold, cond.current, cond.message(key), now)
			if err != nil {
				return nil, err
			}
			if err := repo.Create(ctx, a); err != nil {
				return nil, err
			}
			changes = append(changes, opened(a))

		case cond.holds:
			previous := existing.CurrentValue
			expected := existing.Version
			if !existing.refresh(cond.threshold, cond.current, cond.message(key), now) {
				continue
			}
			if err := repo.CompareAndSwap(ctx, existing, expected); err != nil {
				return nil, err
			}
			changes = append(changes, updated(existing, previous))

		case existing != nil:
			expected := existing.Version
			existing.autoResolve(now)
			if err := repo.CompareAndSwap(ctx, existing, expected); err != nil {
				return nil, err
			}
			changes = append(changes, resolved(existing, true))
		}
	}

	return changes, nil
}
