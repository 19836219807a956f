package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName names the stock ledger instruments
const MeterName = "github.com/erp/stockledger/stock"

// StockMetrics records engine outcomes directly and ledger and alert activity
// from committed events
type StockMetrics struct {
	operations       metric.Int64Counter
	duration         metric.Float64Histogram
	conflicts        metric.Int64Counter
	movements        metric.Int64Counter
	movedQuantity    metric.Int64Counter
	alertTransitions metric.Int64Counter
	openAlerts       metric.Int64UpDownCounter
	handlerFailures  metric.Int64Counter
	reconciled       metric.Int64Counter
}

// NewStockMetrics creates the instruments on meter
func NewStockMetrics(meter metric.Meter) (*StockMetrics, error) {
	m := &StockMetrics{}
	var err error
	if m.operations, err = meter.Int64Counter("stock.operations",
		metric.WithDescription("Consistency engine operations by outcome")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("stock.operation.duration",
		metric.WithDescription("Consistency engine operation latency, commit included"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.conflicts, err = meter.Int64Counter("stock.version_conflicts",
		metric.WithDescription("Operations rejected by the version check")); err != nil {
		return nil, err
	}
	if m.movements, err = meter.Int64Counter("stock.movements",
		metric.WithDescription("Ledger entries appended")); err != nil {
		return nil, err
	}
	if m.movedQuantity, err = meter.Int64Counter("stock.movement.quantity",
		metric.WithDescription("Units moved, by movement type and direction")); err != nil {
		return nil, err
	}
	if m.alertTransitions, err = meter.Int64Counter("stock.alert.transitions",
		metric.WithDescription("Alert opened, updated and resolved transitions")); err != nil {
		return nil, err
	}
	if m.openAlerts, err = meter.Int64UpDownCounter("stock.alerts.open",
		metric.WithDescription("Currently open alerts by type")); err != nil {
		return nil, err
	}
	if m.handlerFailures, err = meter.Int64Counter("events.handler_failures",
		metric.WithDescription("Event subscriber failures")); err != nil {
		return nil, err
	}
	if m.reconciled, err = meter.Int64Counter("stock.reconciliation.records",
		metric.WithDescription("Stock records checked against the ledger, by result")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOperation counts one engine operation. errorCode is empty on success.
func (m *StockMetrics) RecordOperation(ctx context.Context, operation, errorCode string, d time.Duration) {
	result := "ok"
	if errorCode != "" {
		result = errorCode
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	)
	m.operations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(d.Microseconds())/1000, attrs)
	if errorCode == shared.CodeConcurrentModification {
		m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	}
}

// SeedOpenAlerts sets the starting value of the open alert gauge from the store
func (m *StockMetrics) SeedOpenAlerts(ctx context.Context, open map[alert.AlertType]int64) {
	for t, n := range open {
		m.openAlerts.Add(ctx, n, metric.WithAttributes(attribute.String("alert_type", string(t))))
	}
}

// ObserveHandlerFailure counts an event subscriber failure
func (m *StockMetrics) ObserveHandlerFailure(ctx context.Context, eventType, handler string) {
	m.handlerFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("handler", handler),
	))
}

// RecordReconciliation counts one sweep's checked and drifted records
func (m *StockMetrics) RecordReconciliation(ctx context.Context, consistent, drifted int) {
	m.reconciled.Add(ctx, int64(consistent), metric.WithAttributes(attribute.String("result", "consistent")))
	m.reconciled.Add(ctx, int64(drifted), metric.WithAttributes(attribute.String("result", "drift")))
}

// EventTypes subscribes to stock and alert changes
func (m *StockMetrics) EventTypes() []string {
	return []string{inventory.EventTypeStockChanged, alert.EventTypeAlertStateChanged}
}

// Handle updates ledger and alert instruments from a committed event
func (m *StockMetrics) Handle(ctx context.Context, evt shared.DomainEvent) error {
	switch e := evt.(type) {
	case *inventory.StockChangedEvent:
		if e.MovementType == "" {
			return nil
		}
		direction := "increase"
		qty := e.Delta
		if qty < 0 {
			direction = "decrease"
			qty = -qty
		}
		m.movements.Add(ctx, 1, metric.WithAttributes(attribute.String("movement_type", string(e.MovementType))))
		m.movedQuantity.Add(ctx, qty, metric.WithAttributes(
			attribute.String("movement_type", string(e.MovementType)),
			attribute.String("direction", direction),
		))
	case *alert.AlertStateChangedEvent:
		m.alertTransitions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(e.Kind)),
			attribute.String("alert_type", string(e.AlertType)),
			attribute.String("severity", string(e.Severity)),
			attribute.Bool("auto_resolved", e.AutoResolved),
		))
		typeAttr := metric.WithAttributes(attribute.String("alert_type", string(e.AlertType)))
		switch e.Kind {
		case alert.ChangeKindOpened:
			m.openAlerts.Add(ctx, 1, typeAttr)
		case alert.ChangeKindResolved:
			m.openAlerts.Add(ctx, -1, typeAttr)
		}
	default:
		return fmt.Errorf("stock metrics: unexpected event %s", evt.EventType())
	}
	return nil
}

var _ shared.EventHandler = (*StockMetrics)(nil)
