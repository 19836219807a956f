package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var metricsNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestMetrics(t *testing.T) (*StockMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewStockMetrics(provider.Meter(MeterName))
	require.NoError(t, err)
	return m, reader
}

// sumOf returns the int64 sum data point of name whose attributes include attrs
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if hasAll(dp.Attributes, attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAll(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, kv := range attrs {
		v, ok := set.Value(kv.Key)
		if !ok || v != kv.Value {
			return false
		}
	}
	return true
}

func TestStockMetrics_RecordOperation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOperation(ctx, "transfer", "", 3*time.Millisecond)
	m.RecordOperation(ctx, "transfer", shared.CodeInsufficientStock, time.Millisecond)
	m.RecordOperation(ctx, "adjust", shared.CodeConcurrentModification, time.Millisecond)

	assert.Equal(t, int64(2), sumOf(t, reader, "stock.operations", attribute.String("operation", "transfer")))
	assert.Equal(t, int64(1), sumOf(t, reader, "stock.operations", attribute.String("result", "ok")))
	assert.Equal(t, int64(1), sumOf(t, reader, "stock.operations", attribute.String("result", shared.CodeInsufficientStock)))
	assert.Equal(t, int64(1), sumOf(t, reader, "stock.version_conflicts", attribute.String("operation", "adjust")))
}

func TestStockMetrics_HandleEvents(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	assert.ElementsMatch(t, []string{inventory.EventTypeStockChanged, alert.EventTypeAlertStateChanged}, m.EventTypes())

	rec := &inventory.StockRecord{ProductID: uuid.New(), WarehouseID: uuid.New(), Quantity: 5}
	out := &inventory.MovementEntry{MovementType: inventory.MovementTypeTransferOut, Direction: inventory.DirectionDecrease, Quantity: 7}
	in := &inventory.MovementEntry{MovementType: inventory.MovementTypeIn, Direction: inventory.DirectionIncrease, Quantity: 20}

	require.NoError(t, m.Handle(ctx, inventory.NewStockChangedEvent(rec, inventory.OperationTransfer, out, metricsNow)))
	require.NoError(t, m.Handle(ctx, inventory.NewStockChangedEvent(rec, inventory.OperationReceive, in, metricsNow)))
	require.NoError(t, m.Handle(ctx, inventory.NewStockChangedEvent(rec, inventory.OperationReserve, nil, metricsNow)))

	assert.Equal(t, int64(2), sumOf(t, reader, "stock.movements"))
	assert.Equal(t, int64(7), sumOf(t, reader, "stock.movement.quantity", attribute.String("direction", "decrease")))
	assert.Equal(t, int64(20), sumOf(t, reader, "stock.movement.quantity",
		attribute.String("direction", "increase"), attribute.String("movement_type", string(inventory.MovementTypeIn))))

	m.SeedOpenAlerts(ctx, map[alert.AlertType]int64{alert.AlertTypeLowStock: 3})
	a := alert.AlertState{AlertType: alert.AlertTypeLowStock, Severity: alert.SeverityMedium}
	require.NoError(t, m.Handle(ctx, alert.NewAlertStateChangedEvent(alert.StateChange{Kind: alert.ChangeKindOpened, Alert: a}, metricsNow)))
	require.NoError(t, m.Handle(ctx, alert.NewAlertStateChangedEvent(alert.StateChange{Kind: alert.ChangeKindUpdated, Alert: a}, metricsNow)))
	require.NoError(t, m.Handle(ctx, alert.NewAlertStateChangedEvent(alert.StateChange{Kind: alert.ChangeKindResolved, Alert: a, AutoResolved: true}, metricsNow)))
	require.NoError(t, m.Handle(ctx, alert.NewAlertStateChangedEvent(alert.StateChange{Kind: alert.ChangeKindResolved, Alert: a}, metricsNow)))

	lowStock := attribute.String("alert_type", string(alert.AlertTypeLowStock))
	assert.Equal(t, int64(2), sumOf(t, reader, "stock.alerts.open", lowStock))
	assert.Equal(t, int64(4), sumOf(t, reader, "stock.alert.transitions", lowStock))
	assert.Equal(t, int64(1), sumOf(t, reader, "stock.alert.transitions", attribute.Bool("auto_resolved", true)))

	other := shared.NewBaseDomainEvent("Other", "Thing", uuid.New(), metricsNow)
	assert.Error(t, m.Handle(ctx, &other))
}

func TestStockMetrics_HandlerFailures(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.ObserveHandlerFailure(context.Background(), inventory.EventTypeStockChanged, "*alert.NotificationHandler")
	m.ObserveHandlerFailure(context.Background(), inventory.EventTypeStockChanged, "*alert.NotificationHandler")

	assert.Equal(t, int64(2), sumOf(t, reader, "events.handler_failures",
		attribute.String("handler", "*alert.NotificationHandler")))
}

func TestStockMetrics_RecordReconciliation(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordReconciliation(context.Background(), 7, 2)

	assert.EqualValues(t, 7, sumOf(t, reader, "stock.reconciliation.records", attribute.String("result", "consistent")))
	assert.EqualValues(t, 2, sumOf(t, reader, "stock.reconciliation.records", attribute.String("result", "drift")))
}
