package alert

import (
	"context"
	"testing"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type capturePublisher struct {
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

type serviceFixture struct {
	store     *memstore.Store
	service   *Service
	publisher *capturePublisher
	now       time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	store := memstore.NewStore()
	f := &serviceFixture{store: store, publisher: &capturePublisher{}, now: testNow}
	f.service = NewService(store, store.Alerts(), alert.NewEvaluator(alert.DefaultConfig()), zaptest.NewLogger(t))
	f.service.SetEventPublisher(f.publisher)
	f.service.SetClock(func() time.Time { return f.now })
	return f
}

// seed stores a record directly, bypassing evaluation
func (f *serviceFixture) seed(t *testing.T, quantity, reorder, maxLevel int64) inventory.StockKey {
	t.Helper()
	key, err := inventory.NewStockKey(uuid.New(), uuid.New())
	require.NoError(t, err)
	rec, err := inventory.NewStockRecord(key, reorder, maxLevel, testNow)
	require.NoError(t, err)
	rec.Quantity = quantity
	require.NoError(t, f.store.StockRecords().Insert(context.Background(), rec))
	return key
}

func TestService_Evaluate(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	key := f.seed(t, 15, 20, 500)

	changes, err := f.service.Evaluate(ctx, key.ProductID, key.WarehouseID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, alert.ChangeKindOpened, changes[0].Kind)
	assert.Equal(t, alert.AlertTypeLowStock, changes[0].AlertType)
	assert.Equal(t, alert.SeverityMedium, changes[0].Severity)
	assert.Equal(t, int64(15), changes[0].CurrentValue)
	assert.Len(t, f.publisher.events, 1)

	again, err := f.service.Evaluate(ctx, key.ProductID, key.WarehouseID)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, f.publisher.events, 1)

	_, err = f.service.Evaluate(ctx, uuid.New(), key.WarehouseID)
	assert.ErrorIs(t, err, shared.ErrUnknownStockRecord)
}

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	key := f.seed(t, 0, 10, 100)

	changes, err := f.service.Evaluate(ctx, key.ProductID, key.WarehouseID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	alertID := changes[0].AlertID

	t.Run("blank notes", func(t *testing.T) {
		_, err := f.service.Resolve(ctx, alertID, ResolveRequest{Notes: "   "})
		assert.ErrorIs(t, err, shared.ErrMissingResolutionNotes)
	})

	t.Run("unknown alert", func(t *testing.T) {
		_, err := f.service.Resolve(ctx, uuid.New(), ResolveRequest{Notes: "n/a"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("resolves once", func(t *testing.T) {
		f.now = testNow.Add(90 * time.Minute)
		resp, err := f.service.Resolve(ctx, alertID, ResolveRequest{Notes: "supplier delayed", ResolvedBy: "ops"})
		require.NoError(t, err)
		assert.True(t, resp.IsResolved)
		assert.False(t, resp.AutoResolved)
		assert.Equal(t, "ops", resp.ResolvedBy)
		require.NotNil(t, resp.DurationSeconds)
		assert.Equal(t, int64(5400), *resp.DurationSeconds)

		last := f.publisher.events[len(f.publisher.events)-1].(*alert.AlertStateChangedEvent)
		assert.Equal(t, alert.ChangeKindResolved, last.Kind)
		assert.False(t, last.AutoResolved)
		assert.Equal(t, "supplier delayed", last.ResolutionNotes)

		_, err = f.service.Resolve(ctx, alertID, ResolveRequest{Notes: "again"})
		assert.ErrorIs(t, err, shared.ErrAlreadyResolved)
	})
}

func TestService_GetAndList(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	empty := f.seed(t, 0, 10, 100)
	over := f.seed(t, 150, 10, 100)

	for _, key := range []inventory.StockKey{empty, over} {
		_, err := f.service.Evaluate(ctx, key.ProductID, key.WarehouseID)
		require.NoError(t, err)
	}

	all, total, err := f.service.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	overstock, total, err := f.service.List(ctx, ListFilter{AlertType: alert.AlertTypeOverstock, OpenOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, overstock, 1)
	assert.Equal(t, alert.SeverityLow, overstock[0].Severity)

	got, err := f.service.Get(ctx, overstock[0].ID)
	require.NoError(t, err)
	assert.Equal(t, over.ProductID, got.ProductID)

	_, err = f.service.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_EvaluateInsideEngineScope(t *testing.T) {
	// the alert service and the engine share one store and one evaluator config
	ctx := context.Background()
	f := newServiceFixture(t)
	engine := inventoryapp.NewEngine(f.store, alert.NewEvaluator(alert.DefaultConfig()), inventoryapp.DefaultEngineConfig(), zaptest.NewLogger(t))
	product, warehouse := uuid.New(), uuid.New()

	_, err := engine.Receive(ctx, inventoryapp.ReceiveRequest{ProductID: product, WarehouseID: warehouse, Quantity: 3})
	require.NoError(t, err)

	changes, err := f.service.Evaluate(ctx, product, warehouse)
	require.NoError(t, err)
	assert.Empty(t, changes, "engine already evaluated inside its transaction")
}
