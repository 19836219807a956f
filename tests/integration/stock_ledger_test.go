package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	alertapp "github.com/erp/stockledger/internal/application/alert"
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/application/purchasing"
	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/event"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/erp/stockledger/internal/interfaces/http/router"
	"github.com/erp/stockledger/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

type ledgerServer struct {
	db     *TestDB
	client *testutil.APIClient
	events *testutil.EventRecorder
}

func newLedgerServer(t *testing.T) *ledgerServer {
	t.Helper()

	tdb := NewSharedTestDB(t)
	log := zap.NewNop()

	bus := event.NewInMemoryEventBus(log)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	events := testutil.NewEventRecorder()
	bus.Subscribe(events)

	scope := persistence.NewGormTransactionScope(tdb.DB)
	alertRepo := persistence.NewGormAlertRepository(tdb.DB)
	evaluator := alert.NewEvaluator(alert.DefaultConfig())

	engine := inventoryapp.NewEngine(scope, evaluator, inventoryapp.DefaultEngineConfig(), log)
	engine.SetEventPublisher(bus)
	queries := inventoryapp.NewQueryService(
		persistence.NewGormStockRecordRepository(tdb.DB),
		persistence.NewGormMovementRepository(tdb.DB),
		nil, log)
	alerts := alertapp.NewService(scope, alertRepo, evaluator, log)
	alerts.SetEventPublisher(bus)

	r, err := router.New(router.Config{
		ServiceName: "stockledger-test",
		MaxBodySize: 1 << 20,
		CORS:        middleware.DefaultCORSConfig(),
	}, router.Handlers{
		Inventory:  handler.NewInventoryHandler(engine, queries),
		Alerts:     handler.NewAlertHandler(alerts),
		Purchasing: handler.NewPurchasingHandler(purchasing.NewReceivingService(engine, log)),
		System:     handler.NewSystemHandler("test", map[string]handler.HealthCheck{"database": func(ctx context.Context) error { return tdb.SqlDB.PingContext(ctx) }}),
	}, log)
	require.NoError(t, err)

	return &ledgerServer{
		db:     tdb,
		client: &testutil.APIClient{Handler: r, Actor: "integration"},
		events: events,
	}
}

func (s *ledgerServer) receive(t *testing.T, product, warehouse uuid.UUID, qty int64) inventoryapp.StockResult {
	t.Helper()
	w := s.client.Do(t, http.MethodPost, "/api/v1/inventory/stock/receive", inventoryapp.ReceiveRequest{
		ProductID: product, WarehouseID: warehouse, Quantity: qty,
	})
	return testutil.RequireOK[inventoryapp.StockResult](t, w)
}

func (s *ledgerServer) reconcile(t *testing.T, product, warehouse uuid.UUID) inventoryapp.ReconciliationResponse {
	t.Helper()
	w := s.client.Do(t, http.MethodGet, fmt.Sprintf("/api/v1/inventory/reconcile?product_id=%s&warehouse_id=%s", product, warehouse), nil)
	return testutil.RequireOK[inventoryapp.ReconciliationResponse](t, w)
}

func TestStockLedger_OperationsKeepLedgerConsistent(t *testing.T) {
	s := newLedgerServer(t)
	product := testutil.NewTestUUID("widget")
	warehouse := testutil.NewTestUUID("main")

	cost := decimal.RequireFromString("3.25")
	w := s.client.Do(t, http.MethodPost, "/api/v1/inventory/stock/receive", inventoryapp.ReceiveRequest{
		ProductID: product, WarehouseID: warehouse, Quantity: 40, UnitCost: &cost,
		ReferenceType: "manual", ReferenceID: "r-1",
	})
	received := testutil.RequireOK[inventoryapp.StockResult](t, w)
	assert.EqualValues(t, 40, received.Record.Quantity)
	require.NotNil(t, received.Movement)
	assert.EqualValues(t, 40, received.Movement.BalanceAfter)

	w = s.client.Do(t, http.MethodPost, "/api/v1/inventory/stock/adjust", inventoryapp.AdjustRequest{
		ProductID: product, WarehouseID: warehouse, Quantity: 25, Mode: inventoryapp.AdjustModeSet, Notes: "cycle count",
	})
	adjusted := testutil.RequireOK[inventoryapp.StockResult](t, w)
	assert.EqualValues(t, 25, adjusted.Record.Quantity)
	require.NotNil(t, adjusted.Movement)
	assert.EqualValues(t, -15, adjusted.Movement.SignedQuantity)

	w = s.client.Do(t, http.MethodPost, "/api/v1/inventory/stock/reserve", inventoryapp.ReservationRequest{
		ProductID: product, WarehouseID: warehouse, Quantity: 20,
	})
	reserved := testutil.RequireOK[inventoryapp.StockResult](t, w)
	assert.EqualValues(t, 5, reserved.Record.AvailableQuantity)

	w = s.client.Do(t, http.MethodPost, "/api/v1/inventory/stock/issue", inventoryapp.IssueRequest{
		ProductID: product, WarehouseID: warehouse, Quantity: 10,
	})
	testutil.AssertErrorCode(t, w, http.StatusBadRequest, shared.CodeInsufficientStock)

	w = s.client.Do(t, http.MethodPost, "/api/v1/inventory/stock/adjust", inventoryapp.AdjustRequest{
		ProductID: product, WarehouseID: warehouse, Quantity: 30, Mode: inventoryapp.AdjustModeSubtract,
	})
	testutil.AssertErrorCode(t, w, http.StatusBadRequest, shared.CodeInsufficientStock)

	rec := s.reconcile(t, product, warehouse)
	assert.True(t, rec.Consistent)
	assert.EqualValues(t, 25, rec.LedgerQuantity)

	w = s.client.Do(t, http.MethodGet, "/api/v1/inventory/movements?product_id="+product.String(), nil)
	movements := testutil.RequireOK[[]inventoryapp.MovementResponse](t, w)
	assert.Len(t, movements, 2)

	var stockEvents int
	testutil.RequireEventually(t, func() bool {
		stockEvents = len(s.events.OfType(inventory.EventTypeStockChanged))
		return stockEvents >= 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, stockEvents, "failed operations must not publish")
}

func TestStockLedger_ConcurrentTransfersConserveStock(t *testing.T) {
	s := newLedgerServer(t)
	product := testutil.NewTestUUID("bolt")
	from := testutil.NewTestUUID("east")
	to := testutil.NewTestUUID("west")

	s.receive(t, product, from, 100)
	s.receive(t, product, to, 1)

	const workers = 8
	const perWorker = 5
	var moved, conflicts atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < perWorker; {
				w := s.client.Do(t, http.MethodPost, "/api/v1/inventory/stock/transfer", inventoryapp.TransferRequest{
					ProductID: product, FromWarehouseID: from, ToWarehouseID: to, Quantity: 2,
				})
				switch w.Code {
				case http.StatusOK:
					moved.Add(2)
					n++
				case http.StatusConflict:
					conflicts.Add(1)
				default:
					t.Errorf("unexpected transfer response %d: %s", w.Code, w.Body.String())
					return
				}
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, workers*perWorker*2, moved.Load())
	t.Logf("transfers retried after version conflicts: %d", conflicts.Load())

	w := s.client.Do(t, http.MethodGet, "/api/v1/inventory/products/"+product.String()+"/levels", nil)
	levels := testutil.RequireOK[inventoryapp.StockLevelsResponse](t, w)
	assert.EqualValues(t, 101, levels.TotalQuantity)

	source := s.reconcile(t, product, from)
	dest := s.reconcile(t, product, to)
	assert.True(t, source.Consistent)
	assert.True(t, dest.Consistent)
	assert.EqualValues(t, 100-moved.Load(), source.RecordQuantity)
	assert.EqualValues(t, 1+moved.Load(), dest.RecordQuantity)

	var count int64
	require.NoError(t, s.db.DB.Table("stock_movements").
		Where("product_id = ? AND movement_type = ?", product, inventory.MovementTypeTransferOut).
		Count(&count).Error)
	assert.EqualValues(t, workers*perWorker, count)
}

func TestStockLedger_AlertLifecycle(t *testing.T) {
	s := newLedgerServer(t)
	product := testutil.NewTestUUID("gear")
	warehouse := testutil.NewTestUUID("north")

	received := s.receive(t, product, warehouse, 5)
	require.Len(t, received.AlertChanges, 1)
	assert.Equal(t, alert.AlertTypeLowStock, received.AlertChanges[0].AlertType)
	assert.Equal(t, alert.ChangeKindOpened, received.AlertChanges[0].Kind)

	w := s.client.Do(t, http.MethodPost, "/api/v1/inventory/stock/issue", inventoryapp.IssueRequest{
		ProductID: product, WarehouseID: warehouse, Quantity: 5,
	})
	issued := testutil.RequireOK[inventoryapp.StockResult](t, w)
	kinds := map[alert.AlertType]alert.ChangeKind{}
	for _, c := range issued.AlertChanges {
		kinds[c.AlertType] = c.Kind
	}
	assert.Equal(t, alert.ChangeKindResolved, kinds[alert.AlertTypeLowStock])
	assert.Equal(t, alert.ChangeKindOpened, kinds[alert.AlertTypeOutOfStock])

	w = s.client.Do(t, http.MethodGet, "/api/v1/alerts?open_only=true&product_id="+product.String(), nil)
	open := testutil.RequireOK[[]alertapp.AlertResponse](t, w)
	require.Len(t, open, 1)
	outOfStock := open[0]
	assert.Equal(t, alert.AlertTypeOutOfStock, outOfStock.AlertType)

	resolvePath := "/api/v1/alerts/" + outOfStock.ID.String() + "/resolve"
	w = s.client.Do(t, http.MethodPost, resolvePath, alertapp.ResolveRequest{})
	testutil.AssertErrorCode(t, w, http.StatusBadRequest, shared.CodeMissingResolutionNotes)

	w = s.client.Do(t, http.MethodPost, resolvePath, alertapp.ResolveRequest{Notes: "supplier shipment confirmed"})
	resolved := testutil.RequireOK[alertapp.AlertResponse](t, w)
	assert.True(t, resolved.IsResolved)
	assert.False(t, resolved.AutoResolved)
	assert.Equal(t, "integration", resolved.ResolvedBy)

	w = s.client.Do(t, http.MethodPost, resolvePath, alertapp.ResolveRequest{Notes: "again"})
	testutil.AssertErrorCode(t, w, http.StatusConflict, shared.CodeAlreadyResolved)

	testutil.RequireEventually(t, func() bool {
		return len(s.events.OfType(alert.EventTypeAlertStateChanged)) >= 4
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStockLedger_PurchaseOrderReceipt(t *testing.T) {
	s := newLedgerServer(t)
	order := uuid.New()
	warehouse := testutil.NewTestUUID("dock")
	bolts := testutil.NewTestUUID("po-bolt")
	nuts := testutil.NewTestUUID("po-nut")

	w := s.client.Do(t, http.MethodPost, "/api/v1/purchasing/orders/"+order.String()+"/receipts", purchasing.ReceiveLineItemsRequest{
		WarehouseID: warehouse,
		Items: []purchasing.LineItem{
			{ProductID: bolts, ReceivedQuantity: 50},
			{ProductID: nuts, ReceivedQuantity: 0},
			{ProductID: nuts, ReceivedQuantity: 20},
		},
	})
	result := testutil.RequireOK[purchasing.ReceiveLineItemsResult](t, w)
	assert.Equal(t, 2, result.ReceivedCount)
	assert.Equal(t, 1, result.SkippedCount)
	assert.Zero(t, result.FailedCount)

	w = s.client.Do(t, http.MethodGet, "/api/v1/inventory/movements?reference_type=purchase_order&reference_id="+order.String(), nil)
	movements := testutil.RequireOK[[]inventoryapp.MovementResponse](t, w)
	assert.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, inventory.MovementTypeIn, m.MovementType)
	}

	assert.True(t, s.reconcile(t, bolts, warehouse).Consistent)
	assert.True(t, s.reconcile(t, nuts, warehouse).Consistent)

	w = s.client.Do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
