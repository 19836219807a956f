package purchasing

import (
	"context"
	"testing"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockStockReceiver is a testify mock of StockReceiver
type MockStockReceiver struct {
	mock.Mock
}

func (m *MockStockReceiver) Receive(ctx context.Context, req inventoryapp.ReceiveRequest) (*inventoryapp.StockResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.StockResult), args.Error(1)
}

func TestReceivingService_ReceiveLineItems(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewStore()
	engine := inventoryapp.NewEngine(store, alert.NewEvaluator(alert.DefaultConfig()), inventoryapp.DefaultEngineConfig(), zaptest.NewLogger(t))
	service := NewReceivingService(engine, zaptest.NewLogger(t))

	poID, warehouse := uuid.New(), uuid.New()
	p1, p2, p3 := uuid.New(), uuid.New(), uuid.New()
	cost := decimal.RequireFromString("3.75")

	result, err := service.ReceiveLineItems(ctx, ReceiveLineItemsRequest{
		PurchaseOrderID: poID,
		WarehouseID:     warehouse,
		Items: []LineItem{
			{ProductID: p1, ReceivedQuantity: 40, UnitCost: &cost},
			{ProductID: p2, ReceivedQuantity: 0},
			{ProductID: p3, ReceivedQuantity: -2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ReceivedCount)
	assert.Equal(t, 1, result.SkippedCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Lines, 3)
	assert.Equal(t, LineStatusReceived, result.Lines[0].Status)
	assert.Equal(t, LineStatusSkipped, result.Lines[1].Status)
	assert.Equal(t, LineStatusFailed, result.Lines[2].Status)
	assert.Equal(t, shared.CodeInvalidQuantity, result.Lines[2].ErrorCode)

	movements, err := store.Movements().List(ctx, inventory.MovementFilter{
		ReferenceType: inventory.ReferenceTypePurchaseOrder,
		ReferenceID:   poID.String(),
	})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, p1, movements[0].ProductID)
	assert.True(t, movements[0].UnitCost.Valid)

	_, err = store.StockRecords().Get(ctx, inventory.StockKey{ProductID: p2, WarehouseID: warehouse})
	assert.ErrorIs(t, err, shared.ErrUnknownStockRecord, "skipped lines create nothing")
}

func TestReceivingService_FailedLineDoesNotRollBackEarlierLines(t *testing.T) {
	ctx := context.Background()
	receiver := new(MockStockReceiver)
	service := NewReceivingService(receiver, zaptest.NewLogger(t))

	poID, warehouse := uuid.New(), uuid.New()
	ok, conflicted := uuid.New(), uuid.New()

	receiver.On("Receive", ctx, mock.MatchedBy(func(req inventoryapp.ReceiveRequest) bool {
		return req.ProductID == ok
	})).Return(&inventoryapp.StockResult{Record: inventoryapp.StockRecordResponse{ProductID: ok, Quantity: 5}}, nil).Once()
	receiver.On("Receive", ctx, mock.MatchedBy(func(req inventoryapp.ReceiveRequest) bool {
		return req.ProductID == conflicted &&
			req.ReferenceType == inventory.ReferenceTypePurchaseOrder &&
			req.ReferenceID == poID.String()
	})).Return(nil, shared.ErrConcurrentModification).Once()

	items := []LineItem{
		{ProductID: ok, ReceivedQuantity: 5},
		{ProductID: conflicted, ReceivedQuantity: 7},
	}
	result, err := service.ReceiveLineItems(ctx, ReceiveLineItemsRequest{
		PurchaseOrderID: poID,
		WarehouseID:     warehouse,
		Items:           items,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ReceivedCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, shared.CodeConcurrentModification, result.Lines[1].ErrorCode)
	assert.Equal(t, []LineItem{items[1]}, result.FailedItems(items))
	receiver.AssertExpectations(t)
}

func TestReceivingService_Validation(t *testing.T) {
	service := NewReceivingService(new(MockStockReceiver), nil)

	_, err := service.ReceiveLineItems(context.Background(), ReceiveLineItemsRequest{WarehouseID: uuid.New()})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = service.ReceiveLineItems(context.Background(), ReceiveLineItemsRequest{PurchaseOrderID: uuid.New()})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
