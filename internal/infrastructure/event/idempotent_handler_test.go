package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *MockEventHandler) EventTypes() []string {
	return m.Called().Get(0).([]string)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_SkipsRedelivery(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := new(MockEventHandler)
	evt := stockChanged()
	inner.On("Handle", mock.Anything, evt).Return(nil).Once()

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Handle(context.Background(), evt))
	}

	inner.AssertExpectations(t)
	stats := h.GetMetrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(2), stats.EventsDuplicate)
}

func TestIdempotentHandler_HandlersSharingAStoreDoNotCollide(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	first := &recordingHandler{}
	second := &recordingHandler{}
	metrics := &IdempotencyMetrics{}
	h1 := NewIdempotentHandler(first, store, nil, WithKeyPrefix("notifications"), WithIdempotencyMetrics(metrics))
	h2 := NewIdempotentHandler(second, store, nil, WithKeyPrefix("cache"), WithIdempotencyMetrics(metrics))

	evt := alertChanged()
	require.NoError(t, h1.Handle(context.Background(), evt))
	require.NoError(t, h2.Handle(context.Background(), evt))
	require.NoError(t, h2.Handle(context.Background(), evt))

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
	assert.Equal(t, int64(2), metrics.EventsProcessed.Load())
	assert.Equal(t, int64(1), metrics.EventsDuplicate.Load())

	processed, err := store.IsProcessed(context.Background(), "notifications:"+evt.EventID().String())
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestIdempotentHandler_HandlerError(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := new(MockEventHandler)
	evt := stockChanged()
	sinkErr := errors.New("sink down")
	inner.On("Handle", mock.Anything, evt).Return(sinkErr)

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	assert.ErrorIs(t, h.Handle(context.Background(), evt), sinkErr)
	assert.Equal(t, int64(1), h.GetMetrics().EventsFailed.Load())
	assert.Zero(t, h.GetMetrics().EventsProcessed.Load())
}

func TestIdempotentHandler_StoreFailureStillDelivers(t *testing.T) {
	store := new(MockIdempotencyStore)
	evt := stockChanged()
	store.On("MarkProcessed", mock.Anything, mock.AnythingOfType("string"), time.Hour).
		Return(false, errors.New("redis unreachable"))

	inner := new(MockEventHandler)
	inner.On("Handle", mock.Anything, evt).Return(nil).Twice()

	h := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{TTL: time.Hour, Enabled: true}))
	require.NoError(t, h.Handle(context.Background(), evt))
	require.NoError(t, h.Handle(context.Background(), evt))

	inner.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := &recordingHandler{}
	h := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))

	evt := stockChanged()
	require.NoError(t, h.Handle(context.Background(), evt))
	require.NoError(t, h.Handle(context.Background(), evt))

	assert.Equal(t, 2, inner.count())
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_Delegation(t *testing.T) {
	inner := new(MockEventHandler)
	inner.On("EventTypes").Return([]string{"StockChanged"})

	h := NewIdempotentHandler(inner, nil, nil)
	assert.Equal(t, []string{"StockChanged"}, h.EventTypes())
	assert.Same(t, inner, h.GetWrappedHandler())
	assert.Equal(t, "*event.MockEventHandler", handlerName(h))
}
