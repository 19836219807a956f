package inventory

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRecord(t *testing.T, quantity, reserved, reorder, max int64) *StockRecord {
	t.Helper()
	rec, err := NewStockRecord(StockKey{ProductID: uuid.New(), WarehouseID: uuid.New()}, reorder, max, testNow)
	require.NoError(t, err)
	rec.Quantity = quantity
	rec.ReservedQuantity = reserved
	return rec
}

func TestNewStockRecord(t *testing.T) {
	key := StockKey{ProductID: uuid.New(), WarehouseID: uuid.New()}

	t.Run("creates active empty record at version 1", func(t *testing.T) {
		rec, err := NewStockRecord(key, 10, 1000, testNow)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, rec.ID)
		assert.Equal(t, key, rec.Key())
		assert.Equal(t, 1, rec.Version)
		assert.True(t, rec.IsActive)
		assert.Zero(t, rec.Quantity)
		assert.Equal(t, StockStatusOutOfStock, rec.StockStatus())
	})

	t.Run("rejects nil product", func(t *testing.T) {
		_, err := NewStockRecord(StockKey{WarehouseID: uuid.New()}, 10, 1000, testNow)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("rejects max below reorder point", func(t *testing.T) {
		_, err := NewStockRecord(key, 50, 10, testNow)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestStockRecord_StockStatus(t *testing.T) {
	tests := []struct {
		name     string
		quantity int64
		expected StockStatus
	}{
		{"zero is out of stock", 0, StockStatusOutOfStock},
		{"below reorder point is low", 15, StockStatusLowStock},
		{"at reorder point is low", 20, StockStatusLowStock},
		{"above reorder point is in stock", 21, StockStatusInStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestRecord(t, tt.quantity, 0, 20, 500)
			assert.Equal(t, tt.expected, rec.StockStatus())
		})
	}
}

func TestStockRecord_IncreaseOverflow(t *testing.T) {
	rec := newTestRecord(t, 1, 0, 10, 1000)

	err := rec.Increase(math.MaxInt64, testNow)
	assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	assert.Equal(t, int64(1), rec.Quantity)
	assert.Equal(t, 1, rec.Version)

	require.NoError(t, rec.Increase(math.MaxInt64-1, testNow))
	assert.Equal(t, int64(math.MaxInt64), rec.Quantity)
	assert.True(t, errors.Is(rec.Increase(1, testNow), shared.ErrInvalidQuantity))
}

func TestStockRecord_Decrease(t *testing.T) {
	t.Run("removes available stock", func(t *testing.T) {
		rec := newTestRecord(t, 100, 20, 10, 1000)
		require.NoError(t, rec.Decrease(80, testNow))
		assert.Equal(t, int64(20), rec.Quantity)
		assert.Equal(t, int64(0), rec.AvailableQuantity())
	})

	t.Run("cannot touch reserved stock", func(t *testing.T) {
		rec := newTestRecord(t, 100, 20, 10, 1000)
		err := rec.Decrease(81, testNow)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assert.Equal(t, int64(100), rec.Quantity)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		rec := newTestRecord(t, 100, 0, 10, 1000)
		assert.True(t, errors.Is(rec.Decrease(0, testNow), shared.ErrInvalidQuantity))
		assert.True(t, errors.Is(rec.Decrease(-5, testNow), shared.ErrInvalidQuantity))
	})

	t.Run("inactive record rejects changes", func(t *testing.T) {
		rec := newTestRecord(t, 100, 0, 10, 1000)
		require.NoError(t, rec.Deactivate(testNow))
		assert.True(t, errors.Is(rec.Decrease(1, testNow), shared.ErrInvalidState))
	})
}

func TestStockRecord_SetQuantity(t *testing.T) {
	rec := newTestRecord(t, 100, 30, 10, 1000)

	assert.True(t, errors.Is(rec.SetQuantity(-1, testNow), shared.ErrInvalidQuantity))
	assert.True(t, errors.Is(rec.SetQuantity(29, testNow), shared.ErrInvalidQuantity))
	assert.Equal(t, int64(100), rec.Quantity)

	require.NoError(t, rec.SetQuantity(30, testNow))
	assert.Equal(t, int64(30), rec.Quantity)
	assert.Equal(t, int64(0), rec.AvailableQuantity())
}

func TestStockRecord_ReserveRelease(t *testing.T) {
	rec := newTestRecord(t, 50, 0, 10, 1000)

	require.NoError(t, rec.Reserve(40, testNow))
	assert.Equal(t, int64(40), rec.ReservedQuantity)
	assert.Equal(t, int64(10), rec.AvailableQuantity())

	assert.True(t, errors.Is(rec.Reserve(11, testNow), shared.ErrInsufficientStock))
	assert.True(t, errors.Is(rec.Release(41, testNow), shared.ErrInsufficientStock))

	require.NoError(t, rec.Release(15, testNow))
	assert.Equal(t, int64(25), rec.ReservedQuantity)
	assert.LessOrEqual(t, rec.ReservedQuantity, rec.Quantity)
}

func TestStockRecord_SetThresholds(t *testing.T) {
	rec := newTestRecord(t, 50, 0, 10, 1000)

	require.NoError(t, rec.SetThresholds(0, 0, testNow))
	assert.True(t, errors.Is(rec.SetThresholds(-1, 10, testNow), shared.ErrInvalidInput))
	assert.True(t, errors.Is(rec.SetThresholds(20, 10, testNow), shared.ErrInvalidInput))
	assert.Equal(t, int64(0), rec.ReorderPoint)
}

func TestStockRecord_Deactivate(t *testing.T) {
	rec := newTestRecord(t, 5, 0, 10, 1000)

	require.NoError(t, rec.Deactivate(testNow))
	assert.False(t, rec.IsActive)
	assert.True(t, errors.Is(rec.Deactivate(testNow), shared.ErrInvalidState))
}

func TestStockRecord_Clone(t *testing.T) {
	rec := newTestRecord(t, 5, 0, 10, 1000)
	c := rec.Clone()
	c.Quantity = 99

	assert.Equal(t, int64(5), rec.Quantity)
	assert.Equal(t, rec.ID, c.ID)
}
