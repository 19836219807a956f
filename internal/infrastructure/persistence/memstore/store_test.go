package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newRecord(t *testing.T) *inventory.StockRecord {
	t.Helper()
	key, err := inventory.NewStockKey(uuid.New(), uuid.New())
	require.NoError(t, err)
	r, err := inventory.NewStockRecord(key, 10, 100, testNow)
	require.NoError(t, err)
	return r
}

func TestStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.StockRecords()

	rec := newRecord(t)
	require.NoError(t, repo.Insert(ctx, rec))

	t.Run("duplicate insert conflicts", func(t *testing.T) {
		err := repo.Insert(ctx, rec.Clone())
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)
	})

	t.Run("matching version advances", func(t *testing.T) {
		loaded, err := repo.Get(ctx, rec.Key())
		require.NoError(t, err)
		require.NoError(t, loaded.Increase(5, testNow))
		require.NoError(t, repo.CompareAndSwap(ctx, loaded, 1))
		assert.Equal(t, 2, loaded.Version)
	})

	t.Run("stale version is rejected without writing", func(t *testing.T) {
		stale, err := repo.Get(ctx, rec.Key())
		require.NoError(t, err)
		require.NoError(t, stale.Increase(100, testNow))

		err = repo.CompareAndSwap(ctx, stale, 1)
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)

		current, err := repo.Get(ctx, rec.Key())
		require.NoError(t, err)
		assert.Equal(t, int64(5), current.Quantity)
		assert.Equal(t, 2, current.Version)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := repo.Get(ctx, newRecord(t).Key())
		assert.ErrorIs(t, err, shared.ErrUnknownStockRecord)
	})
}

func TestStore_ExecuteRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	rec := newRecord(t)
	boom := errors.New("boom")

	err := store.Execute(ctx, func(tx inventoryapp.TransactionalRepositories) error {
		require.NoError(t, tx.StockRecords().Insert(ctx, rec))
		entry, err := inventory.NewMovementEntry(rec, inventory.MovementSpec{
			Type:     inventory.MovementTypeIn,
			Quantity: 1,
		}, testNow)
		require.NoError(t, err)
		require.NoError(t, tx.Movements().Append(ctx, entry))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.StockRecords().Get(ctx, rec.Key())
	assert.ErrorIs(t, err, shared.ErrUnknownStockRecord)
	entries, err := store.Movements().List(ctx, inventory.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_ExecuteCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	rec := newRecord(t)

	err := store.Execute(ctx, func(tx inventoryapp.TransactionalRepositories) error {
		return tx.StockRecords().Insert(ctx, rec)
	})
	require.NoError(t, err)

	loaded, err := store.StockRecords().Get(ctx, rec.Key())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, loaded.ID)
}

func TestStore_Alerts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.Alerts()
	rec := newRecord(t)

	a, err := alert.NewAlertState(rec.Key(), alert.AlertTypeLowStock, alert.SeverityMedium, 10, 4, "low", testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, a))

	dup, err := alert.NewAlertState(rec.Key(), alert.AlertTypeLowStock, alert.SeverityMedium, 10, 4, "low", testNow)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrConcurrentModification)

	open, err := repo.FindOpen(ctx, rec.Key())
	require.NoError(t, err)
	require.Len(t, open, 1)

	loaded, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.Resolve("restocked", "ops", testNow.Add(time.Hour)))
	require.NoError(t, repo.CompareAndSwap(ctx, loaded, 1))

	open, err = repo.FindOpen(ctx, rec.Key())
	require.NoError(t, err)
	assert.Empty(t, open)

	total, err := repo.Count(ctx, alert.Filter{ProductID: &rec.ProductID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, page(items, 2, 2))
	assert.Equal(t, []int{5}, page(items, 4, 10))
	assert.Empty(t, page(items, 9, 1))
	assert.Equal(t, items, page(items, 0, 0))
}
