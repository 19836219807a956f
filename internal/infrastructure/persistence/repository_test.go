package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var repoNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// one connection so every statement sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func newTestRecord(t *testing.T) *inventory.StockRecord {
	t.Helper()
	key, err := inventory.NewStockKey(uuid.New(), uuid.New())
	require.NoError(t, err)
	rec, err := inventory.NewStockRecord(key, 10, 100, repoNow)
	require.NoError(t, err)
	return rec
}

func TestGormStockRecordRepository_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewGormStockRecordRepository(setupSQLiteDB(t))

	rec := newTestRecord(t)
	rec.Quantity = 40
	require.NoError(t, repo.Insert(ctx, rec))

	loaded, err := repo.Get(ctx, rec.Key())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, int64(40), loaded.Quantity)
	assert.Equal(t, int64(10), loaded.ReorderPoint)
	assert.Equal(t, 1, loaded.Version)
	assert.True(t, loaded.IsActive)

	byID, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Key(), byID.Key())

	t.Run("unknown key", func(t *testing.T) {
		_, err := repo.Get(ctx, newTestRecord(t).Key())
		assert.ErrorIs(t, err, shared.ErrUnknownStockRecord)
	})

	t.Run("duplicate key loses the race", func(t *testing.T) {
		dup, err := inventory.NewStockRecord(rec.Key(), 0, 0, repoNow)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Insert(ctx, dup), shared.ErrConcurrentModification)
	})
}

func TestGormStockRecordRepository_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewGormStockRecordRepository(setupSQLiteDB(t))

	rec := newTestRecord(t)
	require.NoError(t, repo.Insert(ctx, rec))

	first, err := repo.Get(ctx, rec.Key())
	require.NoError(t, err)
	second, err := repo.Get(ctx, rec.Key())
	require.NoError(t, err)

	first.Quantity = 25
	require.NoError(t, repo.CompareAndSwap(ctx, first, 1))
	assert.Equal(t, 2, first.Version)

	second.Quantity = 99
	err = repo.CompareAndSwap(ctx, second, 1)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
	assert.Equal(t, 1, second.Version)

	stored, err := repo.Get(ctx, rec.Key())
	require.NoError(t, err)
	assert.Equal(t, int64(25), stored.Quantity)
	assert.Equal(t, 2, stored.Version)
}

func TestGormStockRecordRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewGormStockRecordRepository(setupSQLiteDB(t))
	warehouse := uuid.New()

	for _, qty := range []int64{0, 5, 50} {
		key, err := inventory.NewStockKey(uuid.New(), warehouse)
		require.NoError(t, err)
		rec, err := inventory.NewStockRecord(key, 10, 100, repoNow)
		require.NoError(t, err)
		rec.Quantity = qty
		require.NoError(t, repo.Insert(ctx, rec))
	}
	other := newTestRecord(t)
	other.IsActive = false
	require.NoError(t, repo.Insert(ctx, other))

	tests := []struct {
		name   string
		filter inventory.StockRecordFilter
		want   int
	}{
		{"by warehouse", inventory.StockRecordFilter{WarehouseID: &warehouse}, 3},
		{"out of stock", inventory.StockRecordFilter{WarehouseID: &warehouse, Status: inventory.StockStatusOutOfStock}, 1},
		{"low stock", inventory.StockRecordFilter{Status: inventory.StockStatusLowStock}, 1},
		{"in stock", inventory.StockRecordFilter{Status: inventory.StockStatusInStock}, 1},
		{"at or below reorder point", inventory.StockRecordFilter{WarehouseID: &warehouse, AtOrBelowReorderPoint: true}, 2},
		{"active only", inventory.StockRecordFilter{ActiveOnly: true}, 3},
		{"paged", inventory.StockRecordFilter{Limit: 2, Offset: 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	count, err := repo.Count(ctx, inventory.StockRecordFilter{WarehouseID: &warehouse})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	all, err := repo.List(ctx, inventory.StockRecordFilter{})
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Key().Compare(all[i].Key()), 0)
	}
}

func TestGormStockRecordRepository_CompareAndSwapSQL(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormStockRecordRepository(db)
	rec := newTestRecord(t)

	t.Run("stale version updates no rows", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "stock_records" SET .* WHERE \(id = \$\d+ AND version = \$\d+\)`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.CompareAndSwap(context.Background(), rec, 3)
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)
		assert.Equal(t, 1, rec.Version)
	})

	t.Run("database error is returned as is", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "stock_records"`).WillReturnError(sql.ErrConnDone)

		err := repo.CompareAndSwap(context.Background(), rec, 1)
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMovementRepository_AppendListSum(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMovementRepository(setupSQLiteDB(t))
	rec := newTestRecord(t)

	rec.Quantity = 30
	receipt, err := inventory.NewMovementEntry(rec, inventory.MovementSpec{
		Type:          inventory.MovementTypeIn,
		Quantity:      30,
		ReferenceType: "purchase_order",
		ReferenceID:   "PO-1",
		UnitCost:      decimal.NewNullDecimal(decimal.RequireFromString("12.50")),
	}, repoNow)
	require.NoError(t, err)

	rec.Quantity = 22
	issue, err := inventory.NewMovementEntry(rec, inventory.MovementSpec{
		Type:     inventory.MovementTypeOut,
		Quantity: 8,
	}, repoNow.Add(time.Minute))
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, receipt, issue))
	require.NoError(t, repo.Append(ctx))

	key := rec.Key()
	entries, err := repo.List(ctx, inventory.MovementFilter{ProductID: &key.ProductID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, inventory.MovementTypeIn, entries[0].MovementType)
	assert.Equal(t, int64(30), entries[0].BalanceAfter)
	require.True(t, entries[0].UnitCost.Valid)
	assert.True(t, entries[0].UnitCost.Decimal.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, inventory.DirectionDecrease, entries[1].Direction)
	assert.False(t, entries[1].UnitCost.Valid)

	byRef, err := repo.List(ctx, inventory.MovementFilter{ReferenceType: "purchase_order", ReferenceID: "PO-1"})
	require.NoError(t, err)
	assert.Len(t, byRef, 1)

	sum, err := repo.SumSigned(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(22), sum)

	empty, err := repo.SumSigned(ctx, newTestRecord(t).Key())
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestGormAlertRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAlertRepository(setupSQLiteDB(t))
	key := newTestRecord(t).Key()

	open, err := alert.NewAlertState(key, alert.AlertTypeLowStock, alert.SeverityMedium, 10, 4, "low", repoNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, open))

	dup, err := alert.NewAlertState(key, alert.AlertTypeLowStock, alert.SeverityHigh, 10, 3, "low", repoNow)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrConcurrentModification)

	found, err := repo.FindOpen(ctx, key)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, open.ID, found[0].ID)

	loaded, err := repo.FindByID(ctx, open.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.Resolve("restocked", "ops", repoNow.Add(time.Hour)))
	require.NoError(t, repo.CompareAndSwap(ctx, loaded, 1))
	assert.Equal(t, 2, loaded.Version)
	assert.ErrorIs(t, repo.CompareAndSwap(ctx, loaded, 1), shared.ErrConcurrentModification)

	found, err = repo.FindOpen(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, found)

	// the open-alert index no longer blocks a new alert of the same type
	require.NoError(t, repo.Create(ctx, dup))

	resolved, err := repo.FindByID(ctx, open.ID)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "ops", resolved.ResolvedBy)

	all, err := repo.List(ctx, alert.Filter{ProductID: &key.ProductID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	openCount, err := repo.Count(ctx, alert.Filter{OpenOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), openCount)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
