package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockRecordRepository implements StockRecordRepository using GORM
type GormStockRecordRepository struct {
	db *gorm.DB
}

// NewGormStockRecordRepository creates a new GormStockRecordRepository
func NewGormStockRecordRepository(db *gorm.DB) *GormStockRecordRepository {
	return &GormStockRecordRepository{db: db}
}

// Get finds the record for a product at a warehouse
func (r *GormStockRecordRepository) Get(ctx context.Context, key inventory.StockKey) (*inventory.StockRecord, error) {
	var model models.StockRecordModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", key.ProductID, key.WarehouseID).
		First(&model).Error; err != nil {
		return nil, notFound(err, shared.ErrUnknownStockRecord)
	}
	return model.ToDomain(), nil
}

// GetByID finds a record by its ID
func (r *GormStockRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*inventory.StockRecord, error) {
	var model models.StockRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, shared.ErrUnknownStockRecord)
	}
	return model.ToDomain(), nil
}

// Insert creates a new record. A concurrent insert of the same key loses
// on the unique index and reports a concurrent modification.
func (r *GormStockRecordRepository) Insert(ctx context.Context, record *inventory.StockRecord) error {
	model := models.StockRecordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrConcurrentModification
		}
		return err
	}
	return nil
}

// CompareAndSwap updates the record only if its stored version matches expectedVersion
func (r *GormStockRecordRepository) CompareAndSwap(ctx context.Context, record *inventory.StockRecord, expectedVersion int) error {
	newVersion := expectedVersion + 1
	result := r.db.WithContext(ctx).
		Model(&models.StockRecordModel{}).
		Where("id = ? AND version = ?", record.ID, expectedVersion).
		Updates(map[string]interface{}{
			"quantity":          record.Quantity,
			"reserved_quantity": record.ReservedQuantity,
			"reorder_point":     record.ReorderPoint,
			"max_stock_level":   record.MaxStockLevel,
			"is_active":         record.IsActive,
			"updated_at":        record.UpdatedAt,
			"version":           newVersion,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	record.Version = newVersion
	return nil
}

// List returns records matching the filter ordered by product then warehouse
func (r *GormStockRecordRepository) List(ctx context.Context, filter inventory.StockRecordFilter) ([]inventory.StockRecord, error) {
	var rows []models.StockRecordModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.StockRecordModel{}), filter).
		Order("product_id ASC, warehouse_id ASC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]inventory.StockRecord, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records, nil
}

// Count counts records matching the filter
func (r *GormStockRecordRepository) Count(ctx context.Context, filter inventory.StockRecordFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.StockRecordModel{}), filter).Count(&count).Error
	return count, err
}

func (r *GormStockRecordRepository) applyFilter(query *gorm.DB, filter inventory.StockRecordFilter) *gorm.DB {
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	switch filter.Status {
	case inventory.StockStatusOutOfStock:
		query = query.Where("quantity = 0")
	case inventory.StockStatusLowStock:
		query = query.Where("quantity > 0 AND quantity <= reorder_point")
	case inventory.StockStatusInStock:
		query = query.Where("quantity > reorder_point")
	}
	if filter.AtOrBelowReorderPoint {
		query = query.Where("quantity <= reorder_point")
	}
	return query
}

// Ensure GormStockRecordRepository implements StockRecordRepository
var _ inventory.StockRecordRepository = (*GormStockRecordRepository)(nil)
