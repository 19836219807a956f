package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMovementRepository implements the append-only ledger using GORM.
// It never issues UPDATE or DELETE against stock_movements.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Append inserts ledger entries
func (r *GormMovementRepository) Append(ctx context.Context, entries ...*inventory.MovementEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.StockMovementModel, len(entries))
	for i, e := range entries {
		rows[i] = models.StockMovementModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// List returns entries matching the filter, oldest first
func (r *GormMovementRepository) List(ctx context.Context, filter inventory.MovementFilter) ([]inventory.MovementEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.StockMovementModel{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.MovementType != "" {
		query = query.Where("movement_type = ?", string(filter.MovementType))
	}
	if filter.ReferenceType != "" {
		query = query.Where("reference_type = ?", filter.ReferenceType)
	}
	if filter.ReferenceID != "" {
		query = query.Where("reference_id = ?", filter.ReferenceID)
	}
	query = query.Order("created_at ASC, id ASC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []models.StockMovementModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]inventory.MovementEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// SumSigned totals increases minus decreases for a stock key
func (r *GormMovementRepository) SumSigned(ctx context.Context, key inventory.StockKey) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.StockMovementModel{}).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN -quantity ELSE quantity END), 0)", string(inventory.DirectionDecrease)).
		Where("product_id = ? AND warehouse_id = ?", key.ProductID, key.WarehouseID).
		Scan(&total).Error
	return total, err
}

// Ensure GormMovementRepository implements MovementRepository
var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
