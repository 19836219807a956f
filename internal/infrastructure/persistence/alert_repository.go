package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAlertRepository implements alert.Repository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// FindByID finds an alert by ID
func (r *GormAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*alert.AlertState, error) {
	var model models.StockAlertModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return model.ToDomain(), nil
}

// FindOpen returns the open alerts for a stock key
func (r *GormAlertRepository) FindOpen(ctx context.Context, key inventory.StockKey) ([]alert.AlertState, error) {
	var rows []models.StockAlertModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ? AND is_resolved = ?", key.ProductID, key.WarehouseID, false).
		Order("opened_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAlertStates(rows), nil
}

// Create inserts a newly opened alert. The partial unique index on open
// alerts rejects a second open alert of the same type for a key.
func (r *GormAlertRepository) Create(ctx context.Context, a *alert.AlertState) error {
	if err := r.db.WithContext(ctx).Create(models.StockAlertModelFromDomain(a)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrConcurrentModification
		}
		return err
	}
	return nil
}

// CompareAndSwap updates the alert only if its stored version matches expectedVersion
func (r *GormAlertRepository) CompareAndSwap(ctx context.Context, a *alert.AlertState, expectedVersion int) error {
	newVersion := expectedVersion + 1
	result := r.db.WithContext(ctx).
		Model(&models.StockAlertModel{}).
		Where("id = ? AND version = ?", a.ID, expectedVersion).
		Updates(map[string]interface{}{
			"severity":         string(a.Severity),
			"message":          a.Message,
			"threshold_value":  a.ThresholdValue,
			"current_value":    a.CurrentValue,
			"is_resolved":      a.IsResolved,
			"resolved_at":      a.ResolvedAt,
			"resolution_notes": a.ResolutionNotes,
			"resolved_by":      a.ResolvedBy,
			"updated_at":       a.UpdatedAt,
			"version":          newVersion,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	a.Version = newVersion
	return nil
}

// List returns alerts matching the filter, newest first
func (r *GormAlertRepository) List(ctx context.Context, filter alert.Filter) ([]alert.AlertState, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.StockAlertModel{}), filter).
		Order("opened_at DESC, id DESC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var rows []models.StockAlertModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAlertStates(rows), nil
}

// Count counts alerts matching the filter
func (r *GormAlertRepository) Count(ctx context.Context, filter alert.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.StockAlertModel{}), filter).Count(&count).Error
	return count, err
}

func (r *GormAlertRepository) applyFilter(query *gorm.DB, filter alert.Filter) *gorm.DB {
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.AlertType != "" {
		query = query.Where("alert_type = ?", string(filter.AlertType))
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", string(filter.Severity))
	}
	if filter.OpenOnly {
		query = query.Where("is_resolved = ?", false)
	}
	return query
}

func toAlertStates(rows []models.StockAlertModel) []alert.AlertState {
	out := make([]alert.AlertState, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure GormAlertRepository implements alert.Repository
var _ alert.Repository = (*GormAlertRepository)(nil)
