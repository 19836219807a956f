package inventory

import (
	"context"
	"sort"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize         = 20
	defaultMovementPageSize = 100
)

var errInvalidProductID = shared.ErrInvalidInput.WithMessage("Product ID cannot be empty")

// StockLevelLookup is the result of a cache read. Levels is nil on a miss.
// Generation identifies the product's cache generation at read time and must
// be handed back to Set when filling the miss.
type StockLevelLookup struct {
	Levels     *StockLevelsResponse
	Generation int64
}

// StockLevelCache caches per-product stock level aggregates.
// Invalidate advances the product's generation; Set stores levels only while
// the generation it was given is still current, so a fill computed from a
// snapshot taken before a commit is dropped instead of outliving it.
// Implementations must tolerate concurrent use.
type StockLevelCache interface {
	Get(ctx context.Context, productID uuid.UUID) (StockLevelLookup, error)
	Set(ctx context.Context, levels *StockLevelsResponse, generation int64) error
	Invalidate(ctx context.Context, productIDs ...uuid.UUID) error
}

// NoOpStockLevelCache never caches
type NoOpStockLevelCache struct{}

// Get always misses
func (NoOpStockLevelCache) Get(context.Context, uuid.UUID) (StockLevelLookup, error) {
	return StockLevelLookup{}, nil
}

// Set does nothing
func (NoOpStockLevelCache) Set(context.Context, *StockLevelsResponse, int64) error { return nil }

// Invalidate does nothing
func (NoOpStockLevelCache) Invalidate(context.Context, ...uuid.UUID) error { return nil }

var _ StockLevelCache = NoOpStockLevelCache{}

// QueryService serves read-only views over stock records and the ledger
type QueryService struct {
	records   inventory.StockRecordRepository
	movements inventory.MovementRepository
	cache     StockLevelCache
	logger    *zap.Logger
}

// NewQueryService creates a new QueryService. A nil cache disables caching.
func NewQueryService(
	records inventory.StockRecordRepository,
	movements inventory.MovementRepository,
	cache StockLevelCache,
	logger *zap.Logger,
) *QueryService {
	if cache == nil {
		cache = NoOpStockLevelCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{
		records:   records,
		movements: movements,
		cache:     cache,
		logger:    logger,
	}
}

// GetStockRecord retrieves the record for a product at a warehouse
func (s *QueryService) GetStockRecord(ctx context.Context, productID, warehouseID uuid.UUID) (*StockRecordResponse, error) {
	key, err := inventory.NewStockKey(productID, warehouseID)
	if err != nil {
		return nil, err
	}
	record, err := s.records.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	resp := ToStockRecordResponse(record)
	return &resp, nil
}

// ListStockRecords lists records matching the filter with a total count
func (s *QueryService) ListStockRecords(ctx context.Context, filter StockRecordListFilter) ([]StockRecordResponse, int64, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize, defaultPageSize)
	domainFilter := inventory.StockRecordFilter{
		ProductID:   filter.ProductID,
		WarehouseID: filter.WarehouseID,
		Status:      filter.Status,
		ActiveOnly:  filter.ActiveOnly,
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize,
	}

	records, err := s.records.List(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.records.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToStockRecordResponses(records), total, nil
}

// StockLevels aggregates a product's stock across warehouses.
// Cache failures are logged and fall through to the store.
func (s *QueryService) StockLevels(ctx context.Context, productID uuid.UUID) (*StockLevelsResponse, error) {
	if productID == uuid.Nil {
		return nil, errInvalidProductID
	}

	lookup, cacheErr := s.cache.Get(ctx, productID)
	if cacheErr != nil {
		s.logger.Warn("stock level cache read failed", zap.String("product_id", productID.String()), zap.Error(cacheErr))
	} else if lookup.Levels != nil {
		return lookup.Levels, nil
	}

	records, err := s.records.List(ctx, inventory.StockRecordFilter{ProductID: &productID})
	if err != nil {
		return nil, err
	}

	levels := &StockLevelsResponse{
		ProductID:  productID,
		Warehouses: make([]WarehouseLevel, 0, len(records)),
	}
	for i := range records {
		r := &records[i]
		levels.TotalQuantity += r.Quantity
		levels.TotalReservedQuantity += r.ReservedQuantity
		levels.TotalAvailableQuantity += r.AvailableQuantity()
		levels.Warehouses = append(levels.Warehouses, WarehouseLevel{
			WarehouseID:       r.WarehouseID,
			Quantity:          r.Quantity,
			ReservedQuantity:  r.ReservedQuantity,
			AvailableQuantity: r.AvailableQuantity(),
			StockStatus:       r.StockStatus(),
		})
	}

	// a failed read leaves no generation to fill against
	if cacheErr != nil {
		return levels, nil
	}
	if err := s.cache.Set(ctx, levels, lookup.Generation); err != nil {
		s.logger.Warn("stock level cache write failed", zap.String("product_id", productID.String()), zap.Error(err))
	}
	return levels, nil
}

// ReorderSuggestions lists active records at or below their reorder point,
// most urgent first. warehouseID may be nil for all warehouses.
func (s *QueryService) ReorderSuggestions(ctx context.Context, warehouseID *uuid.UUID) ([]ReorderSuggestion, error) {
	records, err := s.records.List(ctx, inventory.StockRecordFilter{
		WarehouseID:           warehouseID,
		ActiveOnly:            true,
		AtOrBelowReorderPoint: true,
	})
	if err != nil {
		return nil, err
	}

	suggestions := make([]ReorderSuggestion, 0, len(records))
	for i := range records {
		suggestions = append(suggestions, SuggestReorder(&records[i]))
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return urgencyRank(suggestions[i].Urgency) < urgencyRank(suggestions[j].Urgency)
	})
	return suggestions, nil
}

// SuggestReorder computes the replenishment proposal for a record:
// max(max_stock - quantity, 2 * reorder_point), critical when empty,
// high at or below half the reorder point, medium otherwise.
func SuggestReorder(r *inventory.StockRecord) ReorderSuggestion {
	suggested := r.MaxStockLevel - r.Quantity
	if floor := 2 * r.ReorderPoint; floor > suggested {
		suggested = floor
	}

	urgency := ReorderUrgencyMedium
	switch {
	case r.Quantity == 0:
		urgency = ReorderUrgencyCritical
	case r.Quantity <= r.ReorderPoint/2:
		urgency = ReorderUrgencyHigh
	}

	return ReorderSuggestion{
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		Quantity:          r.Quantity,
		ReorderPoint:      r.ReorderPoint,
		MaxStockLevel:     r.MaxStockLevel,
		SuggestedQuantity: suggested,
		Urgency:           urgency,
	}
}

func urgencyRank(u ReorderUrgency) int {
	switch u {
	case ReorderUrgencyCritical:
		return 0
	case ReorderUrgencyHigh:
		return 1
	default:
		return 2
	}
}

// ListMovements returns ledger entries matching the filter, oldest first
func (s *QueryService) ListMovements(ctx context.Context, filter MovementListFilter) ([]MovementResponse, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize, defaultMovementPageSize)
	entries, err := s.movements.List(ctx, inventory.MovementFilter{
		ProductID:     filter.ProductID,
		WarehouseID:   filter.WarehouseID,
		MovementType:  filter.MovementType,
		ReferenceType: filter.ReferenceType,
		ReferenceID:   filter.ReferenceID,
		Offset:        (page - 1) * pageSize,
		Limit:         pageSize,
	})
	if err != nil {
		return nil, err
	}
	return ToMovementResponses(entries), nil
}

// Reconcile compares the ledger's signed sum with the record's quantity
func (s *QueryService) Reconcile(ctx context.Context, productID, warehouseID uuid.UUID) (*ReconciliationResponse, error) {
	key, err := inventory.NewStockKey(productID, warehouseID)
	if err != nil {
		return nil, err
	}
	record, err := s.records.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	sum, err := s.movements.SumSigned(ctx, key)
	if err != nil {
		return nil, err
	}

	resp := &ReconciliationResponse{
		ProductID:      productID,
		WarehouseID:    warehouseID,
		RecordQuantity: record.Quantity,
		LedgerQuantity: sum,
		Difference:     record.Quantity - sum,
		Consistent:     record.Quantity == sum,
	}
	if !resp.Consistent {
		s.logger.Error("ledger does not reconcile with stock record",
			zap.String("product_id", productID.String()),
			zap.String("warehouse_id", warehouseID.String()),
			zap.Int64("record_quantity", record.Quantity),
			zap.Int64("ledger_quantity", sum))
	}
	return resp, nil
}

func normalizePage(page, pageSize, fallback int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = fallback
	}
	return page, pageSize
}
