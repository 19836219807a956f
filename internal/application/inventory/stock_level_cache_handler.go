package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"go.uber.org/zap"
)

// StockLevelCacheInvalidator drops cached stock levels for every product
// touched by a committed StockChanged event
type StockLevelCacheInvalidator struct {
	cache  StockLevelCache
	logger *zap.Logger
}

// NewStockLevelCacheInvalidator creates a new invalidation handler
func NewStockLevelCacheInvalidator(cache StockLevelCache, logger *zap.Logger) *StockLevelCacheInvalidator {
	return &StockLevelCacheInvalidator{
		cache:  cache,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *StockLevelCacheInvalidator) EventTypes() []string {
	return []string{inventory.EventTypeStockChanged}
}

// Handle invalidates the product's cached levels
func (h *StockLevelCacheInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*inventory.StockChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockChanged, event.EventType())
	}

	if err := h.cache.Invalidate(ctx, changed.ProductID); err != nil {
		h.logger.Warn("failed to invalidate stock levels",
			zap.String("product_id", changed.ProductID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

var _ shared.EventHandler = (*StockLevelCacheInvalidator)(nil)
