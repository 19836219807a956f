package alert

import (
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

// Config holds the severities assigned by each rule
type Config struct {
	OutOfStockSeverity Severity
	LowStockSeverity   Severity
	OverstockSeverity  Severity
}

// DefaultConfig returns the standard rule severities
func DefaultConfig() Config {
	return Config{
		OutOfStockSeverity: SeverityHigh,
		LowStockSeverity:   SeverityMedium,
		OverstockSeverity:  SeverityLow,
	}
}

// Validate checks that every rule has a known severity
func (c Config) Validate() error {
	for _, s := range []Severity{c.OutOfStockSeverity, c.LowStockSeverity, c.OverstockSeverity} {
		if !s.IsValid() {
			return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("invalid alert severity %q", s))
		}
	}
	return nil
}

// condition is the outcome of one rule against one record
type condition struct {
	alertType AlertType
	severity  Severity
	holds     bool
	threshold int64
	current   int64
}

// assess applies the fixed rule set in a stable order.
// out_of_stock and low_stock are mutually exclusive; overstock implies neither.
// Inactive records hold no conditions, so their open alerts resolve.
func (c Config) assess(record *inventory.StockRecord) []condition {
	q := record.Quantity
	active := record.IsActive
	return []condition{
		{
			alertType: AlertTypeOutOfStock,
			severity:  c.OutOfStockSeverity,
			holds:     active && q == 0,
			threshold: 0,
			current:   q,
		},
		{
			alertType: AlertTypeLowStock,
			severity:  c.LowStockSeverity,
			holds:     active && q > 0 && q <= record.ReorderPoint,
			threshold: record.ReorderPoint,
			current:   q,
		},
		{
			alertType: AlertTypeOverstock,
			severity:  c.OverstockSeverity,
			holds:     active && q > record.MaxStockLevel,
			threshold: record.MaxStockLevel,
			current:   q,
		},
	}
}

func (c condition) message(key inventory.StockKey) string {
	switch c.alertType {
	case AlertTypeOutOfStock:
		return fmt.Sprintf("Product %s is out of stock at warehouse %s", key.ProductID, key.WarehouseID)
	case AlertTypeLowStock:
		return fmt.Sprintf("Product %s is low on stock at warehouse %s: %d units, reorder point %d",
			key.ProductID, key.WarehouseID, c.current, c.threshold)
	default:
		return fmt.Sprintf("Product %s is overstocked at warehouse %s: %d units, maximum %d",
			key.ProductID, key.WarehouseID, c.current, c.threshold)
	}
}
