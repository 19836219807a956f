package inventory

import "github.com/erp/stockledger/internal/domain/shared"

// EngineConfig holds the defaults applied to stock records the engine creates
type EngineConfig struct {
	DefaultReorderPoint  int64
	DefaultMaxStockLevel int64
}

// DefaultEngineConfig returns the standard record defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultReorderPoint:  10,
		DefaultMaxStockLevel: 1000,
	}
}

// Validate checks the defaults satisfy the record threshold invariants
func (c EngineConfig) Validate() error {
	if c.DefaultReorderPoint < 0 {
		return shared.ErrInvalidInput.WithMessage("default reorder point cannot be negative")
	}
	if c.DefaultMaxStockLevel < c.DefaultReorderPoint {
		return shared.ErrInvalidInput.WithMessage("default max stock level cannot be below the default reorder point")
	}
	return nil
}
