// Package scheduler runs background jobs. The reconciliation sweeper
// periodically compares every active stock record with the sum of its
// ledger movements and reports drift.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockQueries is the read side the sweeper needs. Implemented by inventoryapp.QueryService.
type StockQueries interface {
	ListStockRecords(ctx context.Context, filter inventoryapp.StockRecordListFilter) ([]inventoryapp.StockRecordResponse, int64, error)
	Reconcile(ctx context.Context, productID, warehouseID uuid.UUID) (*inventoryapp.ReconciliationResponse, error)
}

// ReconciliationObserver receives the outcome of each sweep
type ReconciliationObserver interface {
	RecordReconciliation(ctx context.Context, consistent, drifted int)
}

// ReconciliationConfig holds sweeper settings
type ReconciliationConfig struct {
	Enabled  bool
	Interval time.Duration
	// PageSize is how many records are fetched per listing call
	PageSize int
	// Timeout bounds a single sweep
	Timeout time.Duration
}

// DefaultReconciliationConfig returns the default sweeper settings
func DefaultReconciliationConfig() ReconciliationConfig {
	return ReconciliationConfig{
		Enabled:  false,
		Interval: time.Hour,
		PageSize: 100,
		Timeout:  10 * time.Minute,
	}
}

// Validate checks the configuration
func (c ReconciliationConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("%w: page size must be between 1 and 100", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Drift is one record whose stored quantity disagrees with its ledger
type Drift = inventoryapp.ReconciliationResponse

// SweepResult summarizes one sweep
type SweepResult struct {
	Checked    int
	Consistent int
	Drifted    []Drift
	Failed     int
	StartedAt  time.Time
	Duration   time.Duration
}

// ReconciliationSweeper checks active stock records against the ledger on an interval
type ReconciliationSweeper struct {
	config   ReconciliationConfig
	queries  StockQueries
	observer ReconciliationObserver
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  bool
	last      *SweepResult
}

// NewReconciliationSweeper creates a sweeper. observer may be nil.
func NewReconciliationSweeper(
	config ReconciliationConfig,
	queries StockQueries,
	observer ReconciliationObserver,
	logger *zap.Logger,
) (*ReconciliationSweeper, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationSweeper{
		config:   config,
		queries:  queries,
		observer: observer,
		logger:   logger,
	}, nil
}

// Start begins sweeping on the configured interval. It is a no-op when disabled
// or already running.
func (s *ReconciliationSweeper) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Reconciliation sweeper disabled")
		return nil
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Reconciliation sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("page_size", s.config.PageSize),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish or ctx to expire
func (s *ReconciliationSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reconciliation sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ReconciliationSweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs one sweep over every active record. Records that cannot be
// reconciled are counted as failed and do not stop the sweep.
func (s *ReconciliationSweeper) RunOnce(ctx context.Context) (*SweepResult, error) {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		return nil, ErrSweepInProgress
	}
	s.sweeping = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	result := &SweepResult{StartedAt: time.Now()}
	for page := 1; ; page++ {
		records, total, err := s.queries.ListStockRecords(ctx, inventoryapp.StockRecordListFilter{
			ActiveOnly: true,
			Page:       page,
			PageSize:   s.config.PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("list stock records: %w", err)
		}

		for _, r := range records {
			result.Checked++
			rec, err := s.queries.Reconcile(ctx, r.ProductID, r.WarehouseID)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				result.Failed++
				s.logger.Warn("Could not reconcile stock record",
					zap.String("product_id", r.ProductID.String()),
					zap.String("warehouse_id", r.WarehouseID.String()),
					zap.Error(err),
				)
				continue
			}
			if rec.Consistent {
				result.Consistent++
				continue
			}
			result.Drifted = append(result.Drifted, *rec)
			s.logger.Error("Stock record drifted from ledger",
				zap.String("product_id", rec.ProductID.String()),
				zap.String("warehouse_id", rec.WarehouseID.String()),
				zap.Int64("record_quantity", rec.RecordQuantity),
				zap.Int64("ledger_quantity", rec.LedgerQuantity),
				zap.Int64("difference", rec.Difference),
			)
		}

		if len(records) < s.config.PageSize || int64(page*s.config.PageSize) >= total {
			break
		}
	}
	result.Duration = time.Since(result.StartedAt)

	if s.observer != nil {
		s.observer.RecordReconciliation(ctx, result.Consistent, len(result.Drifted))
	}
	s.logger.Info("Reconciliation sweep completed",
		zap.Int("checked", result.Checked),
		zap.Int("drifted", len(result.Drifted)),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()
	return result, nil
}

// LastResult returns the most recent completed sweep, or nil
func (s *ReconciliationSweeper) LastResult() *SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
