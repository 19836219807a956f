package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OperationRecorder receives the outcome of every engine operation.
// errorCode is empty on success.
type OperationRecorder interface {
	RecordOperation(ctx context.Context, operation, errorCode string, duration time.Duration)
}

// Engine is the consistency engine. Every mutating operation runs inside one
// transaction: the stock record is written with a version compare-and-swap,
// ledger rows are appended and alerts re-evaluated before commit.
// Committed changes are published as domain events afterwards.
//
// The engine never retries; a lost race surfaces as shared.ErrConcurrentModification.
type Engine struct {
	scope          TransactionScope
	evaluator      *alert.Evaluator
	config         EngineConfig
	eventPublisher shared.EventPublisher
	recorder       OperationRecorder
	logger         *zap.Logger
	clock          func() time.Time
}

// NewEngine creates a new consistency engine
func NewEngine(scope TransactionScope, evaluator *alert.Evaluator, config EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		scope:     scope,
		evaluator: evaluator,
		config:    config,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// SetEventPublisher sets the event publisher for committed changes
func (e *Engine) SetEventPublisher(publisher shared.EventPublisher) {
	e.eventPublisher = publisher
}

// SetOperationRecorder sets the metrics sink for operation outcomes
func (e *Engine) SetOperationRecorder(recorder OperationRecorder) {
	e.recorder = recorder
}

// SetClock overrides the time source (tests)
func (e *Engine) SetClock(clock func() time.Time) {
	e.clock = clock
}

// changeSet accumulates what one transaction wrote
type changeSet struct {
	records   []*inventory.StockRecord
	movements []*inventory.MovementEntry
	changes   []alert.StateChange
	events    []shared.DomainEvent
}

func (cs *changeSet) movementFor(key inventory.StockKey) *inventory.MovementEntry {
	for _, m := range cs.movements {
		if m.Key() == key {
			return m
		}
	}
	return nil
}

// run executes fn in a transaction, records the outcome and publishes events after commit.
// fn receives the span context; repository calls must use it so statement spans nest under the operation.
func (e *Engine) run(ctx context.Context, operation string, fn func(ctx context.Context, tx TransactionalRepositories, now time.Time, cs *changeSet) error) (*changeSet, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", operation, telemetry.AttrOperation.String(operation))
	defer span.End()

	started := time.Now()
	now := e.clock()
	var cs *changeSet

	err := e.scope.Execute(ctx, func(tx TransactionalRepositories) error {
		// fresh per attempt so a rolled back scope leaves nothing behind
		cs = &changeSet{}
		return fn(ctx, tx, now, cs)
	})
	e.record(ctx, operation, err, time.Since(started))
	if err != nil {
		telemetry.RecordError(span, err, shared.ErrorCode(err))
		if errors.Is(err, shared.ErrConcurrentModification) {
			logger.WithLogger(ctx, e.logger).Info("stock operation lost version race",
				zap.String("operation", operation))
		}
		return nil, err
	}

	logger.WithLogger(ctx, e.logger).Debug("stock operation committed",
		zap.String("operation", operation),
		zap.Int("movements", len(cs.movements)),
		zap.Int("alert_changes", len(cs.changes)),
	)
	e.publish(ctx, cs.events)
	return cs, nil
}

func (e *Engine) record(ctx context.Context, operation string, err error, d time.Duration) {
	if e.recorder == nil {
		return
	}
	code := ""
	if err != nil {
		code = shared.ErrorCode(err)
		if code == "" {
			code = "INTERNAL_ERROR"
		}
	}
	e.recorder.RecordOperation(ctx, operation, code, d)
}

// publish sends committed events (errors are logged by the event bus, not propagated)
func (e *Engine) publish(ctx context.Context, events []shared.DomainEvent) {
	if e.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := e.eventPublisher.Publish(ctx, events...); err != nil {
		e.logger.Warn("failed to publish stock events", zap.Error(err), zap.Int("count", len(events)))
	}
}

// persist writes record (insert or CAS), appends the movement if any, and
// re-evaluates alerts for the record's key.
func (e *Engine) persist(
	ctx context.Context,
	tx TransactionalRepositories,
	cs *changeSet,
	record *inventory.StockRecord,
	expectedVersion int,
	created bool,
	operation string,
	spec *inventory.MovementSpec,
	now time.Time,
) error {
	var movement *inventory.MovementEntry
	if spec != nil {
		m, err := inventory.NewMovementEntry(record, *spec, now)
		if err != nil {
			return err
		}
		movement = m
	}

	if created {
		if err := tx.StockRecords().Insert(ctx, record); err != nil {
			return err
		}
	} else if err := tx.StockRecords().CompareAndSwap(ctx, record, expectedVersion); err != nil {
		return err
	}

	if movement != nil {
		if err := tx.Movements().Append(ctx, movement); err != nil {
			return err
		}
		cs.movements = append(cs.movements, movement)
	}

	changes, err := e.evaluator.Evaluate(ctx, tx.Alerts(), record, now)
	if err != nil {
		return err
	}

	cs.records = append(cs.records, record)
	cs.changes = append(cs.changes, changes...)
	cs.events = append(cs.events, inventory.NewStockChangedEvent(record, operation, movement, now))
	cs.events = append(cs.events, alert.EventsFor(changes, now)...)
	return nil
}

// loadOrCreate returns the record for key, or a new record with configured defaults
func (e *Engine) loadOrCreate(ctx context.Context, repo inventory.StockRecordRepository, key inventory.StockKey, now time.Time) (*inventory.StockRecord, bool, error) {
	record, err := repo.Get(ctx, key)
	if err == nil {
		return record, false, nil
	}
	if !errors.Is(err, shared.ErrUnknownStockRecord) {
		return nil, false, err
	}
	record, err = inventory.NewStockRecord(key, e.config.DefaultReorderPoint, e.config.DefaultMaxStockLevel, now)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// Adjust changes the quantity of an existing record by add, subtract or set
func (e *Engine) Adjust(ctx context.Context, req AdjustRequest) (*StockResult, error) {
	key, err := inventory.NewStockKey(req.ProductID, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	if !req.Mode.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("Adjust mode must be add, subtract or set")
	}

	var unchanged *inventory.StockRecord
	cs, err := e.run(ctx, inventory.OperationAdjust, func(ctx context.Context, tx TransactionalRepositories, now time.Time, cs *changeSet) error {
		record, err := tx.StockRecords().Get(ctx, key)
		if err != nil {
			return err
		}
		expected := record.Version
		before := record.Quantity

		switch req.Mode {
		case AdjustModeAdd:
			err = record.Increase(req.Quantity, now)
		case AdjustModeSubtract:
			err = record.Decrease(req.Quantity, now)
		case AdjustModeSet:
			err = record.SetQuantity(req.Quantity, now)
		}
		if err != nil {
			return err
		}

		delta := record.Quantity - before
		if delta == 0 {
			unchanged = record
			return nil
		}

		direction := inventory.DirectionIncrease
		if delta < 0 {
			direction = inventory.DirectionDecrease
			delta = -delta
		}
		spec := &inventory.MovementSpec{
			Type:          inventory.MovementTypeAdjustment,
			Direction:     direction,
			Quantity:      delta,
			ReferenceType: defaultString(req.ReferenceType, inventory.ReferenceTypeAdjustment),
			ReferenceID:   req.ReferenceID,
			Notes:         req.Notes,
		}
		return e.persist(ctx, tx, cs, record, expected, false, inventory.OperationAdjust, spec, now)
	})
	if err != nil {
		return nil, err
	}

	if unchanged != nil {
		return &StockResult{
			Record:       ToStockRecordResponse(unchanged),
			AlertChanges: []AlertChangeResponse{},
		}, nil
	}
	return singleResult(cs), nil
}

// Transfer moves quantity from one warehouse to another atomically.
// Both records are read and written in inventory.OrderKeys order whatever the
// direction, so two opposing transfers cannot deadlock.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	fromKey, err := inventory.NewStockKey(req.ProductID, req.FromWarehouseID)
	if err != nil {
		return nil, err
	}
	toKey, err := inventory.NewStockKey(req.ProductID, req.ToWarehouseID)
	if err != nil {
		return nil, err
	}
	if fromKey == toKey {
		return nil, shared.ErrInvalidInput.WithMessage("Source and destination warehouses must differ")
	}
	if req.Quantity <= 0 {
		return nil, shared.ErrInvalidQuantity.WithMessage("Transfer quantity must be positive")
	}

	referenceID := uuid.New().String()
	cs, err := e.run(ctx, inventory.OperationTransfer, func(ctx context.Context, tx TransactionalRepositories, now time.Time, cs *changeSet) error {
		first, second := inventory.OrderKeys(fromKey, toKey)
		ordered := [2]inventory.StockKey{first, second}

		type slot struct {
			record   *inventory.StockRecord
			expected int
			created  bool
		}
		slots := make(map[inventory.StockKey]*slot, 2)
		for _, key := range ordered {
			var (
				record  *inventory.StockRecord
				created bool
				err     error
			)
			if key == fromKey {
				record, err = tx.StockRecords().Get(ctx, key)
			} else {
				record, created, err = e.loadOrCreate(ctx, tx.StockRecords(), key, now)
			}
			if err != nil {
				return err
			}
			slots[key] = &slot{record: record, expected: record.Version, created: created}
		}

		if err := slots[fromKey].record.Decrease(req.Quantity, now); err != nil {
			return err
		}
		if err := slots[toKey].record.Increase(req.Quantity, now); err != nil {
			return err
		}

		for _, key := range ordered {
			s := slots[key]
			spec := &inventory.MovementSpec{
				Type:          inventory.MovementTypeTransferIn,
				Quantity:      req.Quantity,
				ReferenceType: inventory.ReferenceTypeTransfer,
				ReferenceID:   referenceID,
				Notes:         req.Notes,
			}
			if key == fromKey {
				spec.Type = inventory.MovementTypeTransferOut
			}
			if err := e.persist(ctx, tx, cs, s.record, s.expected, s.created, inventory.OperationTransfer, spec, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &TransferResult{
		ReferenceID:  referenceID,
		Movements:    make([]MovementResponse, 0, 2),
		AlertChanges: ToAlertChangeResponses(cs.changes),
	}
	for _, r := range cs.records {
		if r.Key() == fromKey {
			result.Source = ToStockRecordResponse(r)
		} else {
			result.Destination = ToStockRecordResponse(r)
		}
	}
	// source leg first regardless of write order
	for _, key := range []inventory.StockKey{fromKey, toKey} {
		if m := cs.movementFor(key); m != nil {
			result.Movements = append(result.Movements, ToMovementResponse(m))
		}
	}
	return result, nil
}

// Receive books incoming stock, creating the record with configured defaults if needed
func (e *Engine) Receive(ctx context.Context, req ReceiveRequest) (*StockResult, error) {
	key, err := inventory.NewStockKey(req.ProductID, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, shared.ErrInvalidQuantity.WithMessage("Received quantity must be positive")
	}
	var unitCost decimal.NullDecimal
	if req.UnitCost != nil {
		unitCost = decimal.NewNullDecimal(*req.UnitCost)
	}

	cs, err := e.run(ctx, inventory.OperationReceive, func(ctx context.Context, tx TransactionalRepositories, now time.Time, cs *changeSet) error {
		record, created, err := e.loadOrCreate(ctx, tx.StockRecords(), key, now)
		if err != nil {
			return err
		}
		expected := record.Version
		if err := record.Increase(req.Quantity, now); err != nil {
			return err
		}
		spec := &inventory.MovementSpec{
			Type:          inventory.MovementTypeIn,
			Quantity:      req.Quantity,
			ReferenceType: defaultString(req.ReferenceType, inventory.ReferenceTypePurchaseOrder),
			ReferenceID:   req.ReferenceID,
			Notes:         req.Notes,
			UnitCost:      unitCost,
		}
		return e.persist(ctx, tx, cs, record, expected, created, inventory.OperationReceive, spec, now)
	})
	if err != nil {
		return nil, err
	}
	return singleResult(cs), nil
}

// Issue takes unreserved stock out of a warehouse
func (e *Engine) Issue(ctx context.Context, req IssueRequest) (*StockResult, error) {
	key, err := inventory.NewStockKey(req.ProductID, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, shared.ErrInvalidQuantity.WithMessage("Issued quantity must be positive")
	}

	cs, err := e.run(ctx, inventory.OperationIssue, func(ctx context.Context, tx TransactionalRepositories, now time.Time, cs *changeSet) error {
		record, err := tx.StockRecords().Get(ctx, key)
		if err != nil {
			return err
		}
		expected := record.Version
		if err := record.Decrease(req.Quantity, now); err != nil {
			return err
		}
		spec := &inventory.MovementSpec{
			Type:          inventory.MovementTypeOut,
			Quantity:      req.Quantity,
			ReferenceType: defaultString(req.ReferenceType, inventory.ReferenceTypeIssue),
			ReferenceID:   req.ReferenceID,
			Notes:         req.Notes,
		}
		return e.persist(ctx, tx, cs, record, expected, false, inventory.OperationIssue, spec, now)
	})
	if err != nil {
		return nil, err
	}
	return singleResult(cs), nil
}

// Reserve moves available quantity into the reserved pool. No ledger row is written.
func (e *Engine) Reserve(ctx context.Context, req ReservationRequest) (*StockResult, error) {
	return e.mutate(ctx, inventory.OperationReserve, req.ProductID, req.WarehouseID, false,
		func(r *inventory.StockRecord, now time.Time) error {
			return r.Reserve(req.Quantity, now)
		})
}

// Release returns reserved quantity to the available pool. No ledger row is written.
func (e *Engine) Release(ctx context.Context, req ReservationRequest) (*StockResult, error) {
	return e.mutate(ctx, inventory.OperationRelease, req.ProductID, req.WarehouseID, false,
		func(r *inventory.StockRecord, now time.Time) error {
			return r.Release(req.Quantity, now)
		})
}

// SetThresholds sets the reorder point and max stock level, creating the record
// if needed, and re-evaluates alerts against the new thresholds.
func (e *Engine) SetThresholds(ctx context.Context, req ThresholdRequest) (*StockResult, error) {
	return e.mutate(ctx, inventory.OperationThresholds, req.ProductID, req.WarehouseID, true,
		func(r *inventory.StockRecord, now time.Time) error {
			return r.SetThresholds(req.ReorderPoint, req.MaxStockLevel, now)
		})
}

// Deactivate soft-retires a record; its open alerts are resolved in the same transaction
func (e *Engine) Deactivate(ctx context.Context, productID, warehouseID uuid.UUID) (*StockResult, error) {
	return e.mutate(ctx, inventory.OperationDeactivate, productID, warehouseID, false,
		func(r *inventory.StockRecord, now time.Time) error {
			return r.Deactivate(now)
		})
}

// mutate applies a quantity-neutral change to a single record
func (e *Engine) mutate(
	ctx context.Context,
	operation string,
	productID, warehouseID uuid.UUID,
	createIfMissing bool,
	apply func(r *inventory.StockRecord, now time.Time) error,
) (*StockResult, error) {
	key, err := inventory.NewStockKey(productID, warehouseID)
	if err != nil {
		return nil, err
	}

	cs, err := e.run(ctx, operation, func(ctx context.Context, tx TransactionalRepositories, now time.Time, cs *changeSet) error {
		var (
			record  *inventory.StockRecord
			created bool
			err     error
		)
		if createIfMissing {
			record, created, err = e.loadOrCreate(ctx, tx.StockRecords(), key, now)
		} else {
			record, err = tx.StockRecords().Get(ctx, key)
		}
		if err != nil {
			return err
		}
		expected := record.Version
		if err := apply(record, now); err != nil {
			return err
		}
		return e.persist(ctx, tx, cs, record, expected, created, operation, nil, now)
	})
	if err != nil {
		return nil, err
	}
	return singleResult(cs), nil
}

// BulkAdjust applies each adjustment in its own transaction. A failed item
// does not affect the others; failures are reported per item.
func (e *Engine) BulkAdjust(ctx context.Context, requests []AdjustRequest) (*BulkAdjustResult, error) {
	if len(requests) == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("At least one adjustment is required")
	}

	result := &BulkAdjustResult{Results: make([]BulkAdjustItemResult, 0, len(requests))}
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := BulkAdjustItemResult{Index: i}
		res, err := e.Adjust(ctx, req)
		if err != nil {
			item.ErrorCode = shared.ErrorCode(err)
			item.Error = err.Error()
			result.FailureCount++
			e.logger.Debug("bulk adjustment item failed",
				zap.Int("index", i),
				zap.String("product_id", req.ProductID.String()),
				zap.String("warehouse_id", req.WarehouseID.String()),
				zap.Error(err))
		} else {
			item.Success = true
			item.Result = res
			result.SuccessCount++
		}
		result.Results = append(result.Results, item)
	}
	return result, nil
}

func singleResult(cs *changeSet) *StockResult {
	result := &StockResult{
		Record:       ToStockRecordResponse(cs.records[0]),
		AlertChanges: ToAlertChangeResponses(cs.changes),
	}
	if len(cs.movements) > 0 {
		m := ToMovementResponse(cs.movements[0])
		result.Movement = &m
	}
	return result
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
