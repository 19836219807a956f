// Package alert provides the alert use cases: standalone evaluation,
// operator resolution and queries, plus the notification handler that
// consumes committed alert changes.
package alert

import (
	"context"
	"strings"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPageSize = 20

// Service handles alert evaluation, resolution and queries
type Service struct {
	scope          inventoryapp.TransactionScope
	alerts         alert.Repository
	evaluator      *alert.Evaluator
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	clock          func() time.Time
}

// NewService creates a new alert Service. alerts is used for reads outside a transaction.
func NewService(
	scope inventoryapp.TransactionScope,
	alerts alert.Repository,
	evaluator *alert.Evaluator,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:     scope,
		alerts:    alerts,
		evaluator: evaluator,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// SetEventPublisher sets the event publisher for committed alert changes
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock overrides the time source (tests)
func (s *Service) SetClock(clock func() time.Time) {
	s.clock = clock
}

// Evaluate re-runs the alert rules for one stock record in its own transaction
func (s *Service) Evaluate(ctx context.Context, productID, warehouseID uuid.UUID) ([]inventoryapp.AlertChangeResponse, error) {
	key, err := inventory.NewStockKey(productID, warehouseID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var changes []alert.StateChange
	err = s.scope.Execute(ctx, func(tx inventoryapp.TransactionalRepositories) error {
		record, err := tx.StockRecords().Get(ctx, key)
		if err != nil {
			return err
		}
		changes, err = s.evaluator.Evaluate(ctx, tx.Alerts(), record, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, alert.EventsFor(changes, now))
	return inventoryapp.ToAlertChangeResponses(changes), nil
}

// Resolve closes an open alert on behalf of an operator
func (s *Service) Resolve(ctx context.Context, alertID uuid.UUID, req ResolveRequest) (*AlertResponse, error) {
	if strings.TrimSpace(req.Notes) == "" {
		return nil, shared.ErrMissingResolutionNotes
	}

	now := s.clock()
	var resolved *alert.AlertState
	err := s.scope.Execute(ctx, func(tx inventoryapp.TransactionalRepositories) error {
		a, err := tx.Alerts().FindByID(ctx, alertID)
		if err != nil {
			return err
		}
		expected := a.Version
		if err := a.Resolve(req.Notes, req.ResolvedBy, now); err != nil {
			return err
		}
		if err := tx.Alerts().CompareAndSwap(ctx, a, expected); err != nil {
			return err
		}
		resolved = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("alert resolved",
		zap.String("alert_id", resolved.ID.String()),
		zap.String("alert_type", string(resolved.AlertType)),
		zap.String("resolved_by", resolved.ResolvedBy),
	)
	s.publish(ctx, alert.EventsFor([]alert.StateChange{alert.ResolvedByOperator(resolved)}, now))

	resp := ToAlertResponse(resolved)
	return &resp, nil
}

// Get retrieves an alert by ID
func (s *Service) Get(ctx context.Context, alertID uuid.UUID) (*AlertResponse, error) {
	a, err := s.alerts.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	resp := ToAlertResponse(a)
	return &resp, nil
}

// List lists alerts matching the filter with a total count
func (s *Service) List(ctx context.Context, filter ListFilter) ([]AlertResponse, int64, error) {
	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	domainFilter := alert.Filter{
		ProductID:   filter.ProductID,
		WarehouseID: filter.WarehouseID,
		AlertType:   filter.AlertType,
		Severity:    filter.Severity,
		OpenOnly:    filter.OpenOnly,
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize,
	}

	alerts, err := s.alerts.List(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.alerts.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToAlertResponses(alerts), total, nil
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish alert events", zap.Error(err))
	}
}
