package event

import (
	"context"
	"sync/atomic"

	"github.com/erp/stockledger/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyMetrics counts outcomes of idempotent dispatch
type IdempotencyMetrics struct {
	EventsProcessed atomic.Int64
	EventsDuplicate atomic.Int64
	EventsFailed    atomic.Int64
}

// Stats returns a snapshot of the counters
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: m.EventsProcessed.Load(),
		EventsDuplicate: m.EventsDuplicate.Load(),
		EventsFailed:    m.EventsFailed.Load(),
	}
}

// IdempotencyStats is a snapshot of IdempotencyMetrics
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentHandler runs the wrapped handler at most once per event ID.
// Keys are scoped by a per-handler prefix so handlers sharing a store do not
// suppress each other.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	prefix  string
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the TTL and enablement
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithIdempotencyMetrics shares a metrics collector between handlers
func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.metrics = metrics
	}
}

// WithKeyPrefix replaces the default key prefix, which is the handler's type name
func WithKeyPrefix(prefix string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.prefix = prefix
	}
}

// NewIdempotentHandler wraps handler with duplicate detection backed by store
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		prefix:  handlerName(handler),
		logger:  logger,
		metrics: &IdempotencyMetrics{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle claims the event key and runs the wrapped handler. A store failure
// does not block delivery: the event is processed without the guarantee.
func (h *IdempotentHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if !h.config.Enabled || h.store == nil {
		return h.run(ctx, evt)
	}

	key := h.key(evt)
	fresh, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	if err != nil {
		h.logger.Warn("idempotency store unavailable, processing without duplicate check",
			zap.String("key", key),
			zap.Error(err),
		)
		return h.run(ctx, evt)
	}
	if !fresh {
		h.metrics.EventsDuplicate.Add(1)
		h.logger.Debug("duplicate event skipped",
			zap.String("key", key),
			zap.String("event_type", evt.EventType()),
		)
		return nil
	}
	return h.run(ctx, evt)
}

func (h *IdempotentHandler) run(ctx context.Context, evt shared.DomainEvent) error {
	if err := h.handler.Handle(ctx, evt); err != nil {
		h.metrics.EventsFailed.Add(1)
		return err
	}
	h.metrics.EventsProcessed.Add(1)
	return nil
}

func (h *IdempotentHandler) key(evt shared.DomainEvent) string {
	return h.prefix + ":" + evt.EventID().String()
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// GetMetrics returns the handler's counters
func (h *IdempotentHandler) GetMetrics() *IdempotencyMetrics {
	return h.metrics
}

// GetWrappedHandler returns the decorated handler
func (h *IdempotentHandler) GetWrappedHandler() shared.EventHandler {
	return h.handler
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
