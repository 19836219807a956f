package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/erp/stockledger/internal/domain/shared"
	"go.uber.org/zap"
)

// FailureObserver is told about every handler that returned an error or panicked
type FailureObserver func(ctx context.Context, eventType, handler string)

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithFailureObserver installs an observer for handler failures
func WithFailureObserver(o FailureObserver) BusOption {
	return func(b *InMemoryEventBus) {
		b.onFailure = o
	}
}

// InMemoryEventBus delivers committed domain events to subscribers synchronously,
// in subscription order. Handler failures never reach the publisher: the
// state change that raised the event is already durable.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	onFailure FailureObserver
	running   atomic.Bool
	inflight  sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("event_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish dispatches each event to its handlers. Events published while the
// bus is stopped are dropped with a warning.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		if len(events) > 0 {
			b.logger.Warn("event bus not running, dropping events", zap.Int("count", len(events)))
		}
		return nil
	}

	b.inflight.Add(1)
	defer b.inflight.Done()

	for _, evt := range events {
		for _, h := range b.registry.GetHandlers(evt.EventType()) {
			if err := b.dispatch(ctx, h, evt); err != nil {
				name := handlerName(h)
				b.logger.Error("event handler failed",
					zap.String("event_type", evt.EventType()),
					zap.String("event_id", evt.EventID().String()),
					zap.String("aggregate_id", evt.AggregateID().String()),
					zap.String("handler", name),
					zap.Error(err),
				)
				if b.onFailure != nil {
					b.onFailure(ctx, evt.EventType(), name)
				}
			}
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes, or for handler.EventTypes() when none are given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.String("handler", handlerName(handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start begins accepting events
func (b *InMemoryEventBus) Start(context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Int("handlers", b.registry.Count()))
	return nil
}

// Stop stops accepting events and waits for in-flight publishes or ctx expiry
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, evt shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, evt)
}

// handlerName unwraps decorators so logs name the handler doing the work
func handlerName(h shared.EventHandler) string {
	if w, ok := h.(interface{ GetWrappedHandler() shared.EventHandler }); ok {
		return handlerName(w.GetWrappedHandler())
	}
	return fmt.Sprintf("%T", h)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
