package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
)

// EventRecorder is a shared.EventHandler that keeps every event it receives
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
}

// NewEventRecorder creates a recorder for eventTypes, or for every type when none are given
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

// EventTypes returns the event types this recorder subscribes to
func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

// Handle records the event
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, event)
	return nil
}

// OfType returns the recorded events of one type in delivery order
func (r *EventRecorder) OfType(eventType string) []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range r.handled {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of recorded events
func (r *EventRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handled)
}

// WaitForEventCount waits until the recorder holds at least count events
func WaitForEventCount(t *testing.T, r *EventRecorder, count int, timeout time.Duration) {
	t.Helper()
	RequireEventually(t, func() bool { return r.Count() >= count }, timeout, 10*time.Millisecond,
		"expected %d events", count)
}
