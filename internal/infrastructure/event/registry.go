package event

import (
	"sync"

	"github.com/erp/stockledger/internal/domain/shared"
)

// HandlerRegistry maps event types to handlers. Handlers registered without
// event types receive every event.
type HandlerRegistry struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{byType: make(map[string][]shared.EventHandler)}
}

// Register adds handler for eventTypes. Registering the same handler twice
// for a type is a no-op so a handler never sees an event twice.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = appendUnique(r.wildcard, handler)
		return
	}
	for _, t := range eventTypes {
		r.byType[t] = appendUnique(r.byType[t], handler)
	}
}

// Unregister removes handler everywhere it is registered
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = without(r.wildcard, handler)
	for t, hs := range r.byType {
		if hs = without(hs, handler); len(hs) == 0 {
			delete(r.byType, t)
		} else {
			r.byType[t] = hs
		}
	}
}

// GetHandlers returns the handlers for eventType followed by wildcard handlers.
// The returned slice is a copy.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed := r.byType[eventType]
	out := make([]shared.EventHandler, 0, len(typed)+len(r.wildcard))
	out = append(out, typed...)
	return append(out, r.wildcard...)
}

// Count returns the number of distinct handlers registered
func (r *HandlerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[shared.EventHandler]struct{})
	for _, h := range r.wildcard {
		seen[h] = struct{}{}
	}
	for _, hs := range r.byType {
		for _, h := range hs {
			seen[h] = struct{}{}
		}
	}
	return len(seen)
}

func appendUnique(hs []shared.EventHandler, h shared.EventHandler) []shared.EventHandler {
	for _, existing := range hs {
		if existing == h {
			return hs
		}
	}
	return append(hs, h)
}

func without(hs []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	out := make([]shared.EventHandler, 0, len(hs))
	for _, h := range hs {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}
