package event

import (
	"testing"

	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	stock := &recordingHandler{}
	alerts := &recordingHandler{}
	all := &recordingHandler{}

	r := NewHandlerRegistry()
	r.Register(stock, inventory.EventTypeStockChanged)
	r.Register(stock, inventory.EventTypeStockChanged)
	r.Register(alerts, alert.EventTypeAlertStateChanged, inventory.EventTypeStockChanged)
	r.Register(all)

	assert.Equal(t, 3, r.Count())

	got := r.GetHandlers(inventory.EventTypeStockChanged)
	assert.Len(t, got, 3, "duplicate registration is ignored")
	assert.Same(t, all, got[2], "wildcard handlers come last")

	assert.Len(t, r.GetHandlers(alert.EventTypeAlertStateChanged), 2)
	assert.Len(t, r.GetHandlers("Unknown"), 1)

	got[0] = nil
	assert.NotNil(t, r.GetHandlers(inventory.EventTypeStockChanged)[0], "callers get a copy")

	r.Unregister(alerts)
	assert.Equal(t, 2, r.Count())
	assert.Len(t, r.GetHandlers(alert.EventTypeAlertStateChanged), 1)

	r.Unregister(all)
	r.Unregister(stock)
	assert.Zero(t, r.Count())
	assert.Empty(t, r.GetHandlers(inventory.EventTypeStockChanged))
}
