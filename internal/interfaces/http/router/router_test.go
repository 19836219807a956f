package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	alertapp "github.com/erp/stockledger/internal/application/alert"
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/application/purchasing"
	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/infrastructure/persistence/memstore"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newHandlers() Handlers {
	log := zap.NewNop()
	store := memstore.NewStore()
	evaluator := alert.NewEvaluator(alert.DefaultConfig())
	engine := inventoryapp.NewEngine(store, evaluator, inventoryapp.DefaultEngineConfig(), log)
	return Handlers{
		Inventory:  handler.NewInventoryHandler(engine, inventoryapp.NewQueryService(store.StockRecords(), store.Movements(), nil, log)),
		Alerts:     handler.NewAlertHandler(alertapp.NewService(store, store.Alerts(), evaluator, log)),
		Purchasing: handler.NewPurchasingHandler(purchasing.NewReceivingService(engine, log)),
		System: handler.NewSystemHandler("test", map[string]handler.HealthCheck{
			"store": func(context.Context) error { return nil },
		}),
	}
}

func TestNew_RegistersEveryRoute(t *testing.T) {
	engine, err := New(Config{ServiceName: "stockledger", CORS: middleware.DefaultCORSConfig()}, newHandlers(), zap.NewNop())
	require.NoError(t, err)

	registered := map[string]bool{}
	for _, r := range engine.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	want := []string{
		"POST /api/v1/inventory/stock/adjust",
		"POST /api/v1/inventory/stock/transfer",
		"POST /api/v1/inventory/stock/receive",
		"POST /api/v1/inventory/stock/issue",
		"POST /api/v1/inventory/stock/reserve",
		"POST /api/v1/inventory/stock/release",
		"POST /api/v1/inventory/stock/bulk-adjust",
		"PUT /api/v1/inventory/stock/thresholds",
		"POST /api/v1/inventory/stock/deactivate",
		"GET /api/v1/inventory/stock",
		"GET /api/v1/inventory/stock/record",
		"GET /api/v1/inventory/products/:product_id/levels",
		"GET /api/v1/inventory/reorder-suggestions",
		"GET /api/v1/inventory/movements",
		"GET /api/v1/inventory/reconcile",
		"GET /api/v1/alerts",
		"GET /api/v1/alerts/:id",
		"POST /api/v1/alerts/evaluate",
		"POST /api/v1/alerts/:id/resolve",
		"POST /api/v1/purchasing/orders/:id/receipts",
		"GET /health",
	}
	for _, r := range want {
		assert.True(t, registered[r], "missing route %s", r)
	}
	assert.False(t, registered["GET /swagger/*any"], "swagger is opt-in")
}

func TestNew_MiddlewareChain(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	cfg := Config{
		ServiceName:    "stockledger",
		SwaggerEnabled: true,
		MaxBodySize:    64,
		CORS:           middleware.DefaultCORSConfig(),
		Meter:          sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"),
	}
	engine, err := New(cfg, newHandlers(), zap.NewNop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDKey))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/stock/receive", http.NoBody)
	req.ContentLength = 1 << 10
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestDomainGroup(t *testing.T) {
	var calls []string
	tag := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) { calls = append(calls, name) }
	}

	group := NewDomainGroup("widgets", "/widgets").
		Use(tag("mw")).
		GET("/:id", tag("get")).
		PUT("/:id", tag("put"))
	assert.Equal(t, "widgets", group.Name())

	engine := gin.New()
	group.RegisterRoutes(engine.Group("/api"))

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/widgets/1", nil))
	assert.Equal(t, []string{"mw", "put"}, calls)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/widgets/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
