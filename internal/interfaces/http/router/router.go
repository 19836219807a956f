// Package router assembles the gin engine: middleware chain, API routes and
// operational endpoints.
package router

import (
	"net/http"

	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar registers a set of routes below the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// DomainGroup collects the routes of one domain under a shared prefix
type DomainGroup struct {
	name       string
	prefix     string
	routes     []route
	middleware []gin.HandlerFunc
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a route group for a domain
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware applied to every route in the group
func (dg *DomainGroup) Use(mw ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, mw...)
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, handlers)
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: path, handlers: handlers})
	return dg
}

// Name returns the group name
func (dg *DomainGroup) Name() string { return dg.name }

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, r := range dg.routes {
		group.Handle(r.method, r.path, r.handlers...)
	}
}

// Handlers are the API handlers served by the engine
type Handlers struct {
	Inventory  *handler.InventoryHandler
	Alerts     *handler.AlertHandler
	Purchasing *handler.PurchasingHandler
	System     *handler.SystemHandler
}

// Config controls the middleware chain
type Config struct {
	ServiceName    string
	TracingEnabled bool
	SwaggerEnabled bool
	MaxBodySize    int64
	CORS           middleware.CORSConfig
	TrustedProxies []string
	// Meter enables HTTP metrics when set
	Meter metric.Meter
}

// New builds the gin engine with middleware, the /api/v1 routes, /health and
// optionally /swagger.
func New(cfg Config, h Handlers, log *zap.Logger) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		logger.GinMiddleware(log),
		middleware.Actor(),
		middleware.SpanEnricher(),
	)
	if cfg.Meter != nil {
		metricsMW, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metricsMW)
	}
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}
	if cfg.SwaggerEnabled {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group("/api/v1")
	for _, registrar := range domainGroups(h) {
		registrar.RegisterRoutes(api)
	}
	return engine, nil
}

func domainGroups(h Handlers) []RouteRegistrar {
	var groups []RouteRegistrar

	if inv := h.Inventory; inv != nil {
		groups = append(groups, NewDomainGroup("inventory", "/inventory").
			POST("/stock/adjust", inv.Adjust).
			POST("/stock/transfer", inv.Transfer).
			POST("/stock/receive", inv.Receive).
			POST("/stock/issue", inv.Issue).
			POST("/stock/reserve", inv.Reserve).
			POST("/stock/release", inv.Release).
			POST("/stock/bulk-adjust", inv.BulkAdjust).
			PUT("/stock/thresholds", inv.SetThresholds).
			POST("/stock/deactivate", inv.Deactivate).
			GET("/stock", inv.List).
			GET("/stock/record", inv.GetRecord).
			GET("/products/:product_id/levels", inv.StockLevels).
			GET("/reorder-suggestions", inv.ReorderSuggestions).
			GET("/movements", inv.Movements).
			GET("/reconcile", inv.Reconcile))
	}

	if al := h.Alerts; al != nil {
		groups = append(groups, NewDomainGroup("alerts", "/alerts").
			GET("", al.List).
			POST("/evaluate", al.Evaluate).
			GET("/:id", al.Get).
			POST("/:id/resolve", al.Resolve))
	}

	if po := h.Purchasing; po != nil {
		groups = append(groups, NewDomainGroup("purchasing", "/purchasing").
			POST("/orders/:id/receipts", po.ReceiveOrder))
	}

	return groups
}
