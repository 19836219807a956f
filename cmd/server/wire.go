package main

import (
	"context"
	"fmt"

	alertapp "github.com/erp/stockledger/internal/application/alert"
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/application/purchasing"
	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/cache"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/event"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/migration"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/persistence/memstore"
	"github.com/erp/stockledger/internal/infrastructure/scheduler"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/router"
	"github.com/erp/stockledger/migrations"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// storage is the backend selected by database.store
type storage struct {
	scope     inventoryapp.TransactionScope
	records   inventory.StockRecordRepository
	movements inventory.MovementRepository
	alerts    alert.Repository
	db        *persistence.Database
}

// application holds everything main needs to serve and shut down
type application struct {
	handlers router.Handlers
	bus      *event.InMemoryEventBus
	sweeper  *scheduler.ReconciliationSweeper
	db       *persistence.Database
	redis    *redis.Client
}

func (a *application) close(log *zap.Logger) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}
}

func wire(ctx context.Context, cfg *config.Config, providers *telemetry.Providers, log *zap.Logger) (*application, error) {
	meter := providers.Meter.Meter("stockledger")

	store, err := openStorage(cfg, providers, log)
	if err != nil {
		return nil, err
	}
	app := &application{db: store.db}

	if cfg.Events.IdempotencyStore == "redis" || cfg.Cache.StockLevelsEnabled {
		app.redis, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			app.close(log)
			return nil, err
		}
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	idempotency, err := cache.NewIdempotencyStore(cfg.Events, app.redis, log)
	if err != nil {
		app.close(log)
		return nil, err
	}

	var levels inventoryapp.StockLevelCache = inventoryapp.NoOpStockLevelCache{}
	if cfg.Cache.StockLevelsEnabled {
		levels = cache.NewRedisStockLevelCache(app.redis, cfg.Cache.StockLevelsTTL)
	}

	stockMetrics, err := telemetry.NewStockMetrics(meter)
	if err != nil {
		app.close(log)
		return nil, fmt.Errorf("failed to create stock metrics: %w", err)
	}
	seedOpenAlerts(ctx, stockMetrics, store.alerts, log)

	app.bus = event.NewInMemoryEventBus(log.Named("events"), event.WithFailureObserver(stockMetrics.ObserveHandlerFailure))
	subscribeHandlers(cfg, app.bus, idempotency, levels, stockMetrics, log)
	if err := app.bus.Start(ctx); err != nil {
		app.close(log)
		return nil, err
	}

	evaluator := alert.NewEvaluator(alert.Config{
		OutOfStockSeverity: alert.Severity(cfg.Alerts.OutOfStockSeverity),
		LowStockSeverity:   alert.Severity(cfg.Alerts.LowStockSeverity),
		OverstockSeverity:  alert.Severity(cfg.Alerts.OverstockSeverity),
	})

	engineCfg := inventoryapp.EngineConfig{
		DefaultReorderPoint:  cfg.Inventory.DefaultReorderPoint,
		DefaultMaxStockLevel: cfg.Inventory.DefaultMaxStockLevel,
	}
	if err := engineCfg.Validate(); err != nil {
		app.close(log)
		return nil, err
	}
	engine := inventoryapp.NewEngine(store.scope, evaluator, engineCfg, log.Named("engine"))
	engine.SetEventPublisher(app.bus)
	engine.SetOperationRecorder(stockMetrics)

	queries := inventoryapp.NewQueryService(store.records, store.movements, levels, log.Named("queries"))

	alerts := alertapp.NewService(store.scope, store.alerts, evaluator, log.Named("alerts"))
	alerts.SetEventPublisher(app.bus)

	receiving := purchasing.NewReceivingService(engine, log.Named("purchasing"))

	app.sweeper, err = scheduler.NewReconciliationSweeper(scheduler.ReconciliationConfig{
		Enabled:  cfg.Reconcile.Enabled,
		Interval: cfg.Reconcile.Interval,
		PageSize: cfg.Reconcile.PageSize,
		Timeout:  cfg.Reconcile.Timeout,
	}, queries, stockMetrics, log.Named("reconcile"))
	if err != nil {
		app.close(log)
		return nil, err
	}

	app.handlers = router.Handlers{
		Inventory:  handler.NewInventoryHandler(engine, queries),
		Alerts:     handler.NewAlertHandler(alerts),
		Purchasing: handler.NewPurchasingHandler(receiving),
		System:     handler.NewSystemHandler(version, healthChecks(app)),
	}
	return app, nil
}

func openStorage(cfg *config.Config, providers *telemetry.Providers, log *zap.Logger) (*storage, error) {
	if cfg.Database.Store == config.StoreMemory {
		log.Warn("using in-memory store; stock data is lost on restart")
		mem := memstore.NewStore()
		return &storage{
			scope:     mem,
			records:   mem.StockRecords(),
			movements: mem.Movements(),
			alerts:    mem.Alerts(),
		}, nil
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := migrateUp(db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if _, err := telemetry.InstrumentDB(db.DB, providers.Meter.Meter("stockledger/db"), telemetry.DBConfig{
		Tracing:            cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to instrument database: %w", err)
	}

	return &storage{
		scope:     db.TransactionScope(),
		records:   persistence.NewGormStockRecordRepository(db.DB),
		movements: persistence.NewGormMovementRepository(db.DB),
		alerts:    persistence.NewGormAlertRepository(db.DB),
		db:        db,
	}, nil
}

func migrateUp(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.NewEmbedded(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared *sql.DB
	return m.Up()
}

func subscribeHandlers(
	cfg *config.Config,
	bus *event.InMemoryEventBus,
	idempotency shared.IdempotencyStore,
	levels inventoryapp.StockLevelCache,
	stockMetrics *telemetry.StockMetrics,
	log *zap.Logger,
) {
	idemCfg := shared.IdempotencyConfig{Enabled: true, TTL: cfg.Events.IdempotencyTTL}
	idemMetrics := &event.IdempotencyMetrics{}

	notifications := alertapp.NewNotificationHandler(log.Named("notifications")).
		WithNotifier(alertapp.NewLoggingAlertNotifier(log.Named("notifier"))).
		WithMinSeverity(alert.Severity(cfg.Alerts.NotifyMinSeverity)).
		WithChannels(cfg.Alerts.NotifyChannels...)
	bus.Subscribe(event.NewIdempotentHandler(notifications, idempotency, log,
		event.WithIdempotencyConfig(idemCfg),
		event.WithIdempotencyMetrics(idemMetrics),
	))

	if cfg.Cache.StockLevelsEnabled {
		bus.Subscribe(inventoryapp.NewStockLevelCacheInvalidator(levels, log.Named("cache")))
	}
	bus.Subscribe(stockMetrics)
}

func seedOpenAlerts(ctx context.Context, m *telemetry.StockMetrics, alerts alert.Repository, log *zap.Logger) {
	open := make(map[alert.AlertType]int64, 3)
	for _, t := range []alert.AlertType{alert.AlertTypeLowStock, alert.AlertTypeOutOfStock, alert.AlertTypeOverstock} {
		n, err := alerts.Count(ctx, alert.Filter{AlertType: t, OpenOnly: true})
		if err != nil {
			log.Warn("could not count open alerts, gauge starts at zero", zap.String("alert_type", string(t)), zap.Error(err))
			return
		}
		open[t] = n
	}
	m.SeedOpenAlerts(ctx, open)
}

func healthChecks(app *application) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{}
	if app.db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := app.db.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if app.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		}
	}
	return checks
}
