package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/erp/stockledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/erp/stockledger/docs"
)

//	@title			Stock Ledger API
//	@version		1.0
//	@description	Multi-warehouse stock ledger: adjustments, transfers, receipts, reservations and stock alerts.

//	@contact.name	API Support
//	@contact.url	https://github.com/erp/stockledger

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Bootstrap logger for telemetry setup; replaced once the OTLP log core exists
	bootLog, err := logger.New(loggerConfig(cfg))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	providers, err := telemetry.Setup(ctx, telemetry.FromConfig(cfg.Telemetry, version), bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	log, err := logger.New(loggerConfig(cfg), providers.Logs.ZapCore(cfg.Telemetry.ServiceName, zapcore.InfoLevel))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting stock ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.String("store", cfg.Database.Store),
	)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeEndpoint,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		providers.Tracer.EnableSpanProfiles()
	}

	app, err := wire(ctx, cfg, providers, log)
	if err != nil {
		log.Fatal("Failed to assemble application", zap.Error(err))
	}

	if err := app.sweeper.Start(ctx); err != nil {
		log.Fatal("Failed to start reconciliation sweeper", zap.Error(err))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := router.New(router.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		SwaggerEnabled: cfg.Swagger.Enabled,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		CORS: middleware.CORSConfig{
			AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
			AllowMethods:     cfg.HTTP.CORSAllowMethods,
			AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders:    []string{middleware.RequestIDKey},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		},
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Meter:          providers.Meter.Meter("stockledger/http"),
	}, app.handlers, log)
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := app.sweeper.Stop(shutdownCtx); err != nil {
		log.Error("Reconciliation sweep did not finish", zap.Error(err))
	}
	// Stop after the server so in-flight requests can still publish
	if err := app.bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not drain", zap.Error(err))
	}
	app.close(log)
	if err := profiler.Stop(); err != nil {
		log.Error("Failed to stop profiler", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush telemetry", zap.Error(err))
	}

	log.Info("Server exited")
}

func loggerConfig(cfg *config.Config) *logger.Config {
	return &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}
