package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls database instrumentation
type DBConfig struct {
	Tracing            bool
	LogFullSQL         bool
	SlowQueryThreshold time.Duration
}

type queryStartKey struct{}

// DBInstrumentation adds otelgorm spans, a statement duration histogram, pool
// gauges and slow statement warnings to a GORM handle
type DBInstrumentation struct {
	cfg      DBConfig
	logger   *zap.Logger
	duration metric.Float64Histogram
}

type hook struct {
	op     string
	before func(name string, fn func(*gorm.DB)) error
	after  func(name string, fn func(*gorm.DB)) error
}

func hooks(db *gorm.DB) []hook {
	cb := db.Callback()
	return []hook{
		{"create",
			func(n string, fn func(*gorm.DB)) error { return cb.Create().Before("gorm:create").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Create().After("gorm:create").Register(n, fn) }},
		{"query",
			func(n string, fn func(*gorm.DB)) error { return cb.Query().Before("gorm:query").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Query().After("gorm:query").Register(n, fn) }},
		{"update",
			func(n string, fn func(*gorm.DB)) error { return cb.Update().Before("gorm:update").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Update().After("gorm:update").Register(n, fn) }},
		{"delete",
			func(n string, fn func(*gorm.DB)) error { return cb.Delete().Before("gorm:delete").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Delete().After("gorm:delete").Register(n, fn) }},
		{"row",
			func(n string, fn func(*gorm.DB)) error { return cb.Row().Before("gorm:row").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Row().After("gorm:row").Register(n, fn) }},
		{"raw",
			func(n string, fn func(*gorm.DB)) error { return cb.Raw().Before("gorm:raw").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Raw().After("gorm:raw").Register(n, fn) }},
	}
}

// InstrumentDB registers instrumentation on db, recording metrics with meter
func InstrumentDB(db *gorm.DB, meter metric.Meter, cfg DBConfig, logger *zap.Logger) (*DBInstrumentation, error) {
	in := &DBInstrumentation{cfg: cfg, logger: logger}

	var err error
	in.duration, err = meter.Float64Histogram("db.query.duration",
		metric.WithDescription("Duration of database statements"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	if err := registerPoolGauges(db, meter); err != nil {
		return nil, err
	}

	if cfg.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName(db.Dialector.Name())}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, err
		}
	}

	for _, h := range hooks(db) {
		op := h.op
		if err := h.before("stockledger:before_"+op, markStart); err != nil {
			return nil, err
		}
		if err := h.after("stockledger:after_"+op, func(tx *gorm.DB) { in.after(tx, op) }); err != nil {
			return nil, err
		}
	}

	logger.Info("database instrumentation enabled",
		zap.Bool("tracing", cfg.Tracing),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return in, nil
}

func markStart(tx *gorm.DB) {
	if tx.Statement.Context != nil {
		tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (in *DBInstrumentation) after(tx *gorm.DB, op string) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	started, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(started)
	failed := tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound)

	in.duration.Record(ctx, float64(elapsed.Microseconds())/1000,
		metric.WithAttributes(
			attribute.String("db.operation", op),
			attribute.String("db.sql.table", tx.Statement.Table),
			attribute.Bool("error", failed),
		))

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() && tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}

	if in.cfg.SlowQueryThreshold > 0 && elapsed > in.cfg.SlowQueryThreshold {
		span.AddEvent("slow_query", trace.WithAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds())))
		fields := []zap.Field{
			zap.String("operation", op),
			zap.String("table", tx.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", in.cfg.SlowQueryThreshold),
		}
		if in.cfg.LogFullSQL {
			fields = append(fields, zap.String("sql", strings.TrimSpace(tx.Statement.SQL.String())))
		}
		in.logger.Warn("slow database statement", fields...)
	}
}

func registerPoolGauges(db *gorm.DB, meter metric.Meter) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	open, err := meter.Int64ObservableGauge("db.pool.open_connections",
		metric.WithDescription("Open connections, in use plus idle"))
	if err != nil {
		return err
	}
	inUse, err := meter.Int64ObservableGauge("db.pool.in_use")
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db.pool.wait_count",
		metric.WithDescription("Connections waited for since start"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := sqlDB.Stats()
		o.ObserveInt64(open, int64(s.OpenConnections))
		o.ObserveInt64(inUse, int64(s.InUse))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, open, inUse, waits)
	return err
}
