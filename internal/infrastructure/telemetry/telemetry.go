// Package telemetry wires OpenTelemetry traces, metrics and logs, database
// tracing and Pyroscope profiling. Every provider degrades to a no-op when
// telemetry is disabled so callers never branch on configuration.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Config holds exporter settings shared by all providers
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	ServiceVersion    string
	Insecure          bool
	MetricsInterval   time.Duration
}

// FromConfig maps application configuration onto Config
func FromConfig(cfg config.TelemetryConfig, version string) Config {
	return Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Insecure,
	}
}

func newResource(cfg Config) (*resource.Resource, error) {
	version := cfg.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// Providers groups the trace, metric and log providers
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
	Logs   *LoggerProvider
}

// Setup creates all providers. On failure, providers created so far are shut down.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Providers, error) {
	p := &Providers{}
	var err error

	if p.Tracer, err = NewTracerProvider(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if p.Meter, err = NewMeterProvider(ctx, cfg, logger); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	if p.Logs, err = NewLoggerProvider(ctx, cfg, logger); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	return p, nil
}

// Shutdown flushes and stops every provider, returning all errors joined
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Logs != nil {
		errs = append(errs, p.Logs.Shutdown(ctx))
	}
	if p.Meter != nil {
		errs = append(errs, p.Meter.Shutdown(ctx))
	}
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
