// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// Pyroscope profiling for the ledger service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invest/ledger/internal/infrastructure/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// serviceVersion is reported on every exported resource
const serviceVersion = "1.0.0"

const shutdownTimeout = 10 * time.Second

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// Providers bundles every telemetry signal started for the process
type Providers struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
	DB       DBTracingConfig
}

// Setup starts all providers described by cfg. Disabled signals get no-op
// providers so callers never need nil checks.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Providers{
		DB: DBTracingConfig{
			Enabled:         cfg.Enabled && cfg.DBTraceEnabled,
			LogFullSQL:      cfg.DBLogFullSQL,
			SlowQueryThresh: cfg.DBSlowQueryThresh,
			DBSystem:        "postgresql",
		},
	}

	var err error
	p.Tracer, err = NewTracerProvider(ctx, Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, logger)
	if err != nil {
		return nil, err
	}

	p.Meter, err = NewMeterProvider(ctx, MetricsConfig{
		Enabled:           cfg.Enabled && cfg.MetricsEnabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ExportInterval:    cfg.MetricsInterval,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, logger)
	if err != nil {
		p.Shutdown(ctx)
		return nil, err
	}

	p.Logs, err = NewLoggerProvider(ctx, LogsConfig{
		Enabled:           cfg.Enabled && cfg.LogsEnabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, logger)
	if err != nil {
		p.Shutdown(ctx)
		return nil, err
	}

	p.Profiler, err = NewProfiler(ProfilerConfig{
		Enabled:         cfg.ProfilingEnabled,
		ServerAddress:   cfg.PyroscopeServer,
		ApplicationName: cfg.ServiceName,
		ProfileTypes:    DefaultProfileTypes(),
	}, logger)
	if err != nil {
		p.Shutdown(ctx)
		return nil, err
	}
	if p.Profiler.IsEnabled() {
		if err := p.Tracer.EnableSpanProfiles(); err != nil {
			logger.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	return p, nil
}

// Shutdown flushes and stops every started provider, returning the joined errors
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Profiler != nil {
		errs = append(errs, p.Profiler.Stop())
	}
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
