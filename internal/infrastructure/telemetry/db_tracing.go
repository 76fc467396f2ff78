package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQueryThresh = 200 * time.Millisecond

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bind variables in spans; never in production
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DBTracingPlugin registers otelgorm on a GORM handle and decorates the
// resulting spans with row counts, table names and slow-query markers.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new DBTracingPlugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQueryThresh
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Register installs otelgorm and the timing callbacks. A disabled plugin is a no-op.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// gormCallback is the subset of gorm's callback builder used here
type gormCallback interface {
	Register(name string, fn func(*gorm.DB)) error
}

// registerTimingCallbacks stamps the start time before each statement and
// inspects the result before otelgorm ends the span
func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after gormCallback
	}{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create").Before("otel:after:create")},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query").Before("otel:after:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update").Before("otel:after:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete").Before("otel:after:delete")},
		{"row", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row").Before("otel:after:row")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw").Before("otel:after:raw")},
	}
	for _, h := range hooks {
		if err := h.before.Register("otel_timing:before_"+h.op, markQueryStart); err != nil {
			return err
		}
		if err := h.after.Register("otel_timing:after_"+h.op, p.afterQuery); err != nil {
			return err
		}
	}
	return nil
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

func (p *DBTracingPlugin) afterQuery(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	var elapsed time.Duration
	slow := false
	if start, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		elapsed = time.Since(start)
		slow = elapsed > p.config.SlowQueryThresh
	}
	if slow {
		p.logger.Warn("Slow query",
			zap.String("table", db.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", p.config.SlowQueryThresh),
		)
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if slow {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
