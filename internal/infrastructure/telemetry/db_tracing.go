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

// DefaultSlowQueryThreshold applies when DBTracingConfig leaves it zero.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bind variables in db.statement; dev only
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns tracing disabled with bind variables hidden.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: DefaultSlowQueryThreshold,
		DBSystem:        "postgresql",
	}
}

type queryStartKey struct{}

// gormProcessor abstracts the Before/After registration of one callback chain.
type gormProcessor struct {
	op       string
	register func(name string, before bool, fn func(*gorm.DB)) error
}

func processors(db *gorm.DB) []gormProcessor {
	cb := db.Callback()
	return []gormProcessor{
		{"create", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Create().Before("gorm:create").Register(name, fn)
			}
			return cb.Create().After("gorm:create").Register(name, fn)
		}},
		{"query", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Query().Before("gorm:query").Register(name, fn)
			}
			return cb.Query().After("gorm:query").Register(name, fn)
		}},
		{"update", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Update().Before("gorm:update").Register(name, fn)
			}
			return cb.Update().After("gorm:update").Register(name, fn)
		}},
		{"delete", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Delete().Before("gorm:delete").Register(name, fn)
			}
			return cb.Delete().After("gorm:delete").Register(name, fn)
		}},
		{"row", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Row().Before("gorm:row").Register(name, fn)
			}
			return cb.Row().After("gorm:row").Register(name, fn)
		}},
		{"raw", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Raw().Before("gorm:raw").Register(name, fn)
			}
			return cb.Raw().After("gorm:raw").Register(name, fn)
		}},
	}
}

// RegisterGormTracing installs the otelgorm plugin and a callback pair that
// tags each statement span with rows affected, table and slow-query markers.
func RegisterGormTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultSlowQueryThreshold
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	after := slowQueryCallback(cfg.SlowQueryThresh)
	for _, p := range processors(db) {
		if err := p.register("wms_trace:before_"+p.op, true, markQueryStart); err != nil {
			return err
		}
		if err := p.register("wms_trace:after_"+p.op, false, after); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
		zap.String("db_system", cfg.DBSystem),
	)
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func slowQueryCallback(threshold time.Duration) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}

		if db.Statement.RowsAffected >= 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		}
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}

		startedAt, ok := ctx.Value(queryStartKey{}).(time.Time)
		if !ok {
			return
		}
		if elapsed := time.Since(startedAt); elapsed > threshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", threshold.Milliseconds()),
			))
		}
	}
}
