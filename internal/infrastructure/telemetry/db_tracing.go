package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing
type DBTracingConfig struct {
	// LogFullSQL keeps bound variables in span statements; development only
	LogFullSQL bool
	// SlowQueryThreshold marks spans of slower statements with db.slow_query
	SlowQueryThreshold time.Duration
}

type queryStartKey struct{}

// RegisterDBTracing installs the otelgorm plugin plus a callback that flags
// slow statements on their span
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if cfg.SlowQueryThreshold > 0 {
		if err := registerSlowQueryCallbacks(db, cfg.SlowQueryThreshold); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold))
	return nil
}

func registerSlowQueryCallbacks(db *gorm.DB, threshold time.Duration) error {
	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		markSlowQuery(tx.Statement.Context, threshold)
	}

	cb := db.Callback()
	steps := []struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.before("telemetry:before_"+s.name, before); err != nil {
			return err
		}
		if err := s.after("telemetry:after_"+s.name, after); err != nil {
			return err
		}
	}
	return nil
}

// markSlowQuery flags the active span when the statement took at least threshold
func markSlowQuery(ctx context.Context, threshold time.Duration) bool {
	if ctx == nil {
		return false
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return false
	}
	elapsed := time.Since(start)
	if elapsed < threshold {
		return false
	}
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
	)
	return true
}
