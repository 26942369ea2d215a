package main

import (
	"context"
	"fmt"

	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// telemetryStack owns the OpenTelemetry providers and the profiler
type telemetryStack struct {
	tracer      *telemetry.TracerProvider
	meter       *telemetry.MeterProvider
	logs        *telemetry.LoggerProvider
	profiler    *telemetry.Profiler
	poolMetrics metric.Registration
	// logger also exports to the collector when OTLP logs are enabled
	logger *zap.Logger
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryStack, error) {
	t := &telemetryStack{logger: log}
	var err error

	if t.tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log); err != nil {
		return nil, err
	}
	if t.meter, err = telemetry.NewMeterProvider(ctx, cfg.Telemetry, log); err != nil {
		t.shutdown(log)
		return nil, err
	}
	if t.logs, err = telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log); err != nil {
		t.shutdown(log)
		return nil, err
	}
	if t.profiler, err = telemetry.NewProfiler(cfg.Telemetry, log); err != nil {
		t.shutdown(log)
		return nil, err
	}
	if t.profiler.IsEnabled() {
		t.tracer.EnableSpanProfiles()
	}

	t.logger = t.logs.Bridge(log, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))
	return t, nil
}

// instrumentDatabase adds query spans and pool gauges to db
func (t *telemetryStack) instrumentDatabase(cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if t.tracer.IsEnabled() && cfg.Telemetry.DBTraceEnabled {
		err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
			SlowQueryThreshold: cfg.Database.SlowThreshold,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to register database tracing: %w", err)
		}
	}

	if t.meter.IsEnabled() {
		sqlDB, err := db.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		if t.poolMetrics, err = telemetry.RegisterDBPoolMetrics(t.meter.Meter("wms.database"), sqlDB); err != nil {
			return fmt.Errorf("failed to register pool metrics: %w", err)
		}
	}
	return nil
}

func (t *telemetryStack) unregisterPoolMetrics(log *zap.Logger) {
	if t.poolMetrics == nil {
		return
	}
	if err := t.poolMetrics.Unregister(); err != nil {
		log.Warn("Failed to unregister pool metrics", zap.Error(err))
	}
}

// shutdown flushes every provider; it tolerates a partially built stack
func (t *telemetryStack) shutdown(log *zap.Logger) {
	ctx := context.Background()
	if t.profiler != nil {
		if err := t.profiler.Stop(); err != nil {
			log.Warn("Failed to stop profiler", zap.Error(err))
		}
	}
	if t.logs != nil {
		if err := t.logs.Shutdown(ctx); err != nil {
			log.Warn("Failed to shut down log export", zap.Error(err))
		}
	}
	if t.meter != nil {
		if err := t.meter.Shutdown(ctx); err != nil {
			log.Warn("Failed to shut down metrics", zap.Error(err))
		}
	}
	if t.tracer != nil {
		if err := t.tracer.Shutdown(ctx); err != nil {
			log.Warn("Failed to shut down tracing", zap.Error(err))
		}
	}
}
