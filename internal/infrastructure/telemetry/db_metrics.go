package telemetry

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// RegisterDBPoolMetrics observes the connection pool of sqlDB on every
// collection. Unregister the returned registration before closing sqlDB.
func RegisterDBPoolMetrics(meter metric.Meter, sqlDB *sql.DB) (metric.Registration, error) {
	open, err := meter.Int64ObservableGauge("db_pool_open_connections",
		metric.WithDescription("Established connections, in use and idle"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("create open connections gauge: %w", err)
	}
	inUse, err := meter.Int64ObservableGauge("db_pool_in_use_connections",
		metric.WithDescription("Connections currently in use"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("create in-use gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_count_total",
		metric.WithDescription("Total connections waited for"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return nil, fmt.Errorf("create wait counter: %w", err)
	}
	waitSeconds, err := meter.Float64ObservableCounter("db_pool_wait_duration_seconds_total",
		metric.WithDescription("Total time blocked waiting for a connection"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create wait duration counter: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(open, int64(stats.OpenConnections))
		o.ObserveInt64(inUse, int64(stats.InUse))
		o.ObserveInt64(waits, stats.WaitCount)
		o.ObserveFloat64(waitSeconds, stats.WaitDuration.Seconds())
		return nil
	}, open, inUse, waits, waitSeconds)
}
