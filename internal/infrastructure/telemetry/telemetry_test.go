package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/trade"
	"github.com/wms/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubLowStock struct {
	count int64
	err   error
	calls []int
}

func (s *stubLowStock) CountLowStock(_ context.Context, threshold int) (int64, error) {
	s.calls = append(s.calls, threshold)
	return s.count, s.err
}

type recordingPublisher struct {
	events []shared.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return p.err
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumByAttr(t *testing.T, m metricdata.Metrics, key string) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.AsString()] += dp.Value
	}
	return out
}

func adjustedEvent(change int) *inventory.InventoryAdjustedEvent {
	return &inventory.InventoryAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(inventory.EventTypeInventoryAdjusted, inventory.AggregateTypeInventoryItem, uuid.New()),
		QuantityChange:  change,
	}
}

func fulfilledEvent() *trade.OrderFulfilledEvent {
	return &trade.OrderFulfilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(trade.EventTypeOrderFulfilled, trade.AggregateTypeOrder, uuid.New()),
	}
}

func TestBusinessMetrics_Observe(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, zap.NewNop())
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	bm, err := NewBusinessMetrics(mp.Meter("test"), nil, 0, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	bm.Observe(ctx, adjustedEvent(10))
	bm.Observe(ctx, adjustedEvent(-4))
	bm.Observe(ctx, adjustedEvent(-2))
	bm.Observe(ctx, fulfilledEvent())

	metrics := collect(t, reader)

	events := sumByAttr(t, metrics["wms_domain_events_total"], "event_type")
	assert.Equal(t, int64(3), events[inventory.EventTypeInventoryAdjusted])
	assert.Equal(t, int64(1), events[trade.EventTypeOrderFulfilled])

	moved := sumByAttr(t, metrics["wms_inventory_units_moved_total"], "direction")
	assert.Equal(t, int64(10), moved["in"])
	assert.Equal(t, int64(6), moved["out"])

	fulfilled, ok := metrics["wms_orders_fulfilled_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, fulfilled.DataPoints, 1)
	assert.Equal(t, int64(1), fulfilled.DataPoints[0].Value)

	assert.NotContains(t, metrics, "wms_inventory_low_stock_rows")
	assert.NoError(t, bm.Close())
}

func TestBusinessMetrics_LowStockGauge(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, zap.NewNop())
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter := &stubLowStock{count: 4}
	bm, err := NewBusinessMetrics(mp.Meter("test"), counter, 5, zap.NewNop())
	require.NoError(t, err)

	metrics := collect(t, reader)
	gauge, ok := metrics["wms_inventory_low_stock_rows"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(4), gauge.DataPoints[0].Value)
	assert.Equal(t, []int{5}, counter.calls)

	t.Run("failed count is skipped", func(t *testing.T) {
		counter.err = errors.New("db down")
		metrics := collect(t, reader)
		if m, ok := metrics["wms_inventory_low_stock_rows"]; ok {
			gauge := m.Data.(metricdata.Gauge[int64])
			assert.Empty(t, gauge.DataPoints)
		}
	})

	require.NoError(t, bm.Close())
	calls := len(counter.calls)
	collect(t, reader)
	assert.Len(t, counter.calls, calls, "callback must not run after Close")
}

func TestMetricsPublisher(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, zap.NewNop())
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	bm, err := NewBusinessMetrics(mp.Meter("test"), nil, 0, zap.NewNop())
	require.NoError(t, err)

	next := &recordingPublisher{}
	publisher := NewMetricsPublisher(next, bm)

	e1, e2 := adjustedEvent(3), fulfilledEvent()
	require.NoError(t, publisher.Publish(context.Background(), e1, e2))
	assert.Equal(t, []shared.DomainEvent{e1, e2}, next.events)

	events := sumByAttr(t, collect(t, reader)["wms_domain_events_total"], "event_type")
	assert.Equal(t, int64(1), events[inventory.EventTypeInventoryAdjusted])
	assert.Equal(t, int64(1), events[trade.EventTypeOrderFulfilled])

	next.err = errors.New("broker down")
	err = publisher.Publish(context.Background(), adjustedEvent(1))
	assert.EqualError(t, err, "broker down")
}

func TestDBPoolMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, zap.NewNop())
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, sqlDB.Ping())

	reg, err := RegisterDBPoolMetrics(mp.Meter("test"), sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Unregister() })

	metrics := collect(t, reader)
	open, ok := metrics["db_pool_open_connections"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, open.DataPoints, 1)
	assert.Equal(t, int64(sqlDB.Stats().OpenConnections), open.DataPoints[0].Value)
	assert.Contains(t, metrics, "db_pool_in_use_connections")
	assert.Contains(t, metrics, "db_pool_wait_count_total")
	assert.Contains(t, metrics, "db_pool_wait_duration_seconds_total")
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(2.5).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(-1).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), samplerFor(0.25).Description())
}

func TestDisabledProviders(t *testing.T) {
	ctx := context.Background()
	cfg := config.TelemetryConfig{Enabled: false, ServiceName: "wms-test"}

	tp, err := NewTracerProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	tp.EnableSpanProfiles()
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base, "wms-test", zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(ctx))

	p, err := NewProfiler(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())

	_, err = NewProfiler(config.TelemetryConfig{ProfilerEnabled: true}, zap.NewNop())
	assert.Error(t, err)
}

func TestLevelFilterCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	filtered := &levelFilterCore{Core: core, minLevel: zapcore.WarnLevel}
	log := zap.New(filtered).With(zap.String("component", "sync"))

	log.Info("dropped")
	log.Warn("kept")
	log.Error("kept too")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
	assert.Equal(t, "sync", logs.All()[0].ContextMap()["component"])
	assert.False(t, filtered.Enabled(zapcore.DebugLevel))
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tracer := provider.Tracer("test")
	ctx, parent := tracer.Start(context.Background(), "parent")

	_, span := provider.Tracer(instrumentationName).Start(ctx, "Sendle create_label")
	EndSpan(span, errors.New("sendle unavailable"))
	EndSpan(parent, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "sendle unavailable", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
}

func TestStartClientSpan(t *testing.T) {
	_, span := StartClientSpan(context.Background(), "Shopify", "list_orders", Attr("page", 2))
	defer span.End()
	assert.NotNil(t, span)
}

func TestAttr(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		value any
		want  attribute.Value
	}{
		{"sku-1", attribute.StringValue("sku-1")},
		{7, attribute.IntValue(7)},
		{int64(9), attribute.Int64Value(9)},
		{1.5, attribute.Float64Value(1.5)},
		{true, attribute.BoolValue(true)},
		{id, attribute.StringValue(id.String())},
		{[]int{1, 2}, attribute.StringValue("[1 2]")},
	}
	for _, tt := range tests {
		kv := Attr("k", tt.value)
		assert.Equal(t, attribute.Key("k"), kv.Key)
		assert.Equal(t, tt.want, kv.Value)
	}
}

func TestMarkSlowQuery(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctx, span := provider.Tracer("test").Start(context.Background(), "SELECT")
	assert.False(t, markSlowQuery(ctx, time.Second), "no start time recorded")

	started := context.WithValue(ctx, queryStartKey{}, time.Now().Add(-2*time.Second))
	assert.True(t, markSlowQuery(started, time.Second))

	fresh := context.WithValue(ctx, queryStartKey{}, time.Now())
	assert.False(t, markSlowQuery(fresh, time.Second))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	attrs := attribute.NewSet(ended[0].Attributes()...)
	slow, ok := attrs.Value("db.slow_query")
	require.True(t, ok)
	assert.True(t, slow.AsBool())
}

func TestRegisterDBTracing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{SlowQueryThreshold: time.Millisecond}, zap.New(core)))
	assert.Equal(t, 1, logs.FilterMessage("Database tracing enabled").Len())

	var one int
	require.NoError(t, db.WithContext(context.Background()).Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	var rows *sql.Rows
	rows, err = db.Raw("SELECT 2").Rows()
	require.NoError(t, err)
	assert.NoError(t, rows.Close())
}
