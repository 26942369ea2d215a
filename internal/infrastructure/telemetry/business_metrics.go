package telemetry

import (
	"context"
	"fmt"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/trade"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LowStockCounter reports how many stock rows are at or below a threshold
type LowStockCounter interface {
	CountLowStock(ctx context.Context, threshold int) (int64, error)
}

// BusinessMetrics records warehouse activity derived from domain events
type BusinessMetrics struct {
	events       metric.Int64Counter
	unitsMoved   metric.Int64Counter
	fulfillments metric.Int64Counter
	lowStock     metric.Int64ObservableGauge
	registration metric.Registration
	logger       *zap.Logger
}

// NewBusinessMetrics creates the instruments. When lowStock is non-nil a
// gauge of rows at or below threshold is observed on every collection.
func NewBusinessMetrics(meter metric.Meter, lowStock LowStockCounter, threshold int, logger *zap.Logger) (*BusinessMetrics, error) {
	bm := &BusinessMetrics{logger: logger}

	var err error
	if bm.events, err = meter.Int64Counter("wms_domain_events_total",
		metric.WithDescription("Domain events published, by event type"),
		metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("create events counter: %w", err)
	}
	if bm.unitsMoved, err = meter.Int64Counter("wms_inventory_units_moved_total",
		metric.WithDescription("Absolute stock units moved by adjustments, by direction"),
		metric.WithUnit("{unit}")); err != nil {
		return nil, fmt.Errorf("create units counter: %w", err)
	}
	if bm.fulfillments, err = meter.Int64Counter("wms_orders_fulfilled_total",
		metric.WithDescription("Orders fulfilled"),
		metric.WithUnit("{order}")); err != nil {
		return nil, fmt.Errorf("create fulfillment counter: %w", err)
	}

	if lowStock != nil {
		if bm.lowStock, err = meter.Int64ObservableGauge("wms_inventory_low_stock_rows",
			metric.WithDescription("Stock rows at or below the low-stock threshold"),
			metric.WithUnit("{row}")); err != nil {
			return nil, fmt.Errorf("create low stock gauge: %w", err)
		}
		thresholdAttr := attribute.Int("threshold", threshold)
		bm.registration, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			count, err := lowStock.CountLowStock(ctx, threshold)
			if err != nil {
				logger.Warn("Failed to observe low stock", zap.Error(err))
				return nil
			}
			o.ObserveInt64(bm.lowStock, count, metric.WithAttributes(thresholdAttr))
			return nil
		}, bm.lowStock)
		if err != nil {
			return nil, fmt.Errorf("register low stock callback: %w", err)
		}
	}
	return bm, nil
}

// Observe records the metrics carried by one domain event
func (bm *BusinessMetrics) Observe(ctx context.Context, event shared.DomainEvent) {
	bm.events.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", event.EventType())))

	switch e := event.(type) {
	case *inventory.InventoryAdjustedEvent:
		direction, units := "in", int64(e.QuantityChange)
		if units < 0 {
			direction, units = "out", -units
		}
		bm.unitsMoved.Add(ctx, units, metric.WithAttributes(attribute.String("direction", direction)))
	case *trade.OrderFulfilledEvent:
		bm.fulfillments.Add(ctx, 1)
	}
}

// Close unregisters the low stock callback
func (bm *BusinessMetrics) Close() error {
	if bm.registration == nil {
		return nil
	}
	return bm.registration.Unregister()
}

// MetricsPublisher records business metrics for every event before
// handing it to the next publisher
type MetricsPublisher struct {
	next    shared.EventPublisher
	metrics *BusinessMetrics
}

// NewMetricsPublisher creates a new MetricsPublisher
func NewMetricsPublisher(next shared.EventPublisher, metrics *BusinessMetrics) *MetricsPublisher {
	return &MetricsPublisher{next: next, metrics: metrics}
}

// Publish implements shared.EventPublisher
func (p *MetricsPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		p.metrics.Observe(ctx, e)
	}
	return p.next.Publish(ctx, events...)
}

var _ shared.EventPublisher = (*MetricsPublisher)(nil)
