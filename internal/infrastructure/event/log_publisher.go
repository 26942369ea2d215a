package event

import (
	"context"

	"github.com/wms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a new LogPublisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs one line per event
func (p *LogPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		p.logger.Info("Domain event",
			zap.String("event_id", e.EventID().String()),
			zap.String("event_type", e.EventType()),
			zap.String("aggregate_type", e.AggregateType()),
			zap.String("aggregate_id", e.AggregateID().String()),
			zap.Time("occurred_at", e.OccurredAt()))
	}
	return nil
}

var _ shared.EventPublisher = (*LogPublisher)(nil)
