package unitofwork

import (
	"context"

	"github.com/wms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Events gathers domain events raised inside a transaction so they can be
// published once the transaction has committed.
type Events struct {
	events []shared.DomainEvent
}

// Collect moves the pending events of the aggregates into the collector
func (e *Events) Collect(aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		e.events = append(e.events, agg.GetDomainEvents()...)
		agg.ClearDomainEvents()
	}
}

// Len returns the number of collected events
func (e *Events) Len() int {
	return len(e.events)
}

// All returns the collected events
func (e *Events) All() []shared.DomainEvent {
	return e.events
}

// Publish hands the collected events to the publisher.
// Failures are logged and never returned: the state change is already committed.
func (e *Events) Publish(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger) {
	if publisher == nil || len(e.events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, e.events...); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.Int("count", len(e.events)),
			zap.Error(err))
	}
	e.events = nil
}
