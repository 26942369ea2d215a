package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is something that happened to an aggregate
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// EventPublisher delivers committed events, to the log or to Kafka
type EventPublisher interface {
	// Publish is called only after the producing transaction has committed
	Publish(ctx context.Context, events ...DomainEvent) error
}

// AggregateRef identifies the aggregate that raised an event
type AggregateRef struct {
	Type string
	ID   uuid.UUID
}

// BaseDomainEvent carries the event metadata. It is excluded from the JSON
// form so a serialized event holds only its own fields; the metadata travels
// in the envelope around it.
type BaseDomainEvent struct {
	ID        uuid.UUID    `json:"-"`
	Type      string       `json:"-"`
	Aggregate AggregateRef `json:"-"`
	At        time.Time    `json:"-"`
}

// NewBaseDomainEvent stamps a new event of eventType raised by the aggregate
func NewBaseDomainEvent(eventType, aggregateType string, aggregateID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Aggregate: AggregateRef{Type: aggregateType, ID: aggregateID},
		At:        time.Now(),
	}
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e *BaseDomainEvent) EventType() string      { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.Aggregate.ID }
func (e *BaseDomainEvent) AggregateType() string  { return e.Aggregate.Type }
