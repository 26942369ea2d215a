package testutil

import (
	"context"
	"sync"

	"github.com/wms/backend/internal/domain/shared"
)

// RecordingPublisher is an in-memory shared.EventPublisher for tests.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

// NewRecordingPublisher creates a new recording publisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{events: make([]shared.DomainEvent, 0)}
}

// Publish records the events and returns the configured error.
func (p *RecordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

// Events returns all recorded events.
func (p *RecordingPublisher) Events() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]shared.DomainEvent, len(p.events))
	copy(result, p.events)
	return result
}

// EventTypes returns the types of the recorded events in publish order.
func (p *RecordingPublisher) EventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}

// CountByType returns how many events of eventType were recorded.
func (p *RecordingPublisher) CountByType(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

// SetError sets the error to return from Publish.
func (p *RecordingPublisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Reset clears all recorded events.
func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = make([]shared.DomainEvent, 0)
	p.err = nil
}

var _ shared.EventPublisher = (*RecordingPublisher)(nil)
