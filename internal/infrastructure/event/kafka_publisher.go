package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const defaultWriteTimeout = 5 * time.Second

// messageWriter is the subset of *kafka.Writer used by the publisher
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements shared.EventPublisher on a Kafka topic.
// Messages are keyed by aggregate id so events of one aggregate stay ordered.
type KafkaPublisher struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic on cfg.Brokers
func NewKafkaPublisher(cfg config.MessagingConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("messaging: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("messaging: topic is required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, cfg.Topic, cfg.WriteTimeout, logger), nil
}

func newKafkaPublisher(writer messageWriter, topic string, writeTimeout time.Duration, logger *zap.Logger) *KafkaPublisher {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &KafkaPublisher{
		writer:       writer,
		topic:        topic,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Publish writes the events as one batch
func (p *KafkaPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := Serialize(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.AggregateID().String()),
			Value: value,
			Time:  e.OccurredAt(),
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(e.EventType())},
				{Key: "aggregate-type", Value: []byte(e.AggregateType())},
			},
		})
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d events to %s: %w", len(msgs), p.topic, err)
	}

	p.logger.Debug("Events published",
		zap.String("topic", p.topic),
		zap.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ shared.EventPublisher = (*KafkaPublisher)(nil)
