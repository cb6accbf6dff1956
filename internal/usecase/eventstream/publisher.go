// Package eventstream publishes engine events to the outbound Kafka
// topic. Downstream collaborators (persistence, notification, settlement
// notarization) consume the stream with at-least-once semantics and
// deduplicate on the immutable order/trade ids.
package eventstream

import (
	"context"
	"encoding/json"

	eventv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/event/v1"
	"github.com/azaynul10/CarbonPro-AI/pkg/config"
	"github.com/azaynul10/CarbonPro-AI/pkg/errors"
	"github.com/azaynul10/CarbonPro-AI/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Publisher writes event envelopes to Kafka, keyed by instrument so each
// instrument's events stay ordered within a partition.
type Publisher struct {
	writer *kafka.Writer
	logger logger.Interface
}

var _ eventv1.Publisher = (*Publisher)(nil)

// NewPublisher creates a Kafka publisher for the outbound event topic.
func NewPublisher(cfg config.EventStreamConfig, log logger.Interface) *Publisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})

	return &Publisher{
		writer: writer,
		logger: log,
	}
}

// Publish writes one envelope to the event topic.
func (p *Publisher) Publish(ctx context.Context, envelope *eventv1.Envelope) error {
	value, err := json.Marshal(envelope)
	if err != nil {
		return errors.TracerFromError(err).WithCode(errors.EventPublishError)
	}

	msg := kafka.Message{
		Key:   []byte(envelope.InstrumentID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "eventType", Value: string(envelope.Type)},
			logger.Field{Key: "instrumentID", Value: envelope.InstrumentID},
		)
		return errors.NewTracer("failed to publish engine event").
			WithCode(errors.EventPublishError).Wrap(err)
	}
	return nil
}

// Close flushes and closes the Kafka writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
