// Package orderreader consumes order instructions from the inbound Kafka
// topic and hands them to the engine.
package orderreader

import (
	"context"
	"encoding/json"

	orderv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/order/v1"
	"github.com/azaynul10/CarbonPro-AI/pkg/config"
	"github.com/azaynul10/CarbonPro-AI/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Reader wraps a Kafka reader over the order topic.
type Reader struct {
	kafkaReader *kafka.Reader
	logger      logger.Interface
}

var _ orderv1.Reader = (*Reader)(nil)

// NewReader creates a Kafka reader for the order instruction topic.
func NewReader(cfg config.OrderStreamConfig, log logger.Interface) *Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	return &Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

// ReadInstruction reads the next message from the order topic and parses
// it as an Instruction.
func (r *Reader) ReadInstruction(ctx context.Context) (kafka.Message, *orderv1.Instruction, error) {
	msg, err := r.kafkaReader.FetchMessage(ctx)
	if err != nil {
		return kafka.Message{}, nil, err
	}

	var instruction orderv1.Instruction
	if err := json.Unmarshal(msg.Value, &instruction); err != nil {
		r.logger.Error(err,
			logger.Field{Key: "operation", Value: "unmarshal_instruction"},
			logger.Field{Key: "offset", Value: msg.Offset},
		)
		return kafka.Message{}, nil, err
	}
	instruction.Offset = msg.Offset

	r.logger.Debug("instruction received",
		logger.Field{Key: "action", Value: string(instruction.Action)},
		logger.Field{Key: "instrumentID", Value: instruction.InstrumentID},
		logger.Field{Key: "offset", Value: msg.Offset},
	)

	return msg, &instruction, nil
}

// CommitMessages marks the messages as processed in the consumer group.
func (r *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return r.kafkaReader.CommitMessages(ctx, msgs...)
}

// Close closes the Kafka reader.
func (r *Reader) Close() error {
	return r.kafkaReader.Close()
}
