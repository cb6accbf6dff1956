package orderv1

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Reader consumes order instructions from the inbound stream.
type Reader interface {
	ReadInstruction(ctx context.Context) (kafka.Message, *Instruction, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
