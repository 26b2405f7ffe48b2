package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter abstracts the kafka writer for testability
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessagePublisher defines the interface for publishing messages
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}
