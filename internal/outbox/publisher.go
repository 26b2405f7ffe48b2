package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fintrack/ledger-engine/internal/domain/outbox"
	"github.com/fintrack/ledger-engine/internal/domain/shared"
	"github.com/fintrack/ledger-engine/internal/platform/messaging/producers"
)

// EventPublisher pushes one outbox message to the event stream
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// KafkaEventPublisher implements EventPublisher on the Kafka producer
type KafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewKafkaEventPublisher creates a new publisher
func NewKafkaEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &KafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// event is the envelope written to the stream. The payload is forwarded as
// stored; consumers key off event_type.
type event struct {
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
}

// PublishEvent publishes a message to Kafka and marks it processed. A poison
// payload (unmarshalable) is marked FAILED_TO_PUBLISH immediately so it never
// blocks the queue.
func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	if !json.Valid(message.Payload) {
		p.logger.Error("Invalid payload in outbox message",
			"outbox_id", message.ID, "event_type", string(message.EventType),
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status after invalid payload", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("invalid payload for outbox %d", message.ID)
	}

	envelope := event{
		EventType:   string(message.EventType),
		AggregateID: message.AggregateID.String(),
		Payload:     message.Payload,
	}

	// Keyed by aggregate so events for one account stay ordered.
	if err := p.producer.Publish(ctx, envelope.AggregateID, envelope); err != nil {
		return fmt.Errorf("failed to publish outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		p.logger.Error("Published event but failed to mark outbox message as PROCESSED",
			"outbox_id", message.ID, "error", err,
		)
		return fmt.Errorf("publish for outbox %d OK, but failed to mark PROCESSED: %w", message.ID, err)
	}

	p.logger.Info("Outbox message published",
		"outbox_id", message.ID,
		"event_type", string(message.EventType),
	)
	return nil
}
