package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/domain/shared"
)

// Message stores a ledger event for reliable publishing. Messages are written
// in the same database transaction as the mutation they describe and picked
// up by the outbox poller after commit.
type Message struct {
	ID            int64               `json:"id"`
	EventType     shared.EventType    `json:"event_type"`
	AggregateID   uuid.UUID           `json:"aggregate_id"` // Account or bill the event concerns
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage marshals payload into a pending outbox message
func NewMessage(eventType shared.EventType, aggregateID uuid.UUID, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     raw,
		Status:      shared.OutboxStatusPending,
		Attempts:    0,
		CreatedAt:   time.Now(),
	}, nil
}
