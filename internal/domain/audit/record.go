package audit

import (
	"time"

	"github.com/google/uuid"
)

// Change identifies what produced a balance mutation
type Change string

const (
	ChangeApplied      Change = "APPLIED"
	ChangeReverted     Change = "REVERTED"
	ChangeRecalculated Change = "RECALCULATED"
)

// Record is one entry in the balance audit journal. A record is appended
// after every committed balance mutation, giving a replayable trail of how
// the derived balance moved. Recalculation records carry the drift that the
// ground-truth recompute corrected (zero when balances never diverged).
type Record struct {
	ID            uuid.UUID  `json:"id" bson:"id"`
	AccountID     uuid.UUID  `json:"account_id" bson:"account_id"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	Change        Change     `json:"change" bson:"change"`
	Delta         int64      `json:"delta" bson:"delta"` // Minor units
	BalanceBefore int64      `json:"balance_before" bson:"balance_before"`
	BalanceAfter  int64      `json:"balance_after" bson:"balance_after"`
	Drift         int64      `json:"drift,omitempty" bson:"drift,omitempty"`
	RecordedAt    time.Time  `json:"recorded_at" bson:"recorded_at"`
}

// NewRecord builds a journal record for a single account mutation
func NewRecord(accountID uuid.UUID, transactionID *uuid.UUID, change Change, delta, before, after int64) *Record {
	return &Record{
		ID:            uuid.New(),
		AccountID:     accountID,
		TransactionID: transactionID,
		Change:        change,
		Delta:         delta,
		BalanceBefore: before,
		BalanceAfter:  after,
		RecordedAt:    time.Now(),
	}
}
