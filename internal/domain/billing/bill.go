package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/domain/shared"
)

// Common errors
var (
	ErrNegativePayment = errors.New("payment amount cannot be negative")
)

// Bill is a generated credit card statement for one billing cycle.
// StatementBalance follows the ledger sign convention: negative means the
// card holder owes money. PaidAmount accumulates recorded payments and is
// never clamped; paying more than owed moves the bill to OVERPAID.
type Bill struct {
	ID               uuid.UUID         `json:"id"`
	AccountID        uuid.UUID         `json:"account_id"`
	CycleStart       time.Time         `json:"cycle_start"`
	CycleEnd         time.Time         `json:"cycle_end"` // Exclusive
	DueDate          time.Time         `json:"due_date"`
	StatementBalance int64             `json:"statement_balance"` // Minor units, negative = owed
	PaidAmount       int64             `json:"paid_amount"`       // Minor units, >= 0
	Status           shared.BillStatus `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewBill creates an OPEN bill for the given cycle
func NewBill(accountID uuid.UUID, cycleStart, cycleEnd, dueDate time.Time, statementBalance int64) *Bill {
	b := &Bill{
		ID:               uuid.New(),
		AccountID:        accountID,
		CycleStart:       cycleStart,
		CycleEnd:         cycleEnd,
		DueDate:          dueDate,
		StatementBalance: statementBalance,
		PaidAmount:       0,
		Status:           shared.BillStatusOpen,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	// A statement with nothing owed needs no payment.
	if b.AmountOwed() == 0 {
		b.Status = shared.BillStatusPaid
	}
	return b
}

// AmountOwed returns the magnitude still expected for this statement. A
// positive (credit) statement balance owes nothing.
func (b *Bill) AmountOwed() int64 {
	if b.StatementBalance >= 0 {
		return 0
	}
	return -b.StatementBalance
}

// RecordPayment adds amount to the paid total and advances the settlement
// state machine.
func (b *Bill) RecordPayment(amount int64) error {
	if amount < 0 {
		return ErrNegativePayment
	}
	b.PaidAmount += amount
	b.UpdatedAt = time.Now()

	owed := b.AmountOwed()
	switch {
	case b.PaidAmount > owed:
		b.Status = shared.BillStatusOverpaid
	case b.PaidAmount == owed && owed > 0:
		b.Status = shared.BillStatusPaid
	case b.PaidAmount > 0:
		b.Status = shared.BillStatusPartiallyPaid
	}
	return nil
}

// RefreshOverdue flips an unpaid bill past its due date to OVERDUE.
// Returns true when the status changed.
func (b *Bill) RefreshOverdue(now time.Time) bool {
	if b.Status != shared.BillStatusOpen && b.Status != shared.BillStatusPartiallyPaid {
		return false
	}
	if !now.After(b.DueDate) {
		return false
	}
	b.Status = shared.BillStatusOverdue
	b.UpdatedAt = now
	return true
}
