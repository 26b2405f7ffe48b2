package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines bill persistence operations
type Repository interface {
	Create(ctx context.Context, bill *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)

	// GetByAccountAndCycle looks up the bill generated for the exact cycle
	// start, if any. This is the idempotency check for auto-generation.
	GetByAccountAndCycle(ctx context.Context, accountID uuid.UUID, cycleStart time.Time) (*Bill, error)

	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Bill, error)
	Update(ctx context.Context, bill *Bill) error

	// LockForUpdate acquires a row lock for payment recording
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Bill, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrBillNotFound indicates missing bill
type ErrBillNotFound struct {
	BillID uuid.UUID
}

func (e ErrBillNotFound) Error() string {
	return "bill not found: " + e.BillID.String()
}

// ErrDuplicateBill indicates a bill already exists for the cycle
type ErrDuplicateBill struct {
	AccountID  uuid.UUID
	CycleStart time.Time
}

func (e ErrDuplicateBill) Error() string {
	return "bill already generated for account " + e.AccountID.String() +
		" cycle starting " + e.CycleStart.Format("2006-01-02")
}
