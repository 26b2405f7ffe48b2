package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines ledger entry persistence operations
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	Update(ctx context.Context, txn *Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error

	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	ListByOwnerSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]*Transaction, error)

	// SumEffectsForAccount returns the net balance effect of every COMPLETED
	// entry touching the account. This is the ground-truth recovery query.
	SumEffectsForAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	// NetForAccountBetween returns the net effect of COMPLETED entries dated
	// within [start, end). Used for credit card statement balances.
	NetForAccountBetween(ctx context.Context, accountID uuid.UUID, start, end time.Time) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates missing ledger entry
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}
