package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/domain/shared"
)

// Common errors
var (
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrMissingAccount      = errors.New("transaction must reference an account")
	ErrSameTransferAccount = errors.New("transfer must reference two distinct accounts")
)

// Transaction is a persisted ledger entry. Amount is always non-negative;
// direction is encoded by Type and the account fields, never by sign.
// Deposits and withdrawals reference AccountID; transfers reference
// FromAccountID and ToAccountID.
type Transaction struct {
	ID            uuid.UUID                `json:"id"`
	OwnerID       uuid.UUID                `json:"owner_id"`
	Type          shared.TransactionType   `json:"type"`
	Status        shared.TransactionStatus `json:"status"`
	Amount        int64                    `json:"amount"` // Stored in cents/minor units
	AccountID     *uuid.UUID               `json:"account_id,omitempty"`
	FromAccountID *uuid.UUID               `json:"from_account_id,omitempty"`
	ToAccountID   *uuid.UUID               `json:"to_account_id,omitempty"`
	Date          time.Time                `json:"date"`
	CategoryID    *uuid.UUID               `json:"category_id,omitempty"`
	PayeeID       *uuid.UUID               `json:"payee_id,omitempty"`
	Notes         string                   `json:"notes,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// Validate checks the structural invariants of the entry
func (t *Transaction) Validate() error {
	if t.Amount < 0 {
		return ErrNegativeAmount
	}
	switch t.Type {
	case shared.TransactionTypeDeposit, shared.TransactionTypeWithdrawal:
		if t.AccountID == nil {
			return ErrMissingAccount
		}
	case shared.TransactionTypeTransfer:
		if t.FromAccountID == nil || t.ToAccountID == nil {
			return ErrMissingAccount
		}
		if *t.FromAccountID == *t.ToAccountID {
			return ErrSameTransferAccount
		}
	default:
		return shared.ErrInvalidTransactionType
	}
	return nil
}

// Accounts returns every account the entry touches. Transfers return both
// legs; single-account types return one element.
func (t *Transaction) Accounts() []uuid.UUID {
	if t.Type == shared.TransactionTypeTransfer {
		return []uuid.UUID{*t.FromAccountID, *t.ToAccountID}
	}
	return []uuid.UUID{*t.AccountID}
}

// DeltaFor returns the signed balance effect of this entry on the given
// account once the entry is COMPLETED. Zero for accounts the entry does not
// touch. This single function is the source of truth for apply, revert, and
// ground-truth recompute.
func (t *Transaction) DeltaFor(accountID uuid.UUID) int64 {
	switch t.Type {
	case shared.TransactionTypeDeposit:
		if *t.AccountID == accountID {
			return t.Amount
		}
	case shared.TransactionTypeWithdrawal:
		if *t.AccountID == accountID {
			return -t.Amount
		}
	case shared.TransactionTypeTransfer:
		if *t.FromAccountID == accountID {
			return -t.Amount
		}
		if *t.ToAccountID == accountID {
			return t.Amount
		}
	}
	return 0
}

// Completed reports whether the entry currently affects balances
func (t *Transaction) Completed() bool {
	return t.Status == shared.TransactionStatusCompleted
}

// Clone returns a deep copy. Edits revert the OLD entry's effect before
// applying the new one, so callers need the pre-edit state preserved.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.AccountID = cloneID(t.AccountID)
	c.FromAccountID = cloneID(t.FromAccountID)
	c.ToAccountID = cloneID(t.ToAccountID)
	c.CategoryID = cloneID(t.CategoryID)
	c.PayeeID = cloneID(t.PayeeID)
	return &c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
