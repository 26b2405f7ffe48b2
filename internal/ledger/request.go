package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/domain/shared"
)

// DepositRequest records money entering a single account.
type DepositRequest struct {
	OwnerID    uuid.UUID
	AccountID  uuid.UUID
	Amount     int64
	Date       time.Time
	CategoryID *uuid.UUID
	PayeeID    *uuid.UUID
	Notes      string
}

func (r DepositRequest) Validate() error {
	if r.OwnerID == uuid.Nil {
		return shared.NewValidationError("owner_id", "is required")
	}
	if r.AccountID == uuid.Nil {
		return shared.NewValidationError("account_id", "is required")
	}
	if r.Amount < 0 {
		return shared.NewValidationError("amount", "must not be negative")
	}
	if r.Date.IsZero() {
		return shared.NewValidationError("date", "is required")
	}
	return nil
}

// WithdrawalRequest records money leaving a single account.
type WithdrawalRequest struct {
	OwnerID    uuid.UUID
	AccountID  uuid.UUID
	Amount     int64
	Date       time.Time
	CategoryID *uuid.UUID
	PayeeID    *uuid.UUID
	Notes      string
}

func (r WithdrawalRequest) Validate() error {
	if r.OwnerID == uuid.Nil {
		return shared.NewValidationError("owner_id", "is required")
	}
	if r.AccountID == uuid.Nil {
		return shared.NewValidationError("account_id", "is required")
	}
	if r.Amount < 0 {
		return shared.NewValidationError("amount", "must not be negative")
	}
	if r.Date.IsZero() {
		return shared.NewValidationError("date", "is required")
	}
	return nil
}

// TransferRequest moves money between two accounts of the same owner.
type TransferRequest struct {
	OwnerID       uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        int64
	Date          time.Time
	Notes         string
}

func (r TransferRequest) Validate() error {
	if r.OwnerID == uuid.Nil {
		return shared.NewValidationError("owner_id", "is required")
	}
	if r.FromAccountID == uuid.Nil {
		return shared.NewValidationError("from_account_id", "is required")
	}
	if r.ToAccountID == uuid.Nil {
		return shared.NewValidationError("to_account_id", "is required")
	}
	if r.FromAccountID == r.ToAccountID {
		return shared.NewValidationError("to_account_id", "must differ from from_account_id")
	}
	if r.Amount < 0 {
		return shared.NewValidationError("amount", "must not be negative")
	}
	if r.Date.IsZero() {
		return shared.NewValidationError("date", "is required")
	}
	return nil
}

// EditRequest carries partial updates for an existing transaction. Nil fields
// are left untouched. Account retargeting is allowed; the engine reverts the
// old effect before applying the edited one.
type EditRequest struct {
	Amount        *int64
	Date          *time.Time
	AccountID     *uuid.UUID
	FromAccountID *uuid.UUID
	ToAccountID   *uuid.UUID
	CategoryID    *uuid.UUID
	PayeeID       *uuid.UUID
	Notes         *string
}

func (r EditRequest) Validate() error {
	if r.Amount != nil && *r.Amount < 0 {
		return shared.NewValidationError("amount", "must not be negative")
	}
	if r.Date != nil && r.Date.IsZero() {
		return shared.NewValidationError("date", "must not be zero")
	}
	return nil
}
