package transaction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/fintrack/ledger-engine/internal/domain/shared"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestTransaction_Validate(t *testing.T) {
	accID := uuid.New()
	otherID := uuid.New()

	tests := []struct {
		name    string
		txn     Transaction
		wantErr error
	}{
		{
			name: "valid deposit",
			txn:  Transaction{Type: shared.TransactionTypeDeposit, Amount: 100, AccountID: ptr(accID)},
		},
		{
			name: "valid withdrawal",
			txn:  Transaction{Type: shared.TransactionTypeWithdrawal, Amount: 100, AccountID: ptr(accID)},
		},
		{
			name: "valid transfer",
			txn:  Transaction{Type: shared.TransactionTypeTransfer, Amount: 100, FromAccountID: ptr(accID), ToAccountID: ptr(otherID)},
		},
		{
			name: "zero amount is allowed",
			txn:  Transaction{Type: shared.TransactionTypeDeposit, Amount: 0, AccountID: ptr(accID)},
		},
		{
			name:    "negative amount",
			txn:     Transaction{Type: shared.TransactionTypeDeposit, Amount: -1, AccountID: ptr(accID)},
			wantErr: ErrNegativeAmount,
		},
		{
			name:    "deposit without account",
			txn:     Transaction{Type: shared.TransactionTypeDeposit, Amount: 100},
			wantErr: ErrMissingAccount,
		},
		{
			name:    "transfer missing leg",
			txn:     Transaction{Type: shared.TransactionTypeTransfer, Amount: 100, FromAccountID: ptr(accID)},
			wantErr: ErrMissingAccount,
		},
		{
			name:    "transfer to itself",
			txn:     Transaction{Type: shared.TransactionTypeTransfer, Amount: 100, FromAccountID: ptr(accID), ToAccountID: ptr(accID)},
			wantErr: ErrSameTransferAccount,
		},
		{
			name:    "unknown type",
			txn:     Transaction{Type: shared.TransactionType("REFUND"), Amount: 100, AccountID: ptr(accID)},
			wantErr: shared.ErrInvalidTransactionType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.txn.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransaction_DeltaFor(t *testing.T) {
	accID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()
	strangerID := uuid.New()

	deposit := Transaction{Type: shared.TransactionTypeDeposit, Amount: 500, AccountID: ptr(accID)}
	assert.Equal(t, int64(500), deposit.DeltaFor(accID))
	assert.Equal(t, int64(0), deposit.DeltaFor(strangerID))

	withdrawal := Transaction{Type: shared.TransactionTypeWithdrawal, Amount: 300, AccountID: ptr(accID)}
	assert.Equal(t, int64(-300), withdrawal.DeltaFor(accID))

	transfer := Transaction{Type: shared.TransactionTypeTransfer, Amount: 200, FromAccountID: ptr(fromID), ToAccountID: ptr(toID)}
	assert.Equal(t, int64(-200), transfer.DeltaFor(fromID))
	assert.Equal(t, int64(200), transfer.DeltaFor(toID))
	assert.Equal(t, int64(0), transfer.DeltaFor(strangerID))
}

func TestTransaction_Accounts(t *testing.T) {
	accID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()

	deposit := Transaction{Type: shared.TransactionTypeDeposit, AccountID: ptr(accID)}
	assert.Equal(t, []uuid.UUID{accID}, deposit.Accounts())

	transfer := Transaction{Type: shared.TransactionTypeTransfer, FromAccountID: ptr(fromID), ToAccountID: ptr(toID)}
	assert.Equal(t, []uuid.UUID{fromID, toID}, transfer.Accounts())
}

func TestTransaction_Clone(t *testing.T) {
	original := Transaction{
		ID:        uuid.New(),
		Type:      shared.TransactionTypeDeposit,
		Status:    shared.TransactionStatusCompleted,
		Amount:    500,
		AccountID: ptr(uuid.New()),
		Date:      time.Now(),
	}

	clone := original.Clone()
	assert.Equal(t, original.Amount, clone.Amount)
	assert.Equal(t, *original.AccountID, *clone.AccountID)

	// Mutating the clone must not leak into the original.
	clone.Amount = 900
	*clone.AccountID = uuid.New()
	assert.Equal(t, int64(500), original.Amount)
	assert.NotEqual(t, *original.AccountID, *clone.AccountID)
}
