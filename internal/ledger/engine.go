package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack/ledger-engine/internal/domain/account"
	"github.com/fintrack/ledger-engine/internal/domain/audit"
	"github.com/fintrack/ledger-engine/internal/domain/outbox"
	"github.com/fintrack/ledger-engine/internal/domain/shared"
	"github.com/fintrack/ledger-engine/internal/domain/transaction"
)

// Store runs a function inside a database transaction, rolling back when the
// function returns an error.
type Store interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Engine owns every balance mutation. All writes to accounts and transactions
// go through it so that an account's current balance always equals its initial
// amount plus the sum of completed transaction effects.
type Engine struct {
	logger       *slog.Logger
	store        Store
	accounts     account.Repository
	transactions transaction.Repository
	outbox       outbox.Repository
	journal      audit.Repository
	maxRetries   int
	poolSize     int
}

// NewEngine creates the balance engine
func NewEngine(
	logger *slog.Logger,
	store Store,
	accounts account.Repository,
	transactions transaction.Repository,
	outboxRepo outbox.Repository,
	journal audit.Repository,
	maxRetries int,
	poolSize int,
) *Engine {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if poolSize <= 0 {
		poolSize = 10
	}
	return &Engine{
		logger:       logger,
		store:        store,
		accounts:     accounts,
		transactions: transactions,
		outbox:       outboxRepo,
		journal:      journal,
		maxRetries:   maxRetries,
		poolSize:     poolSize,
	}
}

// transactionEvent is the payload published for transaction lifecycle events
type transactionEvent struct {
	TransactionID string    `json:"transaction_id"`
	OwnerID       string    `json:"owner_id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	Accounts      []string  `json:"accounts"`
	Date          time.Time `json:"date"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func newTransactionEvent(txn *transaction.Transaction) transactionEvent {
	accountIDs := make([]string, 0, 2)
	for _, id := range txn.Accounts() {
		accountIDs = append(accountIDs, id.String())
	}
	return transactionEvent{
		TransactionID: txn.ID.String(),
		OwnerID:       txn.OwnerID.String(),
		Type:          string(txn.Type),
		Amount:        txn.Amount,
		Accounts:      accountIDs,
		Date:          txn.Date,
		OccurredAt:    time.Now(),
	}
}

// auditEntry is captured inside the transaction and journaled after commit
type auditEntry struct {
	accountID     uuid.UUID
	transactionID *uuid.UUID
	change        audit.Change
	delta         int64
	balanceBefore int64
	balanceAfter  int64
	drift         int64
}

// CreateDeposit records a deposit and credits the target account atomically.
func (e *Engine) CreateDeposit(ctx context.Context, req DepositRequest) (*transaction.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	txn := &transaction.Transaction{
		ID:         uuid.New(),
		OwnerID:    req.OwnerID,
		Type:       shared.TransactionTypeDeposit,
		Status:     shared.TransactionStatusCompleted,
		Amount:     req.Amount,
		AccountID:  &req.AccountID,
		Date:       req.Date,
		CategoryID: req.CategoryID,
		PayeeID:    req.PayeeID,
		Notes:      req.Notes,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	return e.create(ctx, txn)
}

// CreateWithdrawal records a withdrawal and debits the target account atomically.
func (e *Engine) CreateWithdrawal(ctx context.Context, req WithdrawalRequest) (*transaction.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	txn := &transaction.Transaction{
		ID:         uuid.New(),
		OwnerID:    req.OwnerID,
		Type:       shared.TransactionTypeWithdrawal,
		Status:     shared.TransactionStatusCompleted,
		Amount:     req.Amount,
		AccountID:  &req.AccountID,
		Date:       req.Date,
		CategoryID: req.CategoryID,
		PayeeID:    req.PayeeID,
		Notes:      req.Notes,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	return e.create(ctx, txn)
}

// CreateTransfer records a transfer. Both account balances move in the same
// database transaction; a failure on either leg leaves both untouched.
func (e *Engine) CreateTransfer(ctx context.Context, req TransferRequest) (*transaction.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	txn := &transaction.Transaction{
		ID:            uuid.New(),
		OwnerID:       req.OwnerID,
		Type:          shared.TransactionTypeTransfer,
		Status:        shared.TransactionStatusCompleted,
		Amount:        req.Amount,
		FromAccountID: &req.FromAccountID,
		ToAccountID:   &req.ToAccountID,
		Date:          req.Date,
		Notes:         req.Notes,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	return e.create(ctx, txn)
}

func (e *Engine) create(ctx context.Context, txn *transaction.Transaction) (*transaction.Transaction, error) {
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	var entries []auditEntry
	err := e.withRetry(ctx, func() error {
		entries = entries[:0]
		return e.store.ExecuteTx(ctx, func(tx pgx.Tx) error {
			accRepo := e.accounts.WithTx(tx)
			txnRepo := e.transactions.WithTx(tx)
			obRepo := e.outbox.WithTx(tx)

			accs, err := e.lockOwnedAccounts(ctx, accRepo, txn.OwnerID, txn.Accounts())
			if err != nil {
				return err
			}

			if err := txnRepo.Create(ctx, txn); err != nil {
				return err
			}

			for _, id := range txn.Accounts() {
				acc := accs[id]
				before := acc.CurrentBalance
				delta := txn.DeltaFor(id)
				acc.ApplyDelta(delta)
				if err := accRepo.Update(ctx, acc); err != nil {
					return err
				}
				entries = append(entries, auditEntry{
					accountID:     id,
					transactionID: &txn.ID,
					change:        audit.ChangeApplied,
					delta:         delta,
					balanceBefore: before,
					balanceAfter:  acc.CurrentBalance,
				})
			}

			msg, err := outbox.NewMessage(shared.EventTransactionCompleted, txn.ID, newTransactionEvent(txn))
			if err != nil {
				return err
			}
			return obRepo.Create(ctx, msg)
		})
	})
	if err != nil {
		return nil, err
	}

	e.journalEntries(ctx, entries)
	e.logger.Info("Transaction applied",
		"transaction_id", txn.ID.String(),
		"type", string(txn.Type),
		"amount", txn.Amount,
	)
	return txn, nil
}

// GetTransaction retrieves a transaction by ID
func (e *Engine) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return e.transactions.GetByID(ctx, id)
}

// ListTransactions returns paginated transactions touching an account together
// with the total count.
func (e *Engine) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, int64, error) {
	txns, err := e.transactions.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := e.transactions.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// EditTransaction applies a partial update on behalf of ownerID. The previous
// effect is reverted on the previous accounts and the edited effect applied on
// the edited accounts, all in one database transaction. Editing a transfer
// always reworks both legs.
func (e *Engine) EditTransaction(ctx context.Context, ownerID, id uuid.UUID, req EditRequest) (*transaction.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		entries []auditEntry
		edited  *transaction.Transaction
	)
	err := e.withRetry(ctx, func() error {
		entries = entries[:0]
		return e.store.ExecuteTx(ctx, func(tx pgx.Tx) error {
			accRepo := e.accounts.WithTx(tx)
			txnRepo := e.transactions.WithTx(tx)
			obRepo := e.outbox.WithTx(tx)

			current, err := txnRepo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			// Not found rather than forbidden: transaction IDs of other
			// owners are not disclosed.
			if current.OwnerID != ownerID {
				return transaction.ErrTransactionNotFound{TransactionID: id}
			}
			previous := current.Clone()

			applyEdit(current, req)
			current.UpdatedAt = time.Now()
			if err := current.Validate(); err != nil {
				return err
			}
			edited = current

			// Lock the union of previous and edited accounts in one
			// ordered pass so retargeted edits cannot deadlock.
			accs, err := e.lockOwnedAccounts(ctx, accRepo, current.OwnerID, unionAccounts(previous, current))
			if err != nil {
				return err
			}

			if previous.Completed() {
				for _, accID := range previous.Accounts() {
					acc := accs[accID]
					before := acc.CurrentBalance
					delta := -previous.DeltaFor(accID)
					acc.ApplyDelta(delta)
					entries = append(entries, auditEntry{
						accountID:     accID,
						transactionID: &previous.ID,
						change:        audit.ChangeReverted,
						delta:         delta,
						balanceBefore: before,
						balanceAfter:  acc.CurrentBalance,
					})
				}
			}
			if current.Completed() {
				for _, accID := range current.Accounts() {
					acc := accs[accID]
					before := acc.CurrentBalance
					delta := current.DeltaFor(accID)
					acc.ApplyDelta(delta)
					entries = append(entries, auditEntry{
						accountID:     accID,
						transactionID: &current.ID,
						change:        audit.ChangeApplied,
						delta:         delta,
						balanceBefore: before,
						balanceAfter:  acc.CurrentBalance,
					})
				}
			}

			for _, acc := range accs {
				if err := accRepo.Update(ctx, acc); err != nil {
					return err
				}
			}

			if err := txnRepo.Update(ctx, current); err != nil {
				return err
			}

			msg, err := outbox.NewMessage(shared.EventTransactionUpdated, current.ID, newTransactionEvent(current))
			if err != nil {
				return err
			}
			return obRepo.Create(ctx, msg)
		})
	})
	if err != nil {
		return nil, err
	}

	e.journalEntries(ctx, entries)
	e.logger.Info("Transaction edited", "transaction_id", id.String())
	return edited, nil
}

// DeleteTransaction removes a transaction of ownerID and reverts its balance
// effect.
func (e *Engine) DeleteTransaction(ctx context.Context, ownerID, id uuid.UUID) error {
	var entries []auditEntry
	err := e.withRetry(ctx, func() error {
		entries = entries[:0]
		return e.store.ExecuteTx(ctx, func(tx pgx.Tx) error {
			accRepo := e.accounts.WithTx(tx)
			txnRepo := e.transactions.WithTx(tx)
			obRepo := e.outbox.WithTx(tx)

			txn, err := txnRepo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if txn.OwnerID != ownerID {
				return transaction.ErrTransactionNotFound{TransactionID: id}
			}

			accs, err := e.lockOwnedAccounts(ctx, accRepo, txn.OwnerID, txn.Accounts())
			if err != nil {
				return err
			}

			if txn.Completed() {
				for _, accID := range txn.Accounts() {
					acc := accs[accID]
					before := acc.CurrentBalance
					delta := -txn.DeltaFor(accID)
					acc.ApplyDelta(delta)
					if err := accRepo.Update(ctx, acc); err != nil {
						return err
					}
					entries = append(entries, auditEntry{
						accountID:     accID,
						transactionID: &txn.ID,
						change:        audit.ChangeReverted,
						delta:         delta,
						balanceBefore: before,
						balanceAfter:  acc.CurrentBalance,
					})
				}
			}

			if err := txnRepo.Delete(ctx, id); err != nil {
				return err
			}

			msg, err := outbox.NewMessage(shared.EventTransactionDeleted, txn.ID, newTransactionEvent(txn))
			if err != nil {
				return err
			}
			return obRepo.Create(ctx, msg)
		})
	})
	if err != nil {
		return err
	}

	e.journalEntries(ctx, entries)
	e.logger.Info("Transaction deleted", "transaction_id", id.String())
	return nil
}

// applyEdit copies the non-nil request fields onto the transaction. Account
// fields only apply where the transaction type carries them.
func applyEdit(txn *transaction.Transaction, req EditRequest) {
	if req.Amount != nil {
		txn.Amount = *req.Amount
	}
	if req.Date != nil {
		txn.Date = *req.Date
	}
	if req.Notes != nil {
		txn.Notes = *req.Notes
	}
	if req.CategoryID != nil {
		txn.CategoryID = req.CategoryID
	}
	if req.PayeeID != nil {
		txn.PayeeID = req.PayeeID
	}
	if txn.Type == shared.TransactionTypeTransfer {
		if req.FromAccountID != nil {
			txn.FromAccountID = req.FromAccountID
		}
		if req.ToAccountID != nil {
			txn.ToAccountID = req.ToAccountID
		}
	} else if req.AccountID != nil {
		txn.AccountID = req.AccountID
	}
}

func unionAccounts(a, b *transaction.Transaction) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, 4)
	var ids []uuid.UUID
	for _, id := range append(a.Accounts(), b.Accounts()...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// lockOwnedAccounts locks the given accounts in ascending UUID order and
// verifies ownership and status. Every caller uses the same order, which keeps
// concurrent multi-account mutations deadlock free.
func (e *Engine) lockOwnedAccounts(ctx context.Context, repo account.Repository, ownerID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	accs := make(map[uuid.UUID]*account.Account, len(sorted))
	for _, id := range sorted {
		acc, err := repo.LockForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		// Not found rather than forbidden: account IDs of other owners
		// are not disclosed.
		if acc.OwnerID != ownerID {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		if acc.Status == shared.AccountStatusClosed {
			return nil, fmt.Errorf("account %s: %w", id, account.ErrAccountClosed)
		}
		accs[id] = acc
	}
	return accs, nil
}

// withRetry reruns op while it fails with a concurrent modification conflict
func (e *Engine) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		var conflict account.ErrConcurrentModification
		if !errors.As(err, &conflict) {
			return err
		}
		e.logger.Warn("Retrying after concurrent modification",
			"account_id", conflict.AccountID.String(),
			"attempt", attempt+1,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	return err
}

// journalEntries appends audit records after commit. The journal is
// observability state, so failures are logged and swallowed.
func (e *Engine) journalEntries(ctx context.Context, entries []auditEntry) {
	for _, entry := range entries {
		record := audit.NewRecord(
			entry.accountID,
			entry.transactionID,
			entry.change,
			entry.delta,
			entry.balanceBefore,
			entry.balanceAfter,
		)
		record.Drift = entry.drift
		if err := e.journal.Append(ctx, record); err != nil {
			e.logger.Warn("Failed to append audit record",
				"account_id", entry.accountID.String(),
				"error", err,
			)
		}
	}
}
