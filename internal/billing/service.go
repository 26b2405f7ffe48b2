package billing

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
	"github.com/fintrack/ledger-engine/internal/domain/billing"
	"github.com/fintrack/ledger-engine/internal/domain/outbox"
	"github.com/fintrack/ledger-engine/internal/domain/shared"
	"github.com/fintrack/ledger-engine/internal/domain/transaction"
	"github.com/fintrack/ledger-engine/internal/ledger"
)

// ErrNotCreditCard is returned when a billing operation targets an account
// without credit card terms.
type ErrNotCreditCard struct {
	AccountID uuid.UUID
}

func (e ErrNotCreditCard) Error() string {
	return "account is not a credit card: " + e.AccountID.String()
}

// PaymentRequest records a payment against a bill. When FromAccountID is set
// the payment is a transfer from that account onto the card; otherwise it is
// recorded as an external deposit onto the card.
type PaymentRequest struct {
	BillID        uuid.UUID
	FromAccountID *uuid.UUID
	Amount        int64
	Date          time.Time
	Notes         string
}

func (r PaymentRequest) Validate() error {
	if r.BillID == uuid.Nil {
		return shared.NewValidationError("bill_id", "is required")
	}
	if r.Amount < 0 {
		return shared.NewValidationError("amount", "must not be negative")
	}
	if r.Date.IsZero() {
		return shared.NewValidationError("date", "is required")
	}
	return nil
}

// Service owns the credit card billing cycle: statement generation, payment
// recording and settlement status upkeep. Payments flow through the ledger,
// so the card balance and the bill always move together.
type Service struct {
	logger       *slog.Logger
	store        ledger.Store
	accounts     account.Repository
	transactions transaction.Repository
	bills        billing.Repository
	outbox       outbox.Repository
	journal      audit.Repository
	now          func() time.Time
}

// NewService creates the billing service
func NewService(
	logger *slog.Logger,
	store ledger.Store,
	accounts account.Repository,
	transactions transaction.Repository,
	bills billing.Repository,
	outboxRepo outbox.Repository,
	journal audit.Repository,
) *Service {
	return &Service{
		logger:       logger,
		store:        store,
		accounts:     accounts,
		transactions: transactions,
		bills:        bills,
		outbox:       outboxRepo,
		journal:      journal,
		now:          time.Now,
	}
}

// billEvent is the payload published for bill lifecycle events
type billEvent struct {
	BillID           string    `json:"bill_id"`
	AccountID        string    `json:"account_id"`
	CycleStart       time.Time `json:"cycle_start"`
	CycleEnd         time.Time `json:"cycle_end"`
	DueDate          time.Time `json:"due_date"`
	StatementBalance int64     `json:"statement_balance"`
	PaidAmount       int64     `json:"paid_amount"`
	Status           string    `json:"status"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func newBillEvent(bill *billing.Bill) billEvent {
	return billEvent{
		BillID:           bill.ID.String(),
		AccountID:        bill.AccountID.String(),
		CycleStart:       bill.CycleStart,
		CycleEnd:         bill.CycleEnd,
		DueDate:          bill.DueDate,
		StatementBalance: bill.StatementBalance,
		PaidAmount:       bill.PaidAmount,
		Status:           string(bill.Status),
		OccurredAt:       time.Now(),
	}
}

// GenerateBill produces the statement for the most recent complete cycle of a
// credit card account. Generation is idempotent: calling it again for the same
// cycle returns the existing bill. The statement is computed in the account's
// own currency only.
func (s *Service) GenerateBill(ctx context.Context, accountID uuid.UUID) (*billing.Bill, bool, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, false, err
	}
	if !acc.IsCreditCard() {
		return nil, false, ErrNotCreditCard{AccountID: accountID}
	}

	cycle := billing.CycleEndingBefore(acc.CreditCard.BillGenerationDay, s.now())

	var (
		bill    *billing.Bill
		created bool
	)
	err = s.store.ExecuteTx(ctx, func(tx pgx.Tx) error {
		billRepo := s.bills.WithTx(tx)
		txnRepo := s.transactions.WithTx(tx)
		obRepo := s.outbox.WithTx(tx)

		existing, err := billRepo.GetByAccountAndCycle(ctx, accountID, cycle.Start)
		if err != nil {
			return err
		}
		if existing != nil {
			bill = existing
			return nil
		}

		net, err := txnRepo.NetForAccountBetween(ctx, accountID, cycle.Start, cycle.End)
		if err != nil {
			return err
		}

		dueDate := billing.DueDateAfter(acc.CreditCard.PaymentDueDay, cycle.End)
		bill = billing.NewBill(accountID, cycle.Start, cycle.End, dueDate, net)
		if err := billRepo.Create(ctx, bill); err != nil {
			return err
		}
		created = true

		msg, err := outbox.NewMessage(shared.EventBillGenerated, accountID, newBillEvent(bill))
		if err != nil {
			return err
		}
		return obRepo.Create(ctx, msg)
	})
	var duplicate billing.ErrDuplicateBill
	if errors.As(err, &duplicate) {
		// Lost a race with a concurrent generation for the same cycle. The
		// transaction rolled back; the winner's bill is the result.
		existing, fetchErr := s.bills.GetByAccountAndCycle(ctx, accountID, cycle.Start)
		if fetchErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("Bill generated",
			"bill_id", bill.ID.String(),
			"account_id", accountID.String(),
			"statement_balance", bill.StatementBalance,
			"due_date", bill.DueDate.Format("2006-01-02"),
		)
	}
	return bill, created, nil
}

// GenerateBillsForOwner sweeps the owner's credit card accounts and generates
// any statement not produced yet. Closed cards are skipped.
func (s *Service) GenerateBillsForOwner(ctx context.Context, ownerID uuid.UUID) ([]*billing.Bill, error) {
	accounts, err := s.accounts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var generated []*billing.Bill
	for _, acc := range accounts {
		if !acc.IsCreditCard() || acc.Status == shared.AccountStatusClosed {
			continue
		}
		bill, created, err := s.GenerateBill(ctx, acc.ID)
		if err != nil {
			return nil, err
		}
		if created {
			generated = append(generated, bill)
		}
	}
	return generated, nil
}

// RecordPayment applies a payment to a bill. The ledger transaction crediting
// the card, the account balance updates and the bill settlement advance commit
// in one database transaction; a failure anywhere leaves all of them untouched.
func (s *Service) RecordPayment(ctx context.Context, req PaymentRequest) (*billing.Bill, *transaction.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		bill    *billing.Bill
		payment *transaction.Transaction
		entries []journalEntry
	)
	err := s.store.ExecuteTx(ctx, func(tx pgx.Tx) error {
		billRepo := s.bills.WithTx(tx)
		accRepo := s.accounts.WithTx(tx)
		txnRepo := s.transactions.WithTx(tx)
		obRepo := s.outbox.WithTx(tx)

		var err error
		bill, err = billRepo.LockForUpdate(ctx, req.BillID)
		if err != nil {
			return err
		}

		card, err := accRepo.GetByID(ctx, bill.AccountID)
		if err != nil {
			return err
		}

		payment = buildPaymentTransaction(card.OwnerID, bill.AccountID, req)
		if err := payment.Validate(); err != nil {
			return err
		}

		accs, err := lockAccountsOrdered(ctx, accRepo, payment.Accounts())
		if err != nil {
			return err
		}
		for _, acc := range accs {
			if acc.OwnerID != card.OwnerID {
				return account.ErrAccountNotFound{AccountID: acc.ID}
			}
			if acc.Status == shared.AccountStatusClosed {
				return fmt.Errorf("account %s: %w", acc.ID, account.ErrAccountClosed)
			}
		}

		if err := txnRepo.Create(ctx, payment); err != nil {
			return err
		}

		for _, accID := range payment.Accounts() {
			acc := accs[accID]
			before := acc.CurrentBalance
			delta := payment.DeltaFor(accID)
			acc.ApplyDelta(delta)
			if err := accRepo.Update(ctx, acc); err != nil {
				return err
			}
			entries = append(entries, journalEntry{
				accountID:     accID,
				transactionID: payment.ID,
				delta:         delta,
				balanceBefore: before,
				balanceAfter:  acc.CurrentBalance,
			})
		}

		if err := bill.RecordPayment(req.Amount); err != nil {
			return err
		}
		if err := billRepo.Update(ctx, bill); err != nil {
			return err
		}

		msg, err := outbox.NewMessage(shared.EventBillPayment, bill.AccountID, newBillEvent(bill))
		if err != nil {
			return err
		}
		return obRepo.Create(ctx, msg)
	})
	if err != nil {
		return nil, nil, err
	}

	for _, entry := range entries {
		txnID := entry.transactionID
		record := audit.NewRecord(entry.accountID, &txnID, audit.ChangeApplied,
			entry.delta, entry.balanceBefore, entry.balanceAfter)
		if appendErr := s.journal.Append(ctx, record); appendErr != nil {
			s.logger.Warn("Failed to append audit record",
				"account_id", entry.accountID.String(),
				"error", appendErr,
			)
		}
	}

	s.logger.Info("Bill payment recorded",
		"bill_id", bill.ID.String(),
		"amount", req.Amount,
		"status", string(bill.Status),
	)
	return bill, payment, nil
}

// GetBill fetches one bill, refreshing its overdue status against the clock.
func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	bill, err := s.bills.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.refreshOverdue(ctx, bill)
	return bill, nil
}

// ListBills returns the account's bills newest first, refreshing overdue
// statuses against the clock.
func (s *Service) ListBills(ctx context.Context, accountID uuid.UUID) ([]*billing.Bill, error) {
	bills, err := s.bills.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, bill := range bills {
		s.refreshOverdue(ctx, bill)
	}
	return bills, nil
}

// refreshOverdue persists a lazy OVERDUE transition. Persisting is best
// effort: the caller still sees the refreshed status.
func (s *Service) refreshOverdue(ctx context.Context, bill *billing.Bill) {
	if !bill.RefreshOverdue(s.now()) {
		return
	}
	if err := s.bills.Update(ctx, bill); err != nil {
		s.logger.Warn("Failed to persist overdue transition",
			"bill_id", bill.ID.String(),
			"error", err,
		)
	}
}

type journalEntry struct {
	accountID     uuid.UUID
	transactionID uuid.UUID
	delta         int64
	balanceBefore int64
	balanceAfter  int64
}

// buildPaymentTransaction materializes the ledger entry for a bill payment:
// a transfer when funded from a tracked account, otherwise a deposit.
func buildPaymentTransaction(ownerID, cardAccountID uuid.UUID, req PaymentRequest) *transaction.Transaction {
	txn := &transaction.Transaction{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Status:    shared.TransactionStatusCompleted,
		Amount:    req.Amount,
		Date:      req.Date,
		Notes:     req.Notes,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if req.FromAccountID != nil {
		txn.Type = shared.TransactionTypeTransfer
		txn.FromAccountID = req.FromAccountID
		to := cardAccountID
		txn.ToAccountID = &to
	} else {
		txn.Type = shared.TransactionTypeDeposit
		to := cardAccountID
		txn.AccountID = &to
	}
	return txn
}

// lockAccountsOrdered locks accounts in ascending ID order, the same order the
// balance engine uses.
func lockAccountsOrdered(ctx context.Context, repo account.Repository, ids []uuid.UUID) (map[uuid.UUID]*account.Account, error) {
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
		accs[id] = acc
	}
	return accs, nil
}
