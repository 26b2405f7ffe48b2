package ledger

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack/ledger-engine/internal/domain/account"
	"github.com/fintrack/ledger-engine/internal/domain/audit"
	"github.com/fintrack/ledger-engine/internal/domain/outbox"
	"github.com/fintrack/ledger-engine/internal/domain/shared"
	"github.com/fintrack/ledger-engine/internal/domain/transaction"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// memState is shared in-memory storage backing the fake repositories
type memState struct {
	accounts     map[uuid.UUID]*account.Account
	transactions map[uuid.UUID]*transaction.Transaction
	outbox       []*outbox.Message
}

func newMemState() *memState {
	return &memState{
		accounts:     make(map[uuid.UUID]*account.Account),
		transactions: make(map[uuid.UUID]*transaction.Transaction),
	}
}

func cloneAccount(acc *account.Account) *account.Account {
	c := *acc
	if acc.CreditCard != nil {
		terms := *acc.CreditCard
		c.CreditCard = &terms
	}
	return &c
}

func (s *memState) snapshot() *memState {
	snap := newMemState()
	for id, acc := range s.accounts {
		snap.accounts[id] = cloneAccount(acc)
	}
	for id, txn := range s.transactions {
		snap.transactions[id] = txn.Clone()
	}
	snap.outbox = append([]*outbox.Message(nil), s.outbox...)
	return snap
}

func (s *memState) restore(snap *memState) {
	s.accounts = snap.accounts
	s.transactions = snap.transactions
	s.outbox = snap.outbox
}

// fakeStore emulates transactional semantics by snapshotting state before the
// callback and restoring it when the callback fails. Transactions are
// serialized on a mutex, which stands in for the row locks concurrent callers
// would queue on.
type fakeStore struct {
	mu    sync.Mutex
	state *memState
}

func (s *fakeStore) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state.snapshot()
	if err := fn(nil); err != nil {
		s.state.restore(snap)
		return err
	}
	return nil
}

// memAccounts implements account.Repository over memState. failUpdates makes
// the next N Update calls fail with a concurrency conflict.
type memAccounts struct {
	state       *memState
	failUpdates int
}

func (r *memAccounts) Create(_ context.Context, acc *account.Account) error {
	r.state.accounts[acc.ID] = cloneAccount(acc)
	return nil
}

func (r *memAccounts) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	acc, ok := r.state.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return acc, nil
}

func (r *memAccounts) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	var accs []*account.Account
	for _, acc := range r.state.accounts {
		if acc.OwnerID == ownerID {
			accs = append(accs, acc)
		}
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].CreatedAt.Before(accs[j].CreatedAt) })
	return accs, nil
}

func (r *memAccounts) Update(_ context.Context, acc *account.Account) error {
	if r.failUpdates > 0 {
		r.failUpdates--
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}
	if _, ok := r.state.accounts[acc.ID]; !ok {
		return account.ErrAccountNotFound{AccountID: acc.ID}
	}
	r.state.accounts[acc.ID] = acc
	return nil
}

func (r *memAccounts) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *memAccounts) WithTx(_ pgx.Tx) account.Repository { return r }

// memTransactions implements transaction.Repository over memState
type memTransactions struct {
	state *memState
}

func (r *memTransactions) Create(_ context.Context, txn *transaction.Transaction) error {
	r.state.transactions[txn.ID] = txn.Clone()
	return nil
}

func (r *memTransactions) GetByID(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	txn, ok := r.state.transactions[id]
	if !ok {
		return nil, transaction.ErrTransactionNotFound{TransactionID: id}
	}
	return txn.Clone(), nil
}

func (r *memTransactions) Update(_ context.Context, txn *transaction.Transaction) error {
	if _, ok := r.state.transactions[txn.ID]; !ok {
		return transaction.ErrTransactionNotFound{TransactionID: txn.ID}
	}
	r.state.transactions[txn.ID] = txn.Clone()
	return nil
}

func (r *memTransactions) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.state.transactions[id]; !ok {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}
	delete(r.state.transactions, id)
	return nil
}

func (r *memTransactions) touches(txn *transaction.Transaction, accountID uuid.UUID) bool {
	for _, id := range txn.Accounts() {
		if id == accountID {
			return true
		}
	}
	return false
}

func (r *memTransactions) ListByAccount(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	for _, txn := range r.state.transactions {
		if r.touches(txn, accountID) {
			txns = append(txns, txn.Clone())
		}
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].Date.After(txns[j].Date) })
	if offset >= len(txns) {
		return nil, nil
	}
	end := offset + limit
	if end > len(txns) {
		end = len(txns)
	}
	return txns[offset:end], nil
}

func (r *memTransactions) CountByAccount(_ context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	for _, txn := range r.state.transactions {
		if r.touches(txn, accountID) {
			n++
		}
	}
	return n, nil
}

func (r *memTransactions) ListByOwnerSince(_ context.Context, ownerID uuid.UUID, since time.Time) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	for _, txn := range r.state.transactions {
		if txn.OwnerID == ownerID && !txn.Date.Before(since) {
			txns = append(txns, txn.Clone())
		}
	}
	return txns, nil
}

func (r *memTransactions) SumEffectsForAccount(_ context.Context, accountID uuid.UUID) (int64, error) {
	var sum int64
	for _, txn := range r.state.transactions {
		if txn.Completed() {
			sum += txn.DeltaFor(accountID)
		}
	}
	return sum, nil
}

func (r *memTransactions) NetForAccountBetween(_ context.Context, accountID uuid.UUID, start, end time.Time) (int64, error) {
	var sum int64
	for _, txn := range r.state.transactions {
		if txn.Completed() && !txn.Date.Before(start) && txn.Date.Before(end) {
			sum += txn.DeltaFor(accountID)
		}
	}
	return sum, nil
}

func (r *memTransactions) WithTx(_ pgx.Tx) transaction.Repository { return r }

// memOutbox implements outbox.Repository over memState. failCreates makes the
// next N Create calls fail, which is how tests force a late in-tx error.
type memOutbox struct {
	state       *memState
	failCreates int
	nextID      int64
}

func (r *memOutbox) Create(_ context.Context, msg *outbox.Message) error {
	if r.failCreates > 0 {
		r.failCreates--
		return context.DeadlineExceeded
	}
	r.nextID++
	msg.ID = r.nextID
	r.state.outbox = append(r.state.outbox, msg)
	return nil
}

func (r *memOutbox) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	var pending []*outbox.Message
	for _, msg := range r.state.outbox {
		if msg.Status == shared.OutboxStatusPending {
			pending = append(pending, msg)
		}
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (r *memOutbox) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	for _, msg := range r.state.outbox {
		if msg.ID == id {
			msg.Status = status
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r *memOutbox) IncrementAttempts(_ context.Context, id int64) error {
	for _, msg := range r.state.outbox {
		if msg.ID == id {
			msg.Attempts++
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r *memOutbox) Delete(_ context.Context, id int64) error {
	for i, msg := range r.state.outbox {
		if msg.ID == id {
			r.state.outbox = append(r.state.outbox[:i], r.state.outbox[i+1:]...)
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r *memOutbox) WithTx(_ pgx.Tx) outbox.Repository { return r }

// memJournal implements audit.Repository in memory
type memJournal struct {
	records []*audit.Record
}

func (r *memJournal) Append(_ context.Context, record *audit.Record) error {
	r.records = append(r.records, record)
	return nil
}

func (r *memJournal) ListByAccount(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*audit.Record, error) {
	var out []*audit.Record
	for _, record := range r.records {
		if record.AccountID == accountID {
			out = append(out, record)
		}
	}
	return out, nil
}
