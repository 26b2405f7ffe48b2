package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack/ledger-engine/internal/domain/shared"
	"github.com/fintrack/ledger-engine/internal/domain/transaction"
	"github.com/fintrack/ledger-engine/internal/platform/persistence"
)

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const transactionColumns = `id, owner_id, type, status, amount, account_id, from_account_id, to_account_id,
			date, category_id, payee_id, notes, created_at, updated_at`

// Create stores a new ledger entry
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, owner_id, type, status, amount, account_id, from_account_id, to_account_id,
			date, category_id, payee_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.OwnerID,
		txn.Type,
		txn.Status,
		txn.Amount,
		txn.AccountID,
		txn.FromAccountID,
		txn.ToAccountID,
		txn.Date,
		txn.CategoryID,
		txn.PayeeID,
		txn.Notes,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a ledger entry by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// Update rewrites a ledger entry in place
func (r *TransactionRepository) Update(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET type = $1, status = $2, amount = $3, account_id = $4, from_account_id = $5, to_account_id = $6,
			date = $7, category_id = $8, payee_id = $9, notes = $10, updated_at = $11
		WHERE id = $12
	`

	result, err := r.querier.Exec(ctx, query,
		txn.Type,
		txn.Status,
		txn.Amount,
		txn.AccountID,
		txn.FromAccountID,
		txn.ToAccountID,
		txn.Date,
		txn.CategoryID,
		txn.PayeeID,
		txn.Notes,
		txn.UpdatedAt,
		txn.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: txn.ID}
	}

	return nil
}

// Delete removes a ledger entry. The caller must have reverted its balance
// effect inside the same database transaction.
func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM transactions
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete transaction", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}

	return nil
}

// ListByAccount retrieves paginated ledger entries touching the account,
// newest first
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1 OR from_account_id = $1 OR to_account_id = $1
		ORDER BY date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// CountByAccount counts the ledger entries touching the account
func (r *TransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE account_id = $1 OR from_account_id = $1 OR to_account_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// ListByOwnerSince retrieves the owner's ledger entries dated on or after since
func (r *TransactionRepository) ListByOwnerSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE owner_id = $1 AND date >= $2
		ORDER BY date DESC
	`

	rows, err := r.querier.Query(ctx, query, ownerID, since)
	if err != nil {
		r.logger.Error("Failed to list transactions by owner", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions by owner: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// SumEffectsForAccount computes the net balance effect of every COMPLETED
// entry touching the account. Pending and reversed entries are ignored.
func (r *TransactionRepository) SumEffectsForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(
			CASE
				WHEN type = $2 AND account_id = $1 THEN amount
				WHEN type = $3 AND account_id = $1 THEN -amount
				WHEN type = $4 AND from_account_id = $1 THEN -amount
				WHEN type = $4 AND to_account_id = $1 THEN amount
				ELSE 0
			END), 0)
		FROM transactions
		WHERE status = $5
			AND (account_id = $1 OR from_account_id = $1 OR to_account_id = $1)
	`

	var sum int64
	err := r.querier.QueryRow(ctx, query,
		accountID,
		shared.TransactionTypeDeposit,
		shared.TransactionTypeWithdrawal,
		shared.TransactionTypeTransfer,
		shared.TransactionStatusCompleted,
	).Scan(&sum)
	if err != nil {
		r.logger.Error("Failed to sum transaction effects", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum transaction effects: %w", err)
	}

	return sum, nil
}

// NetForAccountBetween computes the net effect of COMPLETED entries dated
// within [start, end)
func (r *TransactionRepository) NetForAccountBetween(ctx context.Context, accountID uuid.UUID, start, end time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(
			CASE
				WHEN type = $2 AND account_id = $1 THEN amount
				WHEN type = $3 AND account_id = $1 THEN -amount
				WHEN type = $4 AND from_account_id = $1 THEN -amount
				WHEN type = $4 AND to_account_id = $1 THEN amount
				ELSE 0
			END), 0)
		FROM transactions
		WHERE status = $5
			AND (account_id = $1 OR from_account_id = $1 OR to_account_id = $1)
			AND date >= $6 AND date < $7
	`

	var sum int64
	err := r.querier.QueryRow(ctx, query,
		accountID,
		shared.TransactionTypeDeposit,
		shared.TransactionTypeWithdrawal,
		shared.TransactionTypeTransfer,
		shared.TransactionStatusCompleted,
		start,
		end,
	).Scan(&sum)
	if err != nil {
		r.logger.Error("Failed to compute net for account", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to compute net for account: %w", err)
	}

	return sum, nil
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.OwnerID,
		&txn.Type,
		&txn.Status,
		&txn.Amount,
		&txn.AccountID,
		&txn.FromAccountID,
		&txn.ToAccountID,
		&txn.Date,
		&txn.CategoryID,
		&txn.PayeeID,
		&txn.Notes,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func collectTransactions(rows pgx.Rows) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return txns, nil
}
