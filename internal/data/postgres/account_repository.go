// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the ledger engine.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fintrack/ledger-engine/internal/domain/account"
	"github.com/fintrack/ledger-engine/internal/platform/persistence"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const accountColumns = `id, owner_id, name, type, currency, initial_balance, current_balance, status,
			credit_limit, bill_generation_day, payment_due_day, credit_usage_pct, version, created_at, updated_at`

// Create stores a new account in the database
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, owner_id, name, type, currency, initial_balance, current_balance, status,
			credit_limit, bill_generation_day, payment_due_day, credit_usage_pct, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	limit, genDay, dueDay := creditCardColumns(acc)
	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.OwnerID,
		acc.Name,
		acc.Type,
		acc.Currency,
		acc.InitialBalance,
		acc.CurrentBalance,
		acc.Status,
		limit,
		genDay,
		dueDay,
		acc.CreditUsagePct,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// ListByOwner retrieves every account belonging to the owner, oldest first
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE owner_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan account row", "error", err)
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}

	return accounts, nil
}

// Update persists the account using optimistic locking on the version column.
// Returns ErrConcurrentModification if the account changed between read and write.
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET name = $1, currency = $2, current_balance = $3, status = $4,
			credit_limit = $5, bill_generation_day = $6, payment_due_day = $7,
			credit_usage_pct = $8, version = $9, updated_at = $10
		WHERE id = $11 AND version = $12
	`

	limit, genDay, dueDay := creditCardColumns(acc)
	result, err := r.querier.Exec(ctx, query,
		acc.Name,
		acc.Currency,
		acc.CurrentBalance,
		acc.Status,
		limit,
		genDay,
		dueDay,
		acc.CreditUsagePct,
		acc.Version,
		acc.UpdatedAt,
		acc.ID,
		acc.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	return nil
}

// LockForUpdate obtains a row lock on the account and returns its current
// state. This must run inside a transaction; callers locking several accounts
// do so in ascending ID order to avoid deadlock.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

// creditCardColumns flattens the optional credit card terms into nullable columns
func creditCardColumns(acc *account.Account) (limit, genDay, dueDay *int64) {
	if acc.CreditCard == nil {
		return nil, nil, nil
	}
	l := acc.CreditCard.CreditLimit
	g := int64(acc.CreditCard.BillGenerationDay)
	d := int64(acc.CreditCard.PaymentDueDay)
	return &l, &g, &d
}

// scanAccount reads one account row, reassembling the credit card terms when present
func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	var limit, genDay, dueDay *int64
	err := row.Scan(
		&acc.ID,
		&acc.OwnerID,
		&acc.Name,
		&acc.Type,
		&acc.Currency,
		&acc.InitialBalance,
		&acc.CurrentBalance,
		&acc.Status,
		&limit,
		&genDay,
		&dueDay,
		&acc.CreditUsagePct,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if limit != nil && genDay != nil && dueDay != nil {
		acc.CreditCard = &account.CreditCardTerms{
			CreditLimit:       *limit,
			BillGenerationDay: int(*genDay),
			PaymentDueDay:     int(*dueDay),
		}
	}
	return &acc, nil
}
