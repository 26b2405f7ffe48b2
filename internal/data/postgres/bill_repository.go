package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fintrack/ledger-engine/internal/domain/billing"
	"github.com/fintrack/ledger-engine/internal/platform/persistence"
)

// BillRepository implements the billing.Repository interface for PostgreSQL
type BillRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBillRepository creates a new PostgreSQL bill repository
func NewBillRepository(logger *slog.Logger, db *persistence.PostgresDB) billing.Repository {
	return &BillRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *BillRepository) WithTx(tx pgx.Tx) billing.Repository {
	return &BillRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const billColumns = `id, account_id, cycle_start, cycle_end, due_date, statement_balance, paid_amount, status, created_at, updated_at`

// uniqueViolationCode is the SQLSTATE raised when the (account_id, cycle_start)
// unique index rejects a concurrent duplicate generation.
const uniqueViolationCode = "23505"

// Create stores a new bill. A unique constraint on (account_id, cycle_start)
// backs the generation idempotency guarantee.
func (r *BillRepository) Create(ctx context.Context, bill *billing.Bill) error {
	query := `
		INSERT INTO credit_card_bills (id, account_id, cycle_start, cycle_end, due_date, statement_balance, paid_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		bill.ID,
		bill.AccountID,
		bill.CycleStart,
		bill.CycleEnd,
		bill.DueDate,
		bill.StatementBalance,
		bill.PaidAmount,
		bill.Status,
		bill.CreatedAt,
		bill.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return billing.ErrDuplicateBill{AccountID: bill.AccountID, CycleStart: bill.CycleStart}
		}
		r.logger.Error("Failed to create bill", "account_id", bill.AccountID.String(), "error", err)
		return fmt.Errorf("failed to create bill: %w", err)
	}

	return nil
}

// GetByID retrieves a bill by its ID
func (r *BillRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM credit_card_bills
		WHERE id = $1
	`

	bill, err := scanBill(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrBillNotFound{BillID: id}
		}
		r.logger.Error("Failed to get bill", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return bill, nil
}

// GetByAccountAndCycle looks up the bill for the exact cycle start.
// Returns nil, nil when no bill exists for that cycle.
func (r *BillRepository) GetByAccountAndCycle(ctx context.Context, accountID uuid.UUID, cycleStart time.Time) (*billing.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM credit_card_bills
		WHERE account_id = $1 AND cycle_start = $2
	`

	bill, err := scanBill(r.querier.QueryRow(ctx, query, accountID, cycleStart))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No bill generated for this cycle yet
		}
		r.logger.Error("Failed to get bill by cycle", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get bill by cycle: %w", err)
	}

	return bill, nil
}

// ListByAccount retrieves every bill for the account, most recent cycle first
func (r *BillRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*billing.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM credit_card_bills
		WHERE account_id = $1
		ORDER BY cycle_start DESC
	`

	rows, err := r.querier.Query(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list bills", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*billing.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill row: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over bills: %w", err)
	}

	return bills, nil
}

// Update persists payment progress and status transitions
func (r *BillRepository) Update(ctx context.Context, bill *billing.Bill) error {
	query := `
		UPDATE credit_card_bills
		SET statement_balance = $1, paid_amount = $2, status = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		bill.StatementBalance,
		bill.PaidAmount,
		bill.Status,
		bill.UpdatedAt,
		bill.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update bill", "id", bill.ID.String(), "error", err)
		return fmt.Errorf("failed to update bill: %w", err)
	}

	if result.RowsAffected() == 0 {
		return billing.ErrBillNotFound{BillID: bill.ID}
	}

	return nil
}

// LockForUpdate obtains a row lock on the bill for payment recording
func (r *BillRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM credit_card_bills
		WHERE id = $1
		FOR UPDATE
	`

	bill, err := scanBill(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrBillNotFound{BillID: id}
		}
		r.logger.Error("Failed to lock bill for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock bill for update: %w", err)
	}

	return bill, nil
}

func scanBill(row pgx.Row) (*billing.Bill, error) {
	var bill billing.Bill
	err := row.Scan(
		&bill.ID,
		&bill.AccountID,
		&bill.CycleStart,
		&bill.CycleEnd,
		&bill.DueDate,
		&bill.StatementBalance,
		&bill.PaidAmount,
		&bill.Status,
		&bill.CreatedAt,
		&bill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bill, nil
}
