package accounts

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/domain/account"
	"github.com/fintrack/ledger-engine/internal/domain/audit"
	"github.com/fintrack/ledger-engine/internal/domain/shared"
)

// CreateParams carries the inputs for opening an account
type CreateParams struct {
	OwnerID        uuid.UUID
	Name           string
	Type           shared.AccountType
	Currency       string
	InitialBalance int64
	CreditCard     *account.CreditCardTerms
}

// Service handles account lifecycle outside of balance mutations. Balance
// changes never go through here; they belong to the ledger engine.
type Service struct {
	logger   *slog.Logger
	accounts account.Repository
	journal  audit.Repository
}

// NewService creates the account service
func NewService(logger *slog.Logger, accounts account.Repository, journal audit.Repository) *Service {
	return &Service{
		logger:   logger,
		accounts: accounts,
		journal:  journal,
	}
}

// CreateAccount opens a new account
func (s *Service) CreateAccount(ctx context.Context, params CreateParams) (*account.Account, error) {
	acc, err := account.NewAccount(params.OwnerID, params.Name, params.Type, params.Currency, params.InitialBalance, params.CreditCard)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("Account created",
		"account_id", acc.ID.String(),
		"type", string(acc.Type),
		"currency", acc.Currency,
	)
	return acc, nil
}

// GetAccount retrieves an account by ID
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// ListAccounts returns all accounts of an owner
func (s *Service) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	return s.accounts.ListByOwner(ctx, ownerID)
}

// CloseAccount soft-closes an account. The transaction history stays intact
// and readable.
func (s *Service) CloseAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.Status == shared.AccountStatusClosed {
		return acc, nil
	}

	acc.Close()
	if err := s.accounts.Update(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("Account closed", "account_id", id.String())
	return acc, nil
}

// AuditTrail returns the account's balance mutation journal, newest first
func (s *Service) AuditTrail(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*audit.Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.journal.ListByAccount(ctx, accountID, limit, offset)
}
