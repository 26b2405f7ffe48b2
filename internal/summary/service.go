package summary

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/domain/account"
	"github.com/fintrack/ledger-engine/internal/domain/shared"
	"github.com/fintrack/ledger-engine/internal/domain/transaction"
	"github.com/fintrack/ledger-engine/internal/fx"
)

const defaultWindowDays = 30

// AccountSummary is one account's contribution to the owner's overview.
type AccountSummary struct {
	AccountID        uuid.UUID          `json:"account_id"`
	Name             string             `json:"name"`
	Type             shared.AccountType `json:"type"`
	Currency         string             `json:"currency"`
	Balance          int64              `json:"balance"` // Native minor units
	ConvertedBalance int64              `json:"converted_balance"`
	Rate             float64            `json:"rate"`
	CreditUsagePct   float64            `json:"credit_usage_percentage,omitempty"`
}

// ConversionStatus reports whether every currency converted with a live rate.
// Currencies listed in Failed fell back to a 1:1 rate.
type ConversionStatus struct {
	Success          bool     `json:"success"`
	FailedCurrencies []string `json:"failed_currencies,omitempty"`
}

// Summary is the owner's multi-currency financial overview. All converted
// figures are expressed in DisplayCurrency minor units.
type Summary struct {
	DisplayCurrency string           `json:"display_currency"`
	NetWorth        int64            `json:"net_worth"`
	TotalIncome     int64            `json:"total_income"`  // Deposits in window
	TotalExpense    int64            `json:"total_expense"` // Withdrawals in window
	WindowDays      int              `json:"window_days"`
	Accounts        []AccountSummary `json:"accounts"`
	Conversion      ConversionStatus `json:"conversion"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Service computes owner-level summaries across accounts and currencies.
type Service struct {
	logger       *slog.Logger
	accounts     account.Repository
	transactions transaction.Repository
	converter    *fx.Converter
	now          func() time.Time
}

// NewService creates the summary service
func NewService(
	logger *slog.Logger,
	accounts account.Repository,
	transactions transaction.Repository,
	converter *fx.Converter,
) *Service {
	return &Service{
		logger:       logger,
		accounts:     accounts,
		transactions: transactions,
		converter:    converter,
		now:          time.Now,
	}
}

// GetSummary builds the overview for an owner in the given display currency.
// windowDays bounds the income/expense aggregation and defaults to 30. One
// conversion session serves the whole call, so each currency pair is fetched
// at most once. A pair without a live rate falls back to 1:1 and is flagged
// rather than failing the summary.
func (s *Service) GetSummary(ctx context.Context, ownerID uuid.UUID, displayCurrency string, windowDays int) (*Summary, error) {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	displayCurrency = strings.ToUpper(displayCurrency)

	accounts, err := s.accounts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	session := s.converter.NewSession()
	result := &Summary{
		DisplayCurrency: displayCurrency,
		WindowDays:      windowDays,
		Accounts:        make([]AccountSummary, 0, len(accounts)),
		Conversion:      ConversionStatus{Success: true},
		GeneratedAt:     s.now(),
	}
	failed := make(map[string]struct{})

	currencyByAccount := make(map[uuid.UUID]string, len(accounts))
	for _, acc := range accounts {
		currencyByAccount[acc.ID] = acc.Currency

		converted, rate := s.convert(ctx, session, acc.CurrentBalance, acc.Currency, displayCurrency, failed)
		result.NetWorth += converted
		result.Accounts = append(result.Accounts, AccountSummary{
			AccountID:        acc.ID,
			Name:             acc.Name,
			Type:             acc.Type,
			Currency:         acc.Currency,
			Balance:          acc.CurrentBalance,
			ConvertedBalance: converted,
			Rate:             rate,
			CreditUsagePct:   acc.CreditUsagePct,
		})
	}

	since := result.GeneratedAt.AddDate(0, 0, -windowDays)
	txns, err := s.transactions.ListByOwnerSince(ctx, ownerID, since)
	if err != nil {
		return nil, err
	}

	// Transfers move money between the owner's own accounts and count as
	// neither income nor expense.
	for _, txn := range txns {
		if !txn.Completed() || txn.AccountID == nil {
			continue
		}
		currency, ok := currencyByAccount[*txn.AccountID]
		if !ok {
			continue
		}
		converted, _ := s.convert(ctx, session, txn.Amount, currency, displayCurrency, failed)
		switch txn.Type {
		case shared.TransactionTypeDeposit:
			result.TotalIncome += converted
		case shared.TransactionTypeWithdrawal:
			result.TotalExpense += converted
		}
	}

	if len(failed) > 0 {
		result.Conversion.Success = false
		for currency := range failed {
			result.Conversion.FailedCurrencies = append(result.Conversion.FailedCurrencies, currency)
		}
		sort.Strings(result.Conversion.FailedCurrencies)
	}
	return result, nil
}

// convert converts amount, falling back to a 1:1 rate when no rate is
// available and recording the failed source currency.
func (s *Service) convert(ctx context.Context, session *fx.Session, amount int64, from, to string, failed map[string]struct{}) (int64, float64) {
	converted, rate, err := session.Convert(ctx, amount, from, to)
	if err != nil {
		if _, seen := failed[strings.ToUpper(from)]; !seen {
			s.logger.Warn("Falling back to 1:1 conversion",
				"from", from,
				"to", to,
				"error", err,
			)
		}
		failed[strings.ToUpper(from)] = struct{}{}
		return amount, 1.0
	}
	return converted, rate
}
