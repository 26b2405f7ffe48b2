package account

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/domain/shared"
)

// Common errors
var (
	ErrEmptyName             = errors.New("account name cannot be empty")
	ErrInvalidAccountType    = errors.New("unknown account type")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
	ErrNegativeInitialAmount = errors.New("initial balance cannot be negative for this account type")
	ErrInvalidCreditLimit    = errors.New("credit limit must be positive")
	ErrInvalidCycleDay       = errors.New("billing cycle days must be within 1-31")
	ErrSameCycleDays         = errors.New("payment due day must differ from bill generation day")
	ErrAccountClosed         = errors.New("account is closed")
)

// CreditCardTerms holds the billing parameters of a credit card account
type CreditCardTerms struct {
	CreditLimit       int64 `json:"credit_limit"` // Minor units
	BillGenerationDay int   `json:"bill_generation_day"`
	PaymentDueDay     int   `json:"payment_due_day"`
}

func (t CreditCardTerms) validate() error {
	if t.CreditLimit <= 0 {
		return ErrInvalidCreditLimit
	}
	if t.BillGenerationDay < 1 || t.BillGenerationDay > 31 ||
		t.PaymentDueDay < 1 || t.PaymentDueDay > 31 {
		return ErrInvalidCycleDay
	}
	if t.BillGenerationDay == t.PaymentDueDay {
		return ErrSameCycleDays
	}
	return nil
}

// Account represents a tracked finance account. CurrentBalance is derived
// state: it must always equal InitialBalance plus the net effect of all
// COMPLETED transactions referencing the account.
type Account struct {
	ID             uuid.UUID            `json:"id"`
	OwnerID        uuid.UUID            `json:"owner_id"`
	Name           string               `json:"name"`
	Type           shared.AccountType   `json:"type"`
	Currency       string               `json:"currency"`
	InitialBalance int64                `json:"initial_balance"` // Stored in cents/minor units
	CurrentBalance int64                `json:"current_balance"` // Stored in cents/minor units
	Status         shared.AccountStatus `json:"status"`
	CreditCard     *CreditCardTerms     `json:"credit_card,omitempty"`
	CreditUsagePct float64              `json:"credit_usage_percentage"` // Derived, 0-100
	Version        int                  `json:"version"`                 // For optimistic locking
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// NewAccount creates an account with the given parameters. terms is required
// for credit card accounts and rejected for every other type.
func NewAccount(ownerID uuid.UUID, name string, accType shared.AccountType, currency string, initialBalance int64, terms *CreditCardTerms) (*Account, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if !shared.ValidAccountType(accType) {
		return nil, ErrInvalidAccountType
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}

	if accType == shared.AccountTypeCreditCard {
		if terms == nil {
			return nil, ErrInvalidCreditLimit
		}
		if err := terms.validate(); err != nil {
			return nil, err
		}
	} else {
		if terms != nil {
			return nil, shared.NewValidationError("credit_card", "terms are only valid for credit card accounts")
		}
		// Credit card and loan balances may start in the red; asset accounts may not.
		if initialBalance < 0 && accType != shared.AccountTypeLoan {
			return nil, ErrNegativeInitialAmount
		}
	}

	acc := &Account{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Name:           name,
		Type:           accType,
		Currency:       currency,
		InitialBalance: initialBalance,
		CurrentBalance: initialBalance,
		Status:         shared.AccountStatusActive,
		CreditCard:     terms,
		Version:        1,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	acc.RefreshCreditUsage()
	return acc, nil
}

// IsCreditCard reports whether the account participates in the billing cycle
func (a *Account) IsCreditCard() bool {
	return a.Type == shared.AccountTypeCreditCard && a.CreditCard != nil
}

// ApplyDelta shifts the derived balance by delta minor units. The caller is
// responsible for holding the row lock and persisting the change atomically
// with the transaction that caused it.
func (a *Account) ApplyDelta(delta int64) {
	a.CurrentBalance += delta
	a.Version++
	a.UpdatedAt = time.Now()
	a.RefreshCreditUsage()
}

// SetBalance overwrites the derived balance with a ground-truth recomputed
// value and refreshes dependent derived fields.
func (a *Account) SetBalance(balance int64) {
	a.CurrentBalance = balance
	a.Version++
	a.UpdatedAt = time.Now()
	a.RefreshCreditUsage()
}

// RefreshCreditUsage recomputes the derived utilization percentage. A credit
// card in the black (overpaid) reports 0; the result is clamped to [0, 100].
func (a *Account) RefreshCreditUsage() {
	if !a.IsCreditCard() || a.CurrentBalance >= 0 {
		a.CreditUsagePct = 0
		return
	}
	pct := float64(-a.CurrentBalance) / float64(a.CreditCard.CreditLimit) * 100
	if pct > 100 {
		pct = 100
	}
	a.CreditUsagePct = pct
}

// Close soft-closes the account. Closed accounts keep their transaction
// history and stay readable; they only stop accepting new entries.
func (a *Account) Close() {
	a.Status = shared.AccountStatusClosed
	a.Version++
	a.UpdatedAt = time.Now()
}
