package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/domain/account"
	"github.com/fintrack/ledger-engine/internal/domain/audit"
	"github.com/fintrack/ledger-engine/internal/domain/billing"
	"github.com/fintrack/ledger-engine/internal/domain/transaction"
)

// CreditCardTermsPayload carries credit card billing parameters
type CreditCardTermsPayload struct {
	CreditLimit       int64 `json:"credit_limit" binding:"required,gt=0"`
	BillGenerationDay int   `json:"bill_generation_day" binding:"required,min=1,max=31"`
	PaymentDueDay     int   `json:"payment_due_day" binding:"required,min=1,max=31"`
}

// CreateAccountRequest represents a request to open a new account
type CreateAccountRequest struct {
	OwnerID        string                  `json:"owner_id" binding:"required,uuid"`
	Name           string                  `json:"name" binding:"required"`
	Type           string                  `json:"type" binding:"required,oneof=CHECKING SAVINGS CREDIT_CARD CASH INVESTMENT LOAN OTHER"`
	Currency       string                  `json:"currency" binding:"required,len=3"`
	InitialBalance int64                   `json:"initial_balance"`
	CreditCard     *CreditCardTermsPayload `json:"credit_card,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID             string                  `json:"id"`
	OwnerID        string                  `json:"owner_id"`
	Name           string                  `json:"name"`
	Type           string                  `json:"type"`
	Currency       string                  `json:"currency"`
	InitialBalance int64                   `json:"initial_balance"`
	CurrentBalance int64                   `json:"current_balance"`
	Status         string                  `json:"status"`
	CreditCard     *CreditCardTermsPayload `json:"credit_card,omitempty"`
	CreditUsagePct float64                 `json:"credit_usage_percentage,omitempty"`
	CreatedAt      string                  `json:"created_at"`
	UpdatedAt      string                  `json:"updated_at"`
}

// CreateTransactionRequest represents a request to record a ledger entry.
// Account fields depend on the type: deposits and withdrawals take account_id,
// transfers take from_account_id and to_account_id.
type CreateTransactionRequest struct {
	OwnerID       string     `json:"owner_id" binding:"required,uuid"`
	Type          string     `json:"type" binding:"required,oneof=DEPOSIT WITHDRAWAL TRANSFER"`
	Amount        int64      `json:"amount" binding:"min=0"`
	AccountID     string     `json:"account_id,omitempty" binding:"omitempty,uuid"`
	FromAccountID string     `json:"from_account_id,omitempty" binding:"omitempty,uuid"`
	ToAccountID   string     `json:"to_account_id,omitempty" binding:"omitempty,uuid"`
	Date          time.Time  `json:"date" binding:"required"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	PayeeID       *uuid.UUID `json:"payee_id,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// UpdateTransactionRequest carries a partial transaction edit. Absent fields
// are left untouched. owner_id scopes the edit: a transaction belonging to a
// different owner is reported as not found.
type UpdateTransactionRequest struct {
	OwnerID       string     `json:"owner_id" binding:"required,uuid"`
	Amount        *int64     `json:"amount,omitempty" binding:"omitempty,min=0"`
	Date          *time.Time `json:"date,omitempty"`
	AccountID     *string    `json:"account_id,omitempty" binding:"omitempty,uuid"`
	FromAccountID *string    `json:"from_account_id,omitempty" binding:"omitempty,uuid"`
	ToAccountID   *string    `json:"to_account_id,omitempty" binding:"omitempty,uuid"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	PayeeID       *uuid.UUID `json:"payee_id,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	Amount        int64      `json:"amount"`
	AccountID     *string    `json:"account_id,omitempty"`
	FromAccountID *string    `json:"from_account_id,omitempty"`
	ToAccountID   *string    `json:"to_account_id,omitempty"`
	Date          string     `json:"date"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	PayeeID       *uuid.UUID `json:"payee_id,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     string     `json:"created_at"`
	UpdatedAt     string     `json:"updated_at"`
}

// RecordPaymentRequest represents a bill payment. When from_account_id is set
// the payment transfers from that account onto the card.
type RecordPaymentRequest struct {
	FromAccountID *string   `json:"from_account_id,omitempty" binding:"omitempty,uuid"`
	Amount        int64     `json:"amount" binding:"min=0"`
	Date          time.Time `json:"date" binding:"required"`
	Notes         string    `json:"notes,omitempty"`
}

// BillResponse represents a credit card bill in API responses
type BillResponse struct {
	ID               string `json:"id"`
	AccountID        string `json:"account_id"`
	CycleStart       string `json:"cycle_start"`
	CycleEnd         string `json:"cycle_end"`
	DueDate          string `json:"due_date"`
	StatementBalance int64  `json:"statement_balance"`
	AmountOwed       int64  `json:"amount_owed"`
	PaidAmount       int64  `json:"paid_amount"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// AuditRecordResponse represents one balance journal entry in API responses
type AuditRecordResponse struct {
	ID            string  `json:"id"`
	AccountID     string  `json:"account_id"`
	TransactionID *string `json:"transaction_id,omitempty"`
	Change        string  `json:"change"`
	Delta         int64   `json:"delta"`
	BalanceBefore int64   `json:"balance_before"`
	BalanceAfter  int64   `json:"balance_after"`
	Drift         int64   `json:"drift,omitempty"`
	RecordedAt    string  `json:"recorded_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	resp := AccountResponse{
		ID:             acc.ID.String(),
		OwnerID:        acc.OwnerID.String(),
		Name:           acc.Name,
		Type:           string(acc.Type),
		Currency:       acc.Currency,
		InitialBalance: acc.InitialBalance,
		CurrentBalance: acc.CurrentBalance,
		Status:         string(acc.Status),
		CreditUsagePct: acc.CreditUsagePct,
		CreatedAt:      acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      acc.UpdatedAt.Format(time.RFC3339),
	}
	if acc.CreditCard != nil {
		resp.CreditCard = &CreditCardTermsPayload{
			CreditLimit:       acc.CreditCard.CreditLimit,
			BillGenerationDay: acc.CreditCard.BillGenerationDay,
			PaymentDueDay:     acc.CreditCard.PaymentDueDay,
		}
	}
	return resp
}

func mapTransactionToResponse(txn *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:         txn.ID.String(),
		OwnerID:    txn.OwnerID.String(),
		Type:       string(txn.Type),
		Status:     string(txn.Status),
		Amount:     txn.Amount,
		Date:       txn.Date.Format(time.RFC3339),
		CategoryID: txn.CategoryID,
		PayeeID:    txn.PayeeID,
		Notes:      txn.Notes,
		CreatedAt:  txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  txn.UpdatedAt.Format(time.RFC3339),
	}
	if txn.AccountID != nil {
		s := txn.AccountID.String()
		resp.AccountID = &s
	}
	if txn.FromAccountID != nil {
		s := txn.FromAccountID.String()
		resp.FromAccountID = &s
	}
	if txn.ToAccountID != nil {
		s := txn.ToAccountID.String()
		resp.ToAccountID = &s
	}
	return resp
}

func mapBillToResponse(bill *billing.Bill) BillResponse {
	return BillResponse{
		ID:               bill.ID.String(),
		AccountID:        bill.AccountID.String(),
		CycleStart:       bill.CycleStart.Format("2006-01-02"),
		CycleEnd:         bill.CycleEnd.Format("2006-01-02"),
		DueDate:          bill.DueDate.Format("2006-01-02"),
		StatementBalance: bill.StatementBalance,
		AmountOwed:       bill.AmountOwed(),
		PaidAmount:       bill.PaidAmount,
		Status:           string(bill.Status),
		CreatedAt:        bill.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        bill.UpdatedAt.Format(time.RFC3339),
	}
}

func mapAuditRecordToResponse(record *audit.Record) AuditRecordResponse {
	resp := AuditRecordResponse{
		ID:            record.ID.String(),
		AccountID:     record.AccountID.String(),
		Change:        string(record.Change),
		Delta:         record.Delta,
		BalanceBefore: record.BalanceBefore,
		BalanceAfter:  record.BalanceAfter,
		Drift:         record.Drift,
		RecordedAt:    record.RecordedAt.Format(time.RFC3339),
	}
	if record.TransactionID != nil {
		s := record.TransactionID.String()
		resp.TransactionID = &s
	}
	return resp
}
