package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	billingsvc "github.com/fintrack/ledger-engine/internal/billing"
	"github.com/fintrack/ledger-engine/internal/domain/account"
	"github.com/fintrack/ledger-engine/internal/domain/billing"
	"github.com/fintrack/ledger-engine/internal/domain/shared"
	"github.com/fintrack/ledger-engine/internal/domain/transaction"
)

// badRequestErrs are domain validation failures that map to 400
var badRequestErrs = []error{
	account.ErrEmptyName,
	account.ErrInvalidAccountType,
	account.ErrInvalidCurrencyFormat,
	account.ErrNegativeInitialAmount,
	account.ErrInvalidCreditLimit,
	account.ErrInvalidCycleDay,
	account.ErrSameCycleDays,
	billing.ErrNegativePayment,
	transaction.ErrNegativeAmount,
	transaction.ErrMissingAccount,
	transaction.ErrSameTransferAccount,
	shared.ErrInvalidTransactionType,
}

// respondDomainError maps domain errors onto HTTP responses. Anything not
// recognized is treated as an internal error.
func respondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	if shared.IsValidation(err) {
		RespondBadRequest(c, err.Error())
		return
	}
	for _, target := range badRequestErrs {
		if errors.Is(err, target) {
			RespondBadRequest(c, err.Error())
			return
		}
	}

	var accNotFound account.ErrAccountNotFound
	var txnNotFound transaction.ErrTransactionNotFound
	var billNotFound billing.ErrBillNotFound
	var conflict account.ErrConcurrentModification
	var duplicateBill billing.ErrDuplicateBill
	var notCreditCard billingsvc.ErrNotCreditCard

	switch {
	case errors.As(err, &accNotFound):
		RespondNotFound(c, "Account not found")
	case errors.As(err, &txnNotFound):
		RespondNotFound(c, "Transaction not found")
	case errors.As(err, &billNotFound):
		RespondNotFound(c, "Bill not found")
	case errors.Is(err, account.ErrAccountClosed):
		RespondConflict(c, "Account is closed")
	case errors.As(err, &conflict):
		RespondConflict(c, "Concurrent modification, retry the request")
	case errors.As(err, &duplicateBill):
		RespondConflict(c, "Bill already generated for this cycle")
	case errors.As(err, &notCreditCard):
		RespondBadRequest(c, "Account is not a credit card")
	default:
		logger.Error("Unhandled domain error", "error", err)
		RespondInternalError(c)
	}
}
