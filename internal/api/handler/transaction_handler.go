package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/domain/shared"
	"github.com/fintrack/ledger-engine/internal/ledger"
)

// TransactionHandler handles HTTP requests for ledger entry operations
type TransactionHandler struct {
	engine *ledger.Engine
	logger *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, engine *ledger.Engine) *TransactionHandler {
	return &TransactionHandler{
		engine: engine,
		logger: logger,
	}
}

// Create records a new ledger entry. The request type selects which account
// fields are honored.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		RespondBadRequest(c, "Invalid owner ID")
		return
	}

	ctx := c.Request.Context()
	switch shared.TransactionType(req.Type) {
	case shared.TransactionTypeDeposit:
		accountID, err := uuid.Parse(req.AccountID)
		if err != nil {
			RespondBadRequest(c, "account_id is required for deposits")
			return
		}
		txn, err := h.engine.CreateDeposit(ctx, ledger.DepositRequest{
			OwnerID:    ownerID,
			AccountID:  accountID,
			Amount:     req.Amount,
			Date:       req.Date,
			CategoryID: req.CategoryID,
			PayeeID:    req.PayeeID,
			Notes:      req.Notes,
		})
		if err != nil {
			respondDomainError(c, h.logger, err)
			return
		}
		RespondCreated(c, mapTransactionToResponse(txn))

	case shared.TransactionTypeWithdrawal:
		accountID, err := uuid.Parse(req.AccountID)
		if err != nil {
			RespondBadRequest(c, "account_id is required for withdrawals")
			return
		}
		txn, err := h.engine.CreateWithdrawal(ctx, ledger.WithdrawalRequest{
			OwnerID:    ownerID,
			AccountID:  accountID,
			Amount:     req.Amount,
			Date:       req.Date,
			CategoryID: req.CategoryID,
			PayeeID:    req.PayeeID,
			Notes:      req.Notes,
		})
		if err != nil {
			respondDomainError(c, h.logger, err)
			return
		}
		RespondCreated(c, mapTransactionToResponse(txn))

	case shared.TransactionTypeTransfer:
		fromID, err := uuid.Parse(req.FromAccountID)
		if err != nil {
			RespondBadRequest(c, "from_account_id is required for transfers")
			return
		}
		toID, err := uuid.Parse(req.ToAccountID)
		if err != nil {
			RespondBadRequest(c, "to_account_id is required for transfers")
			return
		}
		txn, err := h.engine.CreateTransfer(ctx, ledger.TransferRequest{
			OwnerID:       ownerID,
			FromAccountID: fromID,
			ToAccountID:   toID,
			Amount:        req.Amount,
			Date:          req.Date,
			Notes:         req.Notes,
		})
		if err != nil {
			respondDomainError(c, h.logger, err)
			return
		}
		RespondCreated(c, mapTransactionToResponse(txn))

	default:
		RespondBadRequest(c, "Unknown transaction type")
	}
}

// GetByID retrieves a transaction by its ID
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.engine.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// Update applies a partial edit. Balances of every touched account are
// reconciled in the same database transaction.
func (h *TransactionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		RespondBadRequest(c, "Invalid owner ID")
		return
	}

	edit := ledger.EditRequest{
		Amount:     req.Amount,
		Date:       req.Date,
		CategoryID: req.CategoryID,
		PayeeID:    req.PayeeID,
		Notes:      req.Notes,
	}
	if edit.AccountID, err = parseOptionalUUID(req.AccountID); err != nil {
		RespondBadRequest(c, "Invalid account_id")
		return
	}
	if edit.FromAccountID, err = parseOptionalUUID(req.FromAccountID); err != nil {
		RespondBadRequest(c, "Invalid from_account_id")
		return
	}
	if edit.ToAccountID, err = parseOptionalUUID(req.ToAccountID); err != nil {
		RespondBadRequest(c, "Invalid to_account_id")
		return
	}

	txn, err := h.engine.EditTransaction(c.Request.Context(), ownerID, id, edit)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// Delete removes an owner's transaction and reverts its balance effect. The
// owner is passed as a query parameter since DELETE carries no body.
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}
	ownerID, err := uuid.Parse(c.Query("owner_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid owner ID")
		return
	}

	if err := h.engine.DeleteTransaction(c.Request.Context(), ownerID, id); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondNoContent(c)
}

// GetByAccountID returns paginated transactions touching an account
func (h *TransactionHandler) GetByAccountID(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	txns, total, err := h.engine.ListTransactions(c.Request.Context(), accountID, params.PerPage, (params.Page-1)*params.PerPage)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, mapTransactionToResponse(txn))
	}
	RespondWithPaginatedData(c, http.StatusOK, responses, params.Page, params.PerPage, int(total))
}

// Recalculate recomputes every account balance of an owner from the entry store
func (h *TransactionHandler) Recalculate(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid owner ID")
		return
	}

	result, err := h.engine.RecalculateBalances(c.Request.Context(), ownerID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, result)
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
