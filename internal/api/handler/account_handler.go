package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/accounts"
	"github.com/fintrack/ledger-engine/internal/domain/account"
	"github.com/fintrack/ledger-engine/internal/domain/shared"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService *accounts.Service
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService *accounts.Service) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Create handles opening of a new account
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
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

	var terms *account.CreditCardTerms
	if req.CreditCard != nil {
		terms = &account.CreditCardTerms{
			CreditLimit:       req.CreditCard.CreditLimit,
			BillGenerationDay: req.CreditCard.BillGenerationDay,
			PaymentDueDay:     req.CreditCard.PaymentDueDay,
		}
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), accounts.CreateParams{
		OwnerID:        ownerID,
		Name:           req.Name,
		Type:           shared.AccountType(req.Type),
		Currency:       req.Currency,
		InitialBalance: req.InitialBalance,
		CreditCard:     terms,
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// GetByID retrieves an account by its ID, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accountService.GetAccount(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// ListByOwner returns all accounts of the owner given in the query string
func (h *AccountHandler) ListByOwner(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Query("owner_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid or missing owner_id")
		return
	}

	accs, err := h.accountService.ListAccounts(c.Request.Context(), ownerID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]AccountResponse, 0, len(accs))
	for _, acc := range accs {
		responses = append(responses, mapAccountToResponse(acc))
	}
	RespondOK(c, responses)
}

// Close soft-closes an account. History stays readable.
func (h *AccountHandler) Close(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accountService.CloseAccount(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// AuditTrail returns the account's balance mutation journal
func (h *AccountHandler) AuditTrail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	records, err := h.accountService.AuditTrail(c.Request.Context(), id, params.PerPage, (params.Page-1)*params.PerPage)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]AuditRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, mapAuditRecordToResponse(record))
	}
	RespondOK(c, responses)
}
