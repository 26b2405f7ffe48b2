package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/billing"
)

// BillHandler handles HTTP requests for credit card billing operations
type BillHandler struct {
	billingService *billing.Service
	logger         *slog.Logger
}

// NewBillHandler creates a new bill handler
func NewBillHandler(logger *slog.Logger, billingService *billing.Service) *BillHandler {
	return &BillHandler{
		billingService: billingService,
		logger:         logger,
	}
}

// Generate produces the statement for the account's most recent complete
// cycle. Repeating the call for the same cycle returns the existing bill.
func (h *BillHandler) Generate(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	bill, created, err := h.billingService.GenerateBill(c.Request.Context(), accountID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	if created {
		RespondCreated(c, mapBillToResponse(bill))
		return
	}
	RespondOK(c, mapBillToResponse(bill))
}

// GenerateForOwner sweeps the owner's credit cards and generates missing bills
func (h *BillHandler) GenerateForOwner(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid owner ID")
		return
	}

	bills, err := h.billingService.GenerateBillsForOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]BillResponse, 0, len(bills))
	for _, bill := range bills {
		responses = append(responses, mapBillToResponse(bill))
	}
	RespondOK(c, responses)
}

// GetByID retrieves a bill by its ID
func (h *BillHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid bill ID")
		return
	}

	bill, err := h.billingService.GetBill(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBillToResponse(bill))
}

// ListByAccount returns the account's bills, newest cycle first
func (h *BillHandler) ListByAccount(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	bills, err := h.billingService.ListBills(c.Request.Context(), accountID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]BillResponse, 0, len(bills))
	for _, bill := range bills {
		responses = append(responses, mapBillToResponse(bill))
	}
	RespondOK(c, responses)
}

// RecordPayment applies a payment to a bill. The ledger entry, the account
// balances and the bill settlement commit atomically.
func (h *BillHandler) RecordPayment(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid bill ID")
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	payment := billing.PaymentRequest{
		BillID: billID,
		Amount: req.Amount,
		Date:   req.Date,
		Notes:  req.Notes,
	}
	if payment.FromAccountID, err = parseOptionalUUID(req.FromAccountID); err != nil {
		RespondBadRequest(c, "Invalid from_account_id")
		return
	}

	bill, txn, err := h.billingService.RecordPayment(c.Request.Context(), payment)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, gin.H{
		"bill":        mapBillToResponse(bill),
		"transaction": mapTransactionToResponse(txn),
	})
}
