package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fintrack/ledger-engine/internal/summary"
)

// SummaryHandler handles HTTP requests for the multi-currency overview
type SummaryHandler struct {
	summaryService *summary.Service
	logger         *slog.Logger
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(logger *slog.Logger, summaryService *summary.Service) *SummaryHandler {
	return &SummaryHandler{
		summaryService: summaryService,
		logger:         logger,
	}
}

// Get builds the owner's overview in the requested display currency.
// window_days bounds the income/expense aggregation and defaults to 30.
func (h *SummaryHandler) Get(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid owner ID")
		return
	}

	currency := c.DefaultQuery("currency", "USD")
	if len(currency) != 3 {
		RespondBadRequest(c, "currency must be a 3-letter code")
		return
	}

	windowDays := 0
	if raw := c.Query("window_days"); raw != "" {
		windowDays, err = strconv.Atoi(raw)
		if err != nil || windowDays <= 0 || windowDays > 365 {
			RespondBadRequest(c, "window_days must be between 1 and 365")
			return
		}
	}

	result, err := h.summaryService.GetSummary(c.Request.Context(), ownerID, currency, windowDays)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, result)
}
