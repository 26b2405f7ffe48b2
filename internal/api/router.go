package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fintrack/ledger-engine/internal/api/handler"
	"github.com/fintrack/ledger-engine/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	transactionHandler *handler.TransactionHandler,
	billHandler *handler.BillHandler,
	summaryHandler *handler.SummaryHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Account operations
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("", accountHandler.ListByOwner)
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.DELETE("/:id", accountHandler.Close)
			accounts.GET("/:id/transactions", transactionHandler.GetByAccountID)
			accounts.GET("/:id/audit", accountHandler.AuditTrail)
			accounts.POST("/:id/bills", billHandler.Generate)
			accounts.GET("/:id/bills", billHandler.ListByAccount)
		}

		// Ledger entry operations
		transactions := v1.Group("/transactions")
		{
			transactions.POST("", transactionHandler.Create)
			transactions.GET("/:id", transactionHandler.GetByID)
			transactions.PUT("/:id", transactionHandler.Update)
			transactions.DELETE("/:id", transactionHandler.Delete)
		}

		// Bill operations
		bills := v1.Group("/bills")
		{
			bills.GET("/:id", billHandler.GetByID)
			bills.POST("/:id/payments", billHandler.RecordPayment)
		}

		// Owner-level operations
		owners := v1.Group("/owners")
		{
			owners.GET("/:owner_id/summary", summaryHandler.Get)
			owners.POST("/:owner_id/recalculate", transactionHandler.Recalculate)
			owners.POST("/:owner_id/bills", billHandler.GenerateForOwner)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
