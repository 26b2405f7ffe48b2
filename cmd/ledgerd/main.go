package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fintrack/ledger-engine/internal/accounts"
	"github.com/fintrack/ledger-engine/internal/api"
	"github.com/fintrack/ledger-engine/internal/billing"
	"github.com/fintrack/ledger-engine/internal/config"
	"github.com/fintrack/ledger-engine/internal/data/mongo"
	"github.com/fintrack/ledger-engine/internal/data/postgres"
	"github.com/fintrack/ledger-engine/internal/fx"
	"github.com/fintrack/ledger-engine/internal/ledger"
	"github.com/fintrack/ledger-engine/internal/logger"
	outboxpoller "github.com/fintrack/ledger-engine/internal/outbox"
	"github.com/fintrack/ledger-engine/internal/platform/messaging/producers"
	"github.com/fintrack/ledger-engine/internal/platform/persistence"
	"github.com/fintrack/ledger-engine/internal/summary"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledgerd")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Engine",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	billRepo := postgres.NewBillRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize Kafka producer for outbound ledger events
	eventProducer, err := producers.NewLedgerEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka event producer", "error", err)
		os.Exit(1)
	}

	// Initialize services
	engine := ledger.NewEngine(
		log,
		postgresDB,
		accountRepo,
		transactionRepo,
		outboxRepo,
		auditRepo,
		cfg.Outbox.MaxRetryAttempts,
		cfg.WorkerPool.Size,
	)
	accountService := accounts.NewService(log, accountRepo, auditRepo)
	billingService := billing.NewService(log, postgresDB, accountRepo, transactionRepo, billRepo, outboxRepo, auditRepo)
	rateProvider := fx.NewHTTPRateProvider(log, &cfg.Rates)
	converter := fx.NewConverter(rateProvider)
	summaryService := summary.NewService(log, accountRepo, transactionRepo, converter)

	// Initialize outbox poller
	eventPublisher := outboxpoller.NewKafkaEventPublisher(outboxRepo, eventProducer, log)
	poller := outboxpoller.NewPoller(&cfg.Outbox, outboxRepo, eventPublisher, log)

	// Initialize HTTP server
	server := api.NewServer(log, cfg, accountService, engine, billingService, summaryService)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start HTTP server in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", "error", err)
	}

	// Wait for all goroutines to finish
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close Kafka producer
	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka event producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Ledger Engine shutdown with errors", "error", serviceErr)
	} else {
		log.Info("Ledger Engine shutdown completed successfully")
	}
}
