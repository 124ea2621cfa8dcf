package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lebohangm/fakaloan/internal/balance"
	"github.com/lebohangm/fakaloan/internal/config"
	"github.com/lebohangm/fakaloan/internal/customer"
	customerStore "github.com/lebohangm/fakaloan/internal/customer/store"
	"github.com/lebohangm/fakaloan/internal/database"
	"github.com/lebohangm/fakaloan/internal/export"
	fakaloanHttp "github.com/lebohangm/fakaloan/internal/http"
	customerHandler "github.com/lebohangm/fakaloan/internal/http/customer"
	exportHandler "github.com/lebohangm/fakaloan/internal/http/export"
	importHandler "github.com/lebohangm/fakaloan/internal/http/importcsv"
	txHandler "github.com/lebohangm/fakaloan/internal/http/transaction"
	"github.com/lebohangm/fakaloan/internal/importer"
	"github.com/lebohangm/fakaloan/internal/matching"
	matchingStore "github.com/lebohangm/fakaloan/internal/matching/store"
	"github.com/lebohangm/fakaloan/internal/transaction"
	txStore "github.com/lebohangm/fakaloan/internal/transaction/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db, cfg.DB.MigrationsDir); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	var (
		customers    = customerStore.New(db)
		transactions = txStore.New(db)
	)

	engine := balance.NewEngine(transactions, customers, slog.Default())

	dispatcher := balance.NewDispatcher(engine, balance.DispatcherConfig{
		Workers:     cfg.Recalc.Workers,
		QueueDepth:  cfg.Recalc.QueueDepth,
		MaxAttempts: cfg.Recalc.MaxAttempts,
		RetryDelay:  cfg.Recalc.RetryDelay,
		Timeout:     cfg.Recalc.Timeout,
	}, slog.Default())
	dispatcher.Start()

	var (
		customerService    = customer.NewService(customers)
		transactionService = transaction.NewService(transactions, dispatcher)
		matchingService    = matching.NewService(matchingStore.New(db))
		importService      = importer.NewService()
		exportService      = export.NewService(customerService, transactionService)
	)

	var (
		customerH    = customerHandler.NewHandler(customerService)
		transactionH = txHandler.NewHandler(transactionService, customerService)
		importH      = importHandler.NewHandler(importService, transactionService, matchingService, customerService)
		exportH      = exportHandler.NewHandler(exportService)
	)

	router := fakaloanHttp.New(cfg.Auth.JWTSecret, customerH, transactionH, importH, exportH)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		slog.Info("starting server", "port", cfg.App.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	// Drain queued balance recomputes before exiting so no write event is
	// lost between the transaction store and the customer balance.
	dispatcher.Close()
}
