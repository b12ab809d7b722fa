package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"truckbooks/internal/amqp"
	"truckbooks/internal/artifact"
	"truckbooks/internal/config"
	"truckbooks/internal/core"
	apphttp "truckbooks/internal/http"
	"truckbooks/internal/ledger"
	applog "truckbooks/internal/log"
	"truckbooks/internal/report"
	"truckbooks/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.Setup("truckbooks", applog.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	artifacts, err := artifact.NewStore(cfg.ReportsDir)
	if err != nil {
		logger.Error("Failed to initialize artifact store", "error", err, "dir", cfg.ReportsDir)
		os.Exit(1)
	}

	engine := ledger.NewEngine(repo, core.HSTPolicy(cfg.HSTPolicy))

	// Report events are optional; without AMQP the server still
	// generates and serves artifacts.
	var events report.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	identity := report.Identity{
		Name:    cfg.CompanyName,
		Address: cfg.CompanyAddress,
		Email:   cfg.CompanyEmail,
		Phones:  cfg.CompanyPhones,
	}
	generator := report.NewGenerator(engine, artifacts, identity, events)

	srv := apphttp.NewServer(":"+cfg.Port, cfg, repo, engine, generator, artifacts)

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting truckbooks server", "port", cfg.Port, "hst_policy", cfg.HSTPolicy)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
