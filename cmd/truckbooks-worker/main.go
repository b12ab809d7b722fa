package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"truckbooks/internal/amqp"
	"truckbooks/internal/artifact"
	"truckbooks/internal/config"
	applog "truckbooks/internal/log"
	"truckbooks/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.Setup("truckbooks-worker", applog.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the archive worker")
		os.Exit(1)
	}

	reports, err := artifact.NewStore(cfg.ReportsDir)
	if err != nil {
		logger.Error("Failed to open reports directory", "error", err, "dir", cfg.ReportsDir)
		os.Exit(1)
	}

	archiver, err := worker.NewArchiveWorker(reports, cfg.ArchiveDir)
	if err != nil {
		logger.Error("Failed to initialize archive worker", "error", err, "dir", cfg.ArchiveDir)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	deliveries, err := amqpClient.Consume()
	if err != nil {
		logger.Error("Failed to start consumer", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting archive worker",
		"queue", cfg.AMQPQueue,
		"reports_dir", cfg.ReportsDir,
		"archive_dir", cfg.ArchiveDir)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case d, ok := <-deliveries:
				if !ok {
					return nil
				}
				msg, err := amqp.ReportGeneratedMessageFromJSON(d.Body)
				if err != nil {
					slog.ErrorContext(ctx, "Malformed report event", "error", err)
					d.Nack(false, false) // drop, redelivery cannot fix it
					continue
				}
				if err := archiver.HandleReportGenerated(ctx, msg); err != nil {
					slog.ErrorContext(ctx, "Archive failed", "filename", msg.Filename, "error", err)
					d.Nack(false, true)
					continue
				}
				d.Ack(false)
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
