package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"enricher/internal/app"
	"enricher/internal/config"
	"enricher/internal/logger"
	"enricher/internal/worker"
	"enricher/internal/worker/processors"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize: %v", err)
	}

	// Initialize worker
	w := worker.New(
		worker.NewReader(cfg.Kafka),
		processors.NewEventProcessor(application.Orchestrator, logger),
		logger,
	)

	logger.Info("Starting worker...")
	if err := w.Start(ctx); err != nil {
		logger.Error("Worker stopped: %v", err)
	}

	logger.Info("Shutting down worker...")
	if err := w.Stop(); err != nil {
		logger.Error("Close reader: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Sync.ShutdownTimeout)
	defer cancel()
	if err := application.Close(shutdownCtx); err != nil {
		logger.Error("Shutdown: %v", err)
	}
}
