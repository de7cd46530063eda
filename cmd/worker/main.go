package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outsource-importer/internal/app"
	"github.com/outsource-importer/internal/config"
	"github.com/outsource-importer/internal/pkg/logger"
	"github.com/outsource-importer/internal/worker"
	"github.com/outsource-importer/internal/worker/importjob"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, "outsource-worker")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Outsource Import Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("max_retries", cfg.Worker.MaxRetries),
		zap.Int("concurrency", cfg.Worker.Concurrency))

	// 3. Connections and use cases
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.New(initCtx, cfg, log, app.Options{Redis: true})
	initCancel()
	if err != nil {
		log.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	defer container.Close()

	// 4. Initialize workers
	importWorker := importjob.NewImportWorker(
		container.Streams,
		container.Imports,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.MaxRetries,
		cfg.Worker.Concurrency,
		log,
	)

	// 5. Create worker manager and register workers
	workerManager := worker.NewWorkerManager(log, 30*time.Second)
	workerManager.Register(importWorker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	cancel()

	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}
