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
	httpDelivery "github.com/outsource-importer/internal/delivery/http"
	"github.com/outsource-importer/internal/delivery/http/handler"
	"github.com/outsource-importer/internal/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, "outsource-api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Outsource Importer API")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
	)

	// 3. Connections, repositories and use cases
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.New(ctx, cfg, log, app.Options{Redis: cfg.Worker.Enabled})
	cancel()
	if err != nil {
		log.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	defer container.Close()

	// 4. Health checks
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	for name, checker := range container.HealthCheckers() {
		if err := checker.Health(ctx); err != nil {
			cancel()
			log.Fatal("Health check failed", zap.String("dependency", name), zap.Error(err))
		}
	}
	cancel()
	log.Info("All connections healthy")

	// 5. Initialize HTTP Handlers
	importHandler := handler.NewImportHandler(container.Imports, container.Batch, container.Streams, log)
	taxonomyHandler := handler.NewTaxonomyHandler(container.Taxonomy, log)

	// 6. Initialize HTTP Server
	server := httpDelivery.NewServer(cfg, log, importHandler, taxonomyHandler, container.HealthCheckers())

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 7. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
