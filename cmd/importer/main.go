package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/outsource-importer/internal/app"
	"github.com/outsource-importer/internal/config"
	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/pkg/logger"
	"github.com/outsource-importer/internal/usecase"
)

// importer TYPE ENDPOINT PROVIDER [ID...] [--all] [--reimport]
func main() {
	all := flag.Bool("all", false, "import every record the source lists")
	reimport := flag.Bool("reimport", false, "re-run imports for features already stored for the endpoint")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: importer TYPE ENDPOINT PROVIDER [ID...] [--all] [--reimport]")
		fmt.Fprintln(os.Stderr, "  TYPE      track | poi | media")
		fmt.Fprintln(os.Stderr, "  PROVIDER  SICAI | WP | StorageCSV")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 3 || (len(args) == 3 && !*all && !*reimport) {
		flag.Usage()
		os.Exit(2)
	}

	featureType, err := domain.ParseFeatureType(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	endpoint := strings.TrimSpace(args[1])
	provider, ok := domain.ParseProvider(args[2])
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown provider %q\n", args[2])
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level, "outsource-importer")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	defer container.Close()

	start := time.Now()
	var result *usecase.BatchResult
	switch {
	case *reimport:
		result, err = container.Batch.Reimport(ctx, provider, endpoint, featureType)
	case *all:
		result, err = container.Batch.ImportAll(ctx, provider, endpoint, featureType)
	default:
		result, err = container.Batch.ImportMany(ctx, usecase.BatchRequest{
			Type:      featureType,
			Endpoint:  endpoint,
			Provider:  provider,
			SourceIDs: args[3:],
		})
	}
	if err != nil {
		log.Error("Import aborted", zap.Error(err))
		container.Close()
		os.Exit(1)
	}

	log.Info("Import finished",
		zap.String("type", string(featureType)),
		zap.String("endpoint", endpoint),
		zap.String("provider", string(provider)),
		zap.Int("imported", len(result.Imported)),
		zap.Int("failed", len(result.Failed)),
		zap.Duration("duration", time.Since(start)))

	for _, f := range result.Failed {
		fmt.Fprintf(os.Stderr, "failed %s: %v\n", f.SourceID, f.Err)
	}
	if len(result.Failed) > 0 {
		container.Close()
		os.Exit(1)
	}
}
