package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/outsource-importer/internal/app"
	"github.com/outsource-importer/internal/config"
	"github.com/outsource-importer/internal/pkg/logger"
	"github.com/outsource-importer/internal/usecase"
)

// taxonomy-mapping ENDPOINT PROVIDER [--activity] [--poi_type]
func main() {
	activity := flag.Bool("activity", false, "build the activity taxonomy")
	poiType := flag.Bool("poi_type", false, "build the webmapp_category taxonomy")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: taxonomy-mapping ENDPOINT PROVIDER [--activity] [--poi_type]")
		fmt.Fprintln(os.Stderr, "  without flags both taxonomies are built")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level, "taxonomy-mapping")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	taxonomy, err := app.NewTaxonomy(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize dependencies", zap.Error(err))
	}

	result, err := taxonomy.Build(ctx, usecase.TaxonomyRequest{
		Endpoint: flag.Arg(0),
		Provider: flag.Arg(1),
		Activity: *activity,
		PoiType:  *poiType,
	})
	if err != nil {
		log.Error("Taxonomy mapping failed", zap.Error(err))
		os.Exit(1)
	}

	if result.FileName == "" {
		log.Info("Nothing to do", zap.String("provider", flag.Arg(1)))
		return
	}
	fmt.Println(result.FileName)
}
