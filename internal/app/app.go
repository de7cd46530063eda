package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/outsource-importer/internal/config"
	httpDelivery "github.com/outsource-importer/internal/delivery/http"
	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/geometry"
	"github.com/outsource-importer/internal/infrastructure/media"
	"github.com/outsource-importer/internal/infrastructure/storage"
	"github.com/outsource-importer/internal/infrastructure/wordpress"
	"github.com/outsource-importer/internal/repository/postgres"
	redisRepo "github.com/outsource-importer/internal/repository/redis"
	"github.com/outsource-importer/internal/repository/sicai"
	"github.com/outsource-importer/internal/usecase"
)

// Container собирает зависимости, общие для api, worker и CLI
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	DB          *postgres.DB
	SICAIDB     *sicai.DB
	RedisClient *goredis.Client

	Streams repository.StreamRepository

	Store    *usecase.FeatureStore
	Media    *usecase.MediaUseCase
	Imports  usecase.ImportUseCase
	Batch    *usecase.BatchUseCase
	Taxonomy *usecase.TaxonomyMappingUseCase

	closers []func() error
}

// Options выбирает необязательные подключения
type Options struct {
	// Redis нужен для очереди импорта и распределённой блокировки
	Redis bool
}

// New подключается к базам и строит граф use case'ов.
// SICAI провайдер регистрируется только если задан SICAI_DB_HOST.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	db, err := postgres.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect feature store: %w", err)
	}
	c.DB = db
	c.closers = append(c.closers, db.Close)

	var locker repository.KeyLocker
	if opts.Redis || cfg.Import.DistributedLock {
		client, err := redisRepo.NewClient(&cfg.Redis, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.RedisClient = client
		c.closers = append(c.closers, client.Close)
		c.Streams = redisRepo.NewStreamRepository(client, logger)
		if cfg.Import.DistributedLock {
			locker = redisRepo.NewLockRepository(client, logger)
		}
	}

	mediaDisk, err := storage.NewDisk(ctx, "media", cfg.Media.Disk, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	csvDisk, err := storage.NewDisk(ctx, "csv", cfg.Storage.CSV, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	mappingDisk, err := storage.NewDisk(ctx, "mapping", cfg.Storage.Mapping, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Store = usecase.NewFeatureStore(
		postgres.NewFeatureRepository(db, cfg.Import.TargetSRID),
		locker,
		cfg.Import.LockTTL,
		logger,
	)
	c.Media = usecase.NewMediaUseCase(
		c.Store,
		mediaDisk,
		media.NewDownloader(cfg.Import.MediaTimeout, cfg.Media.DownloadMaxBytes, logger),
		cfg.Import.MediaTimeout,
		logger,
	)

	wp := wordpress.NewWordPressClient(&cfg.WordPress, logger)
	orbExtractor := geometry.NewExtractor(cfg.Import.TargetSRID, logger)

	importers := map[domain.Provider]usecase.SourceImporter{
		domain.ProviderWP: usecase.NewWPImporter(
			wp, orbExtractor, c.Store, c.Media,
			cfg.WordPress.DefaultLocale, cfg.Import.FetchTimeout, logger,
		),
		domain.ProviderStorageCSV: usecase.NewCSVImporter(
			csvDisk, orbExtractor, c.Store, c.Media,
			cfg.Import.FetchTimeout, logger,
		),
	}

	if cfg.SICAIDB.Host != "" {
		sicaiDB, err := sicai.New(&cfg.SICAIDB, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect sicai: %w", err)
		}
		c.SICAIDB = sicaiDB
		c.closers = append(c.closers, sicaiDB.Close)

		// геометрия SICAI приходит как EWKB, трансформирует PostGIS целевой базы
		importers[domain.ProviderSICAI] = usecase.NewSICAIImporter(
			sicai.NewSourceRepository(sicaiDB),
			postgres.NewGeometryRepository(db, cfg.Import.TargetSRID),
			c.Store, c.Media,
			cfg.Media.SICAIBaseURL, cfg.Import.FetchTimeout, logger,
		)
	} else {
		logger.Warn("SICAI_DB_HOST is empty, SICAI provider disabled")
	}

	c.Imports = usecase.NewImportUseCase(importers, logger)
	c.Batch = usecase.NewBatchUseCase(c.Imports, c.Store, cfg.Import.BatchConcurrency, logger)
	c.Taxonomy = usecase.NewTaxonomyMappingUseCase(
		wp, csvDisk, mappingDisk,
		cfg.WordPress.DefaultLocale, cfg.Import.FetchTimeout, logger,
	)

	return c, nil
}

// NewTaxonomy строит только генератор маппинга таксономий: ему не нужны
// ни база фич, ни Redis, ни SICAI
func NewTaxonomy(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*usecase.TaxonomyMappingUseCase, error) {
	csvDisk, err := storage.NewDisk(ctx, "csv", cfg.Storage.CSV, logger)
	if err != nil {
		return nil, err
	}
	mappingDisk, err := storage.NewDisk(ctx, "mapping", cfg.Storage.Mapping, logger)
	if err != nil {
		return nil, err
	}
	return usecase.NewTaxonomyMappingUseCase(
		wordpress.NewWordPressClient(&cfg.WordPress, logger),
		csvDisk, mappingDisk,
		cfg.WordPress.DefaultLocale, cfg.Import.FetchTimeout, logger,
	), nil
}

// HealthCheckers возвращает проверки для /health
func (c *Container) HealthCheckers() map[string]httpDelivery.HealthChecker {
	checks := map[string]httpDelivery.HealthChecker{"postgres": c.DB}
	if c.SICAIDB != nil {
		checks["sicai"] = c.SICAIDB
	}
	if c.RedisClient != nil {
		checks["redis"] = redisHealth{c.RedisClient}
	}
	return checks
}

// Close закрывает подключения в обратном порядке
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Error("Failed to close connection", zap.Error(err))
		}
	}
	c.closers = nil
}

type redisHealth struct {
	client *goredis.Client
}

func (r redisHealth) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
