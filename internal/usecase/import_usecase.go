package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/pkg/errors"
	applog "github.com/outsource-importer/internal/pkg/logger"
	"go.uber.org/zap"
)

// ImportUseCase выбирает вариант импортёра по провайдеру и выполняет один импорт
type ImportUseCase interface {
	Import(ctx context.Context, job domain.ImportJob) (int64, error)
	ListSourceIDs(ctx context.Context, provider domain.Provider, endpoint string, featureType domain.FeatureType) ([]string, error)
}

type importUseCase struct {
	importers map[domain.Provider]SourceImporter
	logger    *zap.Logger
}

// NewImportUseCase создаёт диспетчер. Провайдер без импортёра даёт ErrUnsupportedProvider.
func NewImportUseCase(importers map[domain.Provider]SourceImporter, logger *zap.Logger) ImportUseCase {
	return &importUseCase{
		importers: importers,
		logger:    logger,
	}
}

// Import возвращает id канонической фичи или *ImportError.
// Частично записанной фичи при ошибке не остаётся: upsert - последний шаг.
func (uc *importUseCase) Import(ctx context.Context, job domain.ImportJob) (id int64, err error) {
	start := time.Now()
	logger := applog.ForJob(uc.logger, job)

	defer func() {
		if r := recover(); r != nil {
			id = 0
			err = errors.ErrTagNormalization.Wrap(fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			logger.Error("Import failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			err = &ImportError{SourceID: job.SourceID, Endpoint: job.Endpoint, Type: job.Type, Err: err}
			return
		}
		logger.Info("Import completed", zap.Int64("feature_id", id), zap.Duration("duration", time.Since(start)))
	}()

	if job.SourceID == "" || job.Endpoint == "" {
		return 0, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": "source_id and endpoint are required",
		})
	}

	importer, err := uc.importer(job.Provider)
	if err != nil {
		return 0, err
	}

	switch job.Type {
	case domain.FeatureTypeTrack:
		return importer.ImportTrack(ctx, job)
	case domain.FeatureTypePOI:
		return importer.ImportPoi(ctx, job)
	case domain.FeatureTypeMedia:
		return importer.ImportMedia(ctx, job)
	default:
		return 0, errors.ErrUnsupportedType.WithDetails(map[string]interface{}{
			"type": string(job.Type),
		})
	}
}

func (uc *importUseCase) ListSourceIDs(
	ctx context.Context,
	provider domain.Provider,
	endpoint string,
	featureType domain.FeatureType,
) ([]string, error) {
	importer, err := uc.importer(provider)
	if err != nil {
		return nil, err
	}
	return importer.ListSourceIDs(ctx, endpoint, featureType)
}

func (uc *importUseCase) importer(provider domain.Provider) (SourceImporter, error) {
	importer, ok := uc.importers[provider]
	if !ok {
		return nil, errors.ErrUnsupportedProvider.WithDetails(map[string]interface{}{
			"provider": string(provider),
		})
	}
	return importer, nil
}
