package usecase

import (
	"context"
	"sync"

	"github.com/outsource-importer/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchRequest - импорт набора записей одного endpoint
type BatchRequest struct {
	Type      domain.FeatureType
	Endpoint  string
	Provider  domain.Provider
	SourceIDs []string
}

// BatchResult - итог пакетного импорта. Ошибка одной записи не прерывает пакет.
type BatchResult struct {
	Imported map[string]int64
	Failed   []*ImportError
}

// FailedIDs возвращает source_id неудачных импортов
func (r *BatchResult) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		ids = append(ids, f.SourceID)
	}
	return ids
}

// BatchUseCase запускает импорты параллельно с ограничением concurrency
type BatchUseCase struct {
	imports     ImportUseCase
	store       *FeatureStore
	concurrency int
	logger      *zap.Logger
}

func NewBatchUseCase(imports ImportUseCase, store *FeatureStore, concurrency int, logger *zap.Logger) *BatchUseCase {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchUseCase{
		imports:     imports,
		store:       store,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ImportMany импортирует перечисленные id. Возвращает ошибку только при отмене контекста.
func (uc *BatchUseCase) ImportMany(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	result := &BatchResult{Imported: make(map[string]int64, len(req.SourceIDs))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)

	for _, sourceID := range req.SourceIDs {
		job := domain.ImportJob{
			Type:     req.Type,
			Endpoint: req.Endpoint,
			Provider: req.Provider,
			SourceID: sourceID,
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			id, err := uc.imports.Import(gctx, job)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, asImportError(job, err))
				return nil
			}
			result.Imported[job.SourceID] = id
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	uc.logger.Info("Batch import finished",
		zap.String("endpoint", req.Endpoint),
		zap.String("type", string(req.Type)),
		zap.Int("imported", len(result.Imported)),
		zap.Int("failed", len(result.Failed)))

	return result, nil
}

// ImportAll импортирует все записи типа, которые есть в источнике
func (uc *BatchUseCase) ImportAll(
	ctx context.Context,
	provider domain.Provider,
	endpoint string,
	featureType domain.FeatureType,
) (*BatchResult, error) {
	ids, err := uc.imports.ListSourceIDs(ctx, provider, endpoint, featureType)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Importing all source records",
		zap.String("endpoint", endpoint),
		zap.String("type", string(featureType)),
		zap.Int("count", len(ids)))

	return uc.ImportMany(ctx, BatchRequest{
		Type:      featureType,
		Endpoint:  endpoint,
		Provider:  provider,
		SourceIDs: ids,
	})
}

// Reimport повторяет импорт уже сохранённых фич endpoint
func (uc *BatchUseCase) Reimport(
	ctx context.Context,
	provider domain.Provider,
	endpoint string,
	featureType domain.FeatureType,
) (*BatchResult, error) {
	ids, err := uc.store.ListSourceIDs(ctx, endpoint, featureType)
	if err != nil {
		return nil, err
	}

	return uc.ImportMany(ctx, BatchRequest{
		Type:      featureType,
		Endpoint:  endpoint,
		Provider:  provider,
		SourceIDs: ids,
	})
}

func asImportError(job domain.ImportJob, err error) *ImportError {
	if ie, ok := err.(*ImportError); ok {
		return ie
	}
	return &ImportError{SourceID: job.SourceID, Endpoint: job.Endpoint, Type: job.Type, Err: err}
}
