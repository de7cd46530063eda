package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"go.uber.org/zap"
)

// FeatureStore - единственная точка записи out_source_features.
// Записи одного ключа выполняются строго по очереди, разные ключи не блокируют друг друга.
type FeatureStore struct {
	repo    repository.FeatureRepository
	locker  repository.KeyLocker
	lockTTL time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewFeatureStore создаёт хранилище. locker может быть nil,
// тогда запись сериализуется только внутри процесса.
func NewFeatureStore(
	repo repository.FeatureRepository,
	locker repository.KeyLocker,
	lockTTL time.Duration,
	logger *zap.Logger,
) *FeatureStore {
	return &FeatureStore{
		repo:    repo,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger,
		locks:   make(map[string]*keyLock),
	}
}

// Upsert полностью перезаписывает атрибуты фичи с ключом key
func (s *FeatureStore) Upsert(ctx context.Context, key domain.FeatureKey, params domain.FeatureParams) (int64, error) {
	unlock := s.lockLocal(key.String())
	defer unlock()

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, key.String(), s.lockTTL)
		if err != nil {
			return 0, err
		}
		defer release()
	}

	id, err := s.repo.Upsert(ctx, key.SourceID, key.Endpoint, params)
	if err != nil {
		s.logger.Error("Failed to upsert feature",
			zap.String("source_id", key.SourceID),
			zap.String("endpoint", key.Endpoint),
			zap.String("type", string(params.Type)),
			zap.Error(err))
		return 0, err
	}

	s.logger.Debug("Feature upserted",
		zap.String("source_id", key.SourceID),
		zap.String("endpoint", key.Endpoint),
		zap.Int64("feature_id", id))

	return id, nil
}

// ListSourceIDs возвращает уже импортированные id для endpoint
func (s *FeatureStore) ListSourceIDs(ctx context.Context, endpoint string, types ...domain.FeatureType) ([]string, error) {
	return s.repo.ListSourceIDs(ctx, endpoint, types...)
}

func (s *FeatureStore) lockLocal(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
