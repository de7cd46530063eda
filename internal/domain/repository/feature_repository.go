package repository

import (
	"context"

	"github.com/outsource-importer/internal/domain"
)

// FeatureRepository определяет хранилище канонических фич
type FeatureRepository interface {
	// Upsert создаёт или полностью перезаписывает фичу по ключу (sourceID, endpoint)
	Upsert(ctx context.Context, sourceID, endpoint string, params domain.FeatureParams) (int64, error)

	// GetByKey возвращает фичу по натуральному ключу
	GetByKey(ctx context.Context, sourceID, endpoint string) (*domain.OutSourceFeature, error)

	// GetByID возвращает фичу по каноническому ID
	GetByID(ctx context.Context, id int64) (*domain.OutSourceFeature, error)

	// ListSourceIDs возвращает source_id уже импортированных фич endpoint (опционально по типам)
	ListSourceIDs(ctx context.Context, endpoint string, types ...domain.FeatureType) ([]string, error)
}
