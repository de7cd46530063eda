package usecase

import (
	"context"
	"fmt"

	"github.com/outsource-importer/internal/domain"
	"go.uber.org/zap"
)

// SourceImporter - вариант импортёра для одного провайдера
type SourceImporter interface {
	ImportTrack(ctx context.Context, job domain.ImportJob) (int64, error)
	ImportPoi(ctx context.Context, job domain.ImportJob) (int64, error)
	ImportMedia(ctx context.Context, job domain.ImportJob) (int64, error)

	// ListSourceIDs возвращает id всех записей типа в источнике
	ListSourceIDs(ctx context.Context, endpoint string, featureType domain.FeatureType) ([]string, error)
}

// ImportError - неудачный импорт одной записи
type ImportError struct {
	SourceID string
	Endpoint string
	Type     domain.FeatureType
	Err      error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s %s from %s: %v", e.Type, e.SourceID, e.Endpoint, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// mediaSlot - ссылка на изображение, найденная нормализатором
type mediaSlot struct {
	Reference string
	// Suffix дописывается к id владельца в ключе media фичи
	Suffix  string
	Primary bool
}

// attachMedia создаёт media фичи по слотам и проставляет ссылки в теги.
// Сбой отдельного медиа не прерывает импорт владельца.
func attachMedia(
	ctx context.Context,
	media *MediaUseCase,
	tags *TagBuilder,
	slots []mediaSlot,
	build func(slot mediaSlot) MediaRequest,
) {
	for _, slot := range slots {
		req := build(slot)
		id, err := media.FetchAndStore(ctx, req)
		if err != nil {
			media.logger.Warn("Media import failed, tag left unset",
				zap.String("source_id", req.SourceID),
				zap.String("endpoint", req.Endpoint),
				zap.String("reference", slot.Reference),
				zap.Error(err))
			continue
		}
		if slot.Primary {
			tags.FeatureImage(id)
		} else {
			tags.AppendGallery(id)
		}
	}
}
