package repository

import (
	"context"
	"encoding/json"

	"github.com/outsource-importer/internal/domain"
)

// SourceRow - одна сырая запись внешней БД
type SourceRow struct {
	Record   domain.SourceRecord
	Raw      json.RawMessage
	Geometry domain.RawGeometry
}

// SICAIRepository - доступ к PostGIS базе Sentiero Italia CAI
type SICAIRepository interface {
	// GetTrack возвращает tappa по id_2
	GetTrack(ctx context.Context, sourceID string) (*SourceRow, error)

	// GetPoi возвращает точку accoglienza по id_0
	GetPoi(ctx context.Context, sourceID string) (*SourceRow, error)

	// ListIDs возвращает все идентификаторы записей заданного типа
	ListIDs(ctx context.Context, featureType domain.FeatureType) ([]string, error)
}
