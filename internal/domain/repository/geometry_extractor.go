package repository

import (
	"context"

	"github.com/outsource-importer/internal/domain"
)

// GeometryExtractor переводит геометрию источника в WKT целевой системы координат.
// mergeLines склеивает мультилинию в одну непрерывную линию (треки).
type GeometryExtractor interface {
	Extract(ctx context.Context, raw domain.RawGeometry, mergeLines bool) (string, error)
}
