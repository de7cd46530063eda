package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"go.uber.org/zap"
)

type geometryRepository struct {
	db         *sqlx.DB
	logger     *zap.Logger
	targetSRID int
}

// NewGeometryRepository создаёт экстрактор геометрии на функциях PostGIS
// (ST_Transform, ST_LineMerge, ST_AsText)
func NewGeometryRepository(db *DB, targetSRID int) repository.GeometryExtractor {
	return &geometryRepository{
		db:         db.DB,
		logger:     db.logger,
		targetSRID: targetSRID,
	}
}

// Extract возвращает WKT в целевой SRID. Если после ST_LineMerge линия остаётся
// MULTILINESTRING (части не соприкасаются), точки склеиваются в одну линию по порядку.
func (r *geometryRepository) Extract(ctx context.Context, raw domain.RawGeometry, mergeLines bool) (string, error) {
	input, args, err := geometryInput(raw)
	if err != nil {
		return "", errors.ErrGeometryTransform.Wrap(err)
	}
	args = append(args, r.targetSRID)
	sridArg := len(args)

	var query string
	if mergeLines {
		query = fmt.Sprintf(`
			WITH g AS (
				SELECT ST_LineMerge(ST_Transform(%s, $%d)) AS geom
			)
			SELECT CASE
				WHEN GeometryType(geom) = 'MULTILINESTRING'
					THEN ST_AsText(ST_MakeLine(ARRAY(SELECT (ST_DumpPoints(geom)).geom)))
				ELSE ST_AsText(geom)
			END
			FROM g
		`, input, sridArg)
	} else {
		query = fmt.Sprintf(`SELECT ST_AsText(ST_Transform(%s, $%d))`, input, sridArg)
	}

	var wkt *string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&wkt); err != nil {
		r.logger.Error("Failed to extract geometry",
			zap.String("encoding", string(raw.Encoding)),
			zap.Int("srid", raw.SRID),
			zap.Error(err))
		return "", errors.ErrGeometryTransform.Wrap(err)
	}
	if wkt == nil || *wkt == "" {
		return "", errors.ErrGeometryTransform.Wrap(fmt.Errorf("empty geometry"))
	}

	return *wkt, nil
}

// geometryInput строит SQL выражение геометрии для нужной кодировки
func geometryInput(raw domain.RawGeometry) (string, []interface{}, error) {
	if raw.Data == "" {
		return "", nil, fmt.Errorf("missing source geometry")
	}

	switch raw.Encoding {
	case domain.GeometryEWKBHex:
		// SRID берётся из самого EWKB, если задан явно - перекрывает его
		if raw.SRID > 0 {
			return "ST_SetSRID($1::geometry, $2)", []interface{}{raw.Data, raw.SRID}, nil
		}
		return "$1::geometry", []interface{}{raw.Data}, nil
	case domain.GeometryWKT:
		return "ST_GeomFromText($1, $2)", []interface{}{raw.Data, sridOrDefault(raw.SRID)}, nil
	case domain.GeometryGeoJSON:
		return "ST_SetSRID(ST_GeomFromGeoJSON($1), $2)", []interface{}{raw.Data, sridOrDefault(raw.SRID)}, nil
	default:
		return "", nil, fmt.Errorf("unsupported geometry encoding %q", raw.Encoding)
	}
}

func sridOrDefault(srid int) int {
	if srid <= 0 {
		return 4326
	}
	return srid
}
