// Package geometry нормализует геометрию источников без обращения к PostGIS:
// разбор GeoJSON/WKT/EWKB, перепроекция в целевую SRID и склейка линий.
package geometry

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Поддерживаемые системы координат
const (
	SRIDWGS84    = 4326
	SRIDMercator = 3857
)

type extractor struct {
	targetSRID int
	logger     *zap.Logger
}

// NewExtractor создаёт экстрактор для источников, не живущих в PostGIS (WP, CSV)
func NewExtractor(targetSRID int, logger *zap.Logger) repository.GeometryExtractor {
	if targetSRID <= 0 {
		targetSRID = SRIDWGS84
	}
	return &extractor{
		targetSRID: targetSRID,
		logger:     logger,
	}
}

func (e *extractor) Extract(_ context.Context, raw domain.RawGeometry, mergeLines bool) (string, error) {
	g, srid, err := Decode(raw)
	if err != nil {
		return "", errors.ErrGeometryTransform.Wrap(err)
	}

	g, err = Reproject(g, srid, e.targetSRID)
	if err != nil {
		return "", errors.ErrGeometryTransform.Wrap(err)
	}

	if mergeLines {
		g = MergeLines(g)
	}

	if g == nil {
		return "", errors.ErrGeometryTransform.Wrap(fmt.Errorf("empty geometry"))
	}
	out := wkt.MarshalString(g)
	if strings.HasSuffix(out, "EMPTY") {
		return "", errors.ErrGeometryTransform.Wrap(fmt.Errorf("empty geometry"))
	}

	e.logger.Debug("Geometry extracted",
		zap.String("encoding", string(raw.Encoding)),
		zap.Int("source_srid", srid),
		zap.String("type", g.GeoJSONType()))

	return out, nil
}

// Decode разбирает геометрию и возвращает её SRID (по умолчанию 4326)
func Decode(raw domain.RawGeometry) (orb.Geometry, int, error) {
	if raw.Data == "" {
		return nil, 0, fmt.Errorf("missing source geometry")
	}

	srid := raw.SRID
	if srid <= 0 {
		srid = SRIDWGS84
	}

	switch raw.Encoding {
	case domain.GeometryWKT:
		g, err := wkt.Unmarshal(raw.Data)
		if err != nil {
			return nil, 0, fmt.Errorf("parse wkt: %w", err)
		}
		return g, srid, nil

	case domain.GeometryGeoJSON:
		g, err := decodeGeoJSON(raw.Data)
		if err != nil {
			return nil, 0, err
		}
		return g, srid, nil

	case domain.GeometryEWKBHex:
		data, err := hex.DecodeString(raw.Data)
		if err != nil {
			return nil, 0, fmt.Errorf("decode ewkb hex: %w", err)
		}
		g, embedded, err := ewkb.Unmarshal(data)
		if err != nil {
			return nil, 0, fmt.Errorf("parse ewkb: %w", err)
		}
		if raw.SRID <= 0 && embedded > 0 {
			srid = embedded
		}
		return g, srid, nil

	default:
		return nil, 0, fmt.Errorf("unsupported geometry encoding %q", raw.Encoding)
	}
}

// decodeGeoJSON принимает голую геометрию, Feature или FeatureCollection
// (из коллекции берётся первая фича)
func decodeGeoJSON(data string) (orb.Geometry, error) {
	if !gjson.Valid(data) {
		return nil, fmt.Errorf("invalid geojson")
	}

	switch gjson.Get(data, "type").String() {
	case "Feature":
		f, err := geojson.UnmarshalFeature([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("parse geojson feature: %w", err)
		}
		return f.Geometry, nil
	case "FeatureCollection":
		first := gjson.Get(data, "features.0")
		if !first.Exists() {
			return nil, fmt.Errorf("empty feature collection")
		}
		return decodeGeoJSON(first.Raw)
	default:
		g, err := geojson.UnmarshalGeometry([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("parse geojson geometry: %w", err)
		}
		return g.Geometry(), nil
	}
}

// Reproject переводит геометрию между 4326 и 3857
func Reproject(g orb.Geometry, from, to int) (orb.Geometry, error) {
	if from == to {
		return g, nil
	}

	switch {
	case from == SRIDMercator && to == SRIDWGS84:
		return project.Geometry(orb.Clone(g), project.Mercator.ToWGS84), nil
	case from == SRIDWGS84 && to == SRIDMercator:
		return project.Geometry(orb.Clone(g), project.WGS84.ToMercator), nil
	default:
		return nil, fmt.Errorf("unsupported transform %d -> %d", from, to)
	}
}
