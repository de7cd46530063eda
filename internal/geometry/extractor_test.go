package geometry

import (
	"context"
	"encoding/hex"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/pkg/errors"
)

func TestExtract_WKTPassThrough(t *testing.T) {
	e := NewExtractor(4326, zap.NewNop())

	out, err := e.Extract(context.Background(), domain.RawGeometry{
		Encoding: domain.GeometryWKT,
		Data:     "POINT(10.5 45.25)",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "POINT(10.5 45.25)", out)
}

func TestExtract_GeoJSONFeatureMergesLines(t *testing.T) {
	e := NewExtractor(4326, zap.NewNop())

	data := `{"type":"Feature","properties":{},"geometry":{"type":"MultiLineString","coordinates":[[[10,45],[11,46]],[[11,46],[12,47]]]}}`
	out, err := e.Extract(context.Background(), domain.RawGeometry{
		Encoding: domain.GeometryGeoJSON,
		Data:     data,
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "LINESTRING(10 45,11 46,12 47)", out)
}

func TestExtract_FeatureCollectionUsesFirstFeature(t *testing.T) {
	e := NewExtractor(4326, zap.NewNop())

	data := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[9,44]}}]}`
	out, err := e.Extract(context.Background(), domain.RawGeometry{
		Encoding: domain.GeometryGeoJSON,
		Data:     data,
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "POINT(9 44)", out)
}

func TestExtract_EWKBMercatorToWGS84(t *testing.T) {
	e := NewExtractor(4326, zap.NewNop())

	merc := orb.Point{1113194.9079327357, 5621521.486192066} // ~ (10, 45)
	data, err := ewkb.Marshal(merc, 3857)
	require.NoError(t, err)

	out, err := e.Extract(context.Background(), domain.RawGeometry{
		Encoding: domain.GeometryEWKBHex,
		Data:     hex.EncodeToString(data),
	}, false)
	require.NoError(t, err)

	g, srid, err := Decode(domain.RawGeometry{Encoding: domain.GeometryWKT, Data: out})
	require.NoError(t, err)
	assert.Equal(t, 4326, srid)
	p := g.(orb.Point)
	assert.InDelta(t, 10.0, p.Lon(), 1e-6)
	assert.InDelta(t, 45.0, p.Lat(), 1e-6)
}

func TestExtract_Errors(t *testing.T) {
	e := NewExtractor(4326, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name string
		raw  domain.RawGeometry
	}{
		{"missing data", domain.RawGeometry{Encoding: domain.GeometryWKT}},
		{"bad wkt", domain.RawGeometry{Encoding: domain.GeometryWKT, Data: "POINT(abc"}},
		{"bad geojson", domain.RawGeometry{Encoding: domain.GeometryGeoJSON, Data: "{"}},
		{"bad hex", domain.RawGeometry{Encoding: domain.GeometryEWKBHex, Data: "zz"}},
		{"unknown srid", domain.RawGeometry{Encoding: domain.GeometryWKT, Data: "POINT(1 2)", SRID: 32632}},
		{"unknown encoding", domain.RawGeometry{Encoding: "kml", Data: "<Point/>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(ctx, tt.raw, false)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrGeometryTransform))
		})
	}
}

func TestReproject_RoundTrip(t *testing.T) {
	in := orb.LineString{{10, 45}, {10.1, 45.1}}

	merc, err := Reproject(in, 4326, 3857)
	require.NoError(t, err)
	back, err := Reproject(merc, 3857, 4326)
	require.NoError(t, err)

	ls := back.(orb.LineString)
	for i := range in {
		assert.InDelta(t, in[i][0], ls[i][0], 1e-9)
		assert.InDelta(t, in[i][1], ls[i][1], 1e-9)
	}
	// input is not modified
	assert.Equal(t, 10.0, in[0][0])
	assert.False(t, math.IsNaN(merc.(orb.LineString)[0][0]))
}
