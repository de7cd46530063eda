package sicai

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"go.uber.org/zap"
)

type sourceRow struct {
	Raw  []byte         `db:"raw"`
	Geom sql.NullString `db:"geom"`
}

type sourceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSourceRepository создаёт репозиторий чтения записей SICAI
func NewSourceRepository(db *DB) repository.SICAIRepository {
	return &sourceRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

func (r *sourceRepository) GetTrack(ctx context.Context, sourceID string) (*repository.SourceRow, error) {
	return r.getRow(ctx, trackTable, trackIDColumn, sourceID)
}

func (r *sourceRepository) GetPoi(ctx context.Context, sourceID string) (*repository.SourceRow, error) {
	return r.getRow(ctx, poiTable, poiIDColumn, sourceID)
}

// ListIDs возвращает идентификаторы в порядке возрастания
func (r *sourceRepository) ListIDs(ctx context.Context, featureType domain.FeatureType) ([]string, error) {
	table, idColumn, err := tableFor(featureType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %[2]s::text FROM %[1]s WHERE %[2]s IS NOT NULL ORDER BY %[2]s`, table, idColumn)

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		r.logger.Error("Failed to list sicai ids",
			zap.String("type", string(featureType)),
			zap.Error(err))
		return nil, errors.ErrSourceFetch.Wrap(err)
	}

	return ids, nil
}

func (r *sourceRepository) getRow(ctx context.Context, table, idColumn, sourceID string) (*repository.SourceRow, error) {
	query := fmt.Sprintf(`
		SELECT
			(to_jsonb(t) - '%[3]s')::text AS raw,
			encode(ST_AsEWKB(t.%[3]s), 'hex') AS geom
		FROM %[1]s t
		WHERE t.%[2]s::text = $1
		LIMIT 1
	`, table, idColumn, geomColumn)

	var row sourceRow
	err := r.db.GetContext(ctx, &row, query, sourceID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrSourceNotFound.WithDetails(map[string]interface{}{
			"table":     table,
			"source_id": sourceID,
		})
	}
	if err != nil {
		r.logger.Error("Failed to read sicai record",
			zap.String("table", table),
			zap.String("source_id", sourceID),
			zap.Error(err))
		return nil, errors.ErrSourceFetch.Wrap(err)
	}

	record, err := decodeRecord(row.Raw)
	if err != nil {
		return nil, errors.ErrSourceFetch.Wrap(err)
	}

	return &repository.SourceRow{
		Record: record,
		Raw:    json.RawMessage(row.Raw),
		Geometry: domain.RawGeometry{
			Encoding: domain.GeometryEWKBHex,
			Data:     row.Geom.String,
		},
	}, nil
}

// decodeRecord сохраняет числа как json.Number, чтобы id не превращались в 6.0
func decodeRecord(raw []byte) (domain.SourceRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	record := domain.SourceRecord{}
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode sicai record: %w", err)
	}
	return record, nil
}

func tableFor(featureType domain.FeatureType) (string, string, error) {
	switch featureType {
	case domain.FeatureTypeTrack:
		return trackTable, trackIDColumn, nil
	case domain.FeatureTypePOI:
		return poiTable, poiIDColumn, nil
	default:
		return "", "", errors.ErrUnsupportedType.WithDetails(map[string]interface{}{
			"provider": string(domain.ProviderSICAI),
			"type":     string(featureType),
		})
	}
}
