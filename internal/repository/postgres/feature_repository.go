package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"go.uber.org/zap"
)

type featureRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	srid   int
}

// NewFeatureRepository создаёт хранилище out_source_features.
// srid - система координат, в которой приходит WKT геометрия.
func NewFeatureRepository(db *DB, srid int) repository.FeatureRepository {
	return &featureRepository{
		db:     db.DB,
		logger: db.logger,
		srid:   srid,
	}
}

type featureRow struct {
	ID        int64              `db:"id"`
	SourceID  string             `db:"source_id"`
	Endpoint  string             `db:"endpoint"`
	Type      domain.FeatureType `db:"type"`
	Provider  domain.Provider    `db:"provider"`
	Geometry  string             `db:"geometry"`
	RawData   []byte             `db:"raw_data"`
	Tags      domain.Tags        `db:"tags"`
	CreatedAt sql.NullTime       `db:"created_at"`
	UpdatedAt sql.NullTime       `db:"updated_at"`
}

func (r featureRow) toDomain() *domain.OutSourceFeature {
	f := &domain.OutSourceFeature{
		ID:        r.ID,
		SourceID:  r.SourceID,
		Endpoint:  r.Endpoint,
		Type:      r.Type,
		Provider:  r.Provider,
		Geometry:  r.Geometry,
		Tags:      r.Tags,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
	if len(r.RawData) > 0 {
		f.RawData = json.RawMessage(r.RawData)
	}
	return f
}

const selectFeatureColumns = `
	id, source_id, endpoint, type, provider,
	COALESCE(ST_AsText(geometry), '') AS geometry,
	raw_data::text AS raw_data,
	tags::text AS tags,
	created_at, updated_at
`

// Upsert - атомарный INSERT ... ON CONFLICT: все атрибуты перезаписываются целиком,
// одновременные записи одного ключа сериализуются блокировкой строки
func (r *featureRepository) Upsert(
	ctx context.Context,
	sourceID, endpoint string,
	params domain.FeatureParams,
) (int64, error) {
	query := `
		INSERT INTO out_source_features (
			source_id, endpoint, type, provider, geometry, raw_data, tags, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, ST_GeomFromText(NULLIF($5, ''), $6), $7::jsonb, $8::jsonb, NOW(), NOW()
		)
		ON CONFLICT (source_id, endpoint) DO UPDATE SET
			type       = EXCLUDED.type,
			provider   = EXCLUDED.provider,
			geometry   = EXCLUDED.geometry,
			raw_data   = EXCLUDED.raw_data,
			tags       = EXCLUDED.tags,
			updated_at = NOW()
		RETURNING id
	`

	tags, err := params.Tags.Value()
	if err != nil {
		return 0, errors.ErrDatabaseError.Wrap(err)
	}

	var rawData interface{}
	if len(params.RawData) > 0 {
		rawData = string(params.RawData)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, query,
		sourceID,
		endpoint,
		string(params.Type),
		string(params.Provider),
		params.Geometry,
		r.srid,
		rawData,
		string(tags.([]byte)),
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to upsert out source feature",
			zap.String("source_id", sourceID),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return 0, errors.ErrDatabaseError.Wrap(err)
	}

	r.logger.Debug("Out source feature upserted",
		zap.Int64("id", id),
		zap.String("source_id", sourceID),
		zap.String("endpoint", endpoint))

	return id, nil
}

func (r *featureRepository) GetByKey(ctx context.Context, sourceID, endpoint string) (*domain.OutSourceFeature, error) {
	query := `SELECT` + selectFeatureColumns + `FROM out_source_features WHERE source_id = $1 AND endpoint = $2`

	var row featureRow
	err := r.db.GetContext(ctx, &row, query, sourceID, endpoint)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrFeatureNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get out source feature by key",
			zap.String("source_id", sourceID),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return nil, errors.ErrDatabaseError.Wrap(err)
	}

	return row.toDomain(), nil
}

func (r *featureRepository) GetByID(ctx context.Context, id int64) (*domain.OutSourceFeature, error) {
	query := `SELECT` + selectFeatureColumns + `FROM out_source_features WHERE id = $1`

	var row featureRow
	err := r.db.GetContext(ctx, &row, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrFeatureNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get out source feature by ID", zap.Int64("id", id), zap.Error(err))
		return nil, errors.ErrDatabaseError.Wrap(err)
	}

	return row.toDomain(), nil
}

func (r *featureRepository) ListSourceIDs(
	ctx context.Context,
	endpoint string,
	types ...domain.FeatureType,
) ([]string, error) {
	query := `
		SELECT source_id
		FROM out_source_features
		WHERE endpoint = $1
	`
	args := []interface{}{endpoint}

	if len(types) > 0 {
		typeNames := make([]string, len(types))
		for i, t := range types {
			typeNames[i] = string(t)
		}
		query += " AND type = ANY($2)"
		args = append(args, pq.Array(typeNames))
	}
	query += " ORDER BY id"

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.Error("Failed to list source ids",
			zap.String("endpoint", endpoint),
			zap.Int("types", len(types)),
			zap.Error(err))
		return nil, errors.ErrDatabaseError.Wrap(err)
	}

	return ids, nil
}
