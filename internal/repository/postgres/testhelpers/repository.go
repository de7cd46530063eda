package testhelpers

import (
	"github.com/jmoiron/sqlx"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/repository/postgres"
	"go.uber.org/zap"
)

// NewDBForTest creates a postgres.DB with test database and logger
func NewDBForTest(db *sqlx.DB, logger *zap.Logger) *postgres.DB {
	return postgres.NewDBForTest(db, logger)
}

// NewFeatureRepositoryForTest creates an out source feature repository with test database and logger
func NewFeatureRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.FeatureRepository {
	pgDB := NewDBForTest(db, logger)
	return postgres.NewFeatureRepository(pgDB, 4326)
}

// NewGeometryRepositoryForTest creates a PostGIS geometry extractor with test database and logger
func NewGeometryRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.GeometryExtractor {
	pgDB := NewDBForTest(db, logger)
	return postgres.NewGeometryRepository(pgDB, 4326)
}
