package sicai

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/outsource-importer/internal/config"
	"github.com/outsource-importer/internal/repository/postgres"
	"go.uber.org/zap"
)

// DB - подключение к PostGIS базе Sentiero Italia CAI (только чтение)
type DB struct {
	*sqlx.DB
	logger *zap.Logger
}

// New создает подключение к базе SICAI
func New(cfg *config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := postgres.Open(cfg, "sicai", logger)
	if err != nil {
		return nil, err
	}
	return &DB{DB: db, logger: logger}, nil
}

// Close закрывает соединение с БД
func (db *DB) Close() error {
	db.logger.Info("Closing SICAI PostgreSQL connection")
	return db.DB.Close()
}

// Health выполняет health-check соединения
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// NewDBForTest создает экземпляр DB для тестов
func NewDBForTest(sqlxDB *sqlx.DB, logger *zap.Logger) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{
		DB:     sqlxDB,
		logger: logger,
	}
}
