package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/outsource-importer/internal/domain"
)

// New создаёт логгер процесса; service попадает в каждую запись
func New(level, service string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]interface{}{"service": service},
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if zapLevel == zapcore.DebugLevel {
		config.Development = true
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return config.Build()
}

// JobFields - поля, которыми помечается каждый шаг импорта
func JobFields(job domain.ImportJob) []zap.Field {
	return []zap.Field{
		zap.String("source_id", job.SourceID),
		zap.String("endpoint", job.Endpoint),
		zap.String("type", string(job.Type)),
		zap.String("provider", string(job.Provider)),
	}
}

// ForJob возвращает дочерний логгер с полями задания
func ForJob(l *zap.Logger, job domain.ImportJob) *zap.Logger {
	return l.With(JobFields(job)...)
}
