// Package storage реализует blob-диски импортёра: локальную ФС через afero
// и Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/outsource-importer/internal/config"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Драйверы дисков
const (
	DriverLocal  = "local"
	DriverGCS    = "gcs"
	DriverMemory = "memory"
)

// NewDisk создаёт диск по конфигурации
func NewDisk(ctx context.Context, name string, cfg config.DiskConfig, logger *zap.Logger) (repository.BlobStorage, error) {
	logger = logger.With(zap.String("disk", name))

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverLocal, "":
		return NewLocalDisk(afero.NewOsFs(), cfg.Root, logger)
	case DriverMemory:
		return NewLocalDisk(afero.NewMemMapFs(), cfg.Root, logger)
	case DriverGCS:
		return NewGCSDisk(ctx, cfg.Bucket, cfg.Prefix, logger)
	default:
		return nil, fmt.Errorf("unknown disk driver %q for disk %s", cfg.Driver, name)
	}
}

// cleanName не даёт имени выйти за пределы корня диска
func cleanName(name string) (string, error) {
	cleaned := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(name)), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty object name %q", name)
	}
	return cleaned, nil
}
