package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type localDisk struct {
	fs     afero.Fs
	logger *zap.Logger
}

// NewLocalDisk создаёт диск, ограниченный каталогом root внутри fs
func NewLocalDisk(fs afero.Fs, root string, logger *zap.Logger) (repository.BlobStorage, error) {
	if root != "" {
		if err := fs.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create disk root %s: %w", root, err)
		}
		fs = afero.NewBasePathFs(fs, root)
	}

	logger.Info("Local disk initialized", zap.String("root", root))

	return &localDisk{
		fs:     fs,
		logger: logger,
	}, nil
}

func (d *localDisk) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := cleanName(name)
	if err != nil {
		return errors.ErrStorageError.Wrap(err)
	}

	if dir := filepath.Dir(name); dir != "." {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.ErrStorageError.Wrap(fmt.Errorf("create dir %s: %w", dir, err))
		}
	}

	if err := afero.WriteFile(d.fs, name, data, 0o644); err != nil {
		d.logger.Error("Failed to write object",
			zap.String("name", name),
			zap.Error(err))
		return errors.ErrStorageError.Wrap(err)
	}

	d.logger.Debug("Object written",
		zap.String("name", name),
		zap.Int("size", len(data)))
	return nil
}

func (d *localDisk) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, errors.ErrStorageError.Wrap(err)
	}

	data, err := afero.ReadFile(d.fs, name)
	if os.IsNotExist(err) {
		return nil, errors.ErrObjectNotFound.WithDetails(map[string]interface{}{"name": name})
	}
	if err != nil {
		return nil, errors.ErrStorageError.Wrap(err)
	}
	return data, nil
}

func (d *localDisk) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name, err := cleanName(name)
	if err != nil {
		return false, errors.ErrStorageError.Wrap(err)
	}

	ok, err := afero.Exists(d.fs, name)
	if err != nil {
		return false, errors.ErrStorageError.Wrap(err)
	}
	return ok, nil
}
