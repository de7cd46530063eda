package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const gcsWriteTimeout = 2 * time.Minute

type gcsDisk struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewGCSDisk создаёт диск поверх GCS bucket.
// Учётные данные берутся из окружения (ADC).
func NewGCSDisk(ctx context.Context, bucket, prefix string, logger *zap.Logger, opts ...option.ClientOption) (repository.BlobStorage, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs disk requires a bucket name")
	}

	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	logger.Info("GCS disk initialized",
		zap.String("bucket", bucket),
		zap.String("prefix", prefix))

	return &gcsDisk{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}, nil
}

func (d *gcsDisk) key(name string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if d.prefix == "" {
		return name, nil
	}
	return d.prefix + "/" + name, nil
}

func (d *gcsDisk) Put(ctx context.Context, name string, data []byte) error {
	key, err := d.key(name)
	if err != nil {
		return errors.ErrStorageError.Wrap(err)
	}

	ctx, cancel := context.WithTimeout(ctx, gcsWriteTimeout)
	defer cancel()

	w := d.client.Bucket(d.bucket).Object(key).NewWriter(ctx)
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return errors.ErrStorageError.Wrap(fmt.Errorf("failed to write data to GCS: %w", err))
	}
	if err := w.Close(); err != nil {
		d.logger.Error("Failed to close GCS writer",
			zap.String("key", key),
			zap.Error(err))
		return errors.ErrStorageError.Wrap(fmt.Errorf("failed to close GCS writer: %w", err))
	}

	d.logger.Debug("Object uploaded",
		zap.String("bucket", d.bucket),
		zap.String("key", key),
		zap.Int("size", len(data)))
	return nil
}

func (d *gcsDisk) Get(ctx context.Context, name string) ([]byte, error) {
	key, err := d.key(name)
	if err != nil {
		return nil, errors.ErrStorageError.Wrap(err)
	}

	r, err := d.client.Bucket(d.bucket).Object(key).NewReader(ctx)
	if stderrors.Is(err, storage.ErrObjectNotExist) {
		return nil, errors.ErrObjectNotFound.WithDetails(map[string]interface{}{"name": key})
	}
	if err != nil {
		return nil, errors.ErrStorageError.Wrap(fmt.Errorf("failed to open GCS reader: %w", err))
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.ErrStorageError.Wrap(fmt.Errorf("failed to read GCS object: %w", err))
	}
	return data, nil
}

func (d *gcsDisk) Exists(ctx context.Context, name string) (bool, error) {
	key, err := d.key(name)
	if err != nil {
		return false, errors.ErrStorageError.Wrap(err)
	}

	_, err = d.client.Bucket(d.bucket).Object(key).Attrs(ctx)
	if stderrors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.ErrStorageError.Wrap(err)
	}
	return true, nil
}
