package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"go.uber.org/zap"
)

// MediaRequest описывает одно изображение, привязанное к фиче-владельцу
type MediaRequest struct {
	// Reference - путь или имя файла в источнике, от него строится имя в хранилище
	Reference string
	// URL - откуда скачивать
	URL string
	// SourceID - ключ media фичи (id владельца + суффикс слота, либо id медиа в источнике)
	SourceID string
	Endpoint string
	Provider domain.Provider
	// Geometry - геометрия владельца: у медиа нет собственной локации
	Geometry string
	Name     domain.LocaleText
}

// MediaUseCase скачивает медиа, сохраняет на диск и создаёт media фичу
type MediaUseCase struct {
	store      *FeatureStore
	disk       repository.BlobStorage
	downloader repository.MediaDownloader
	timeout    time.Duration
	logger     *zap.Logger
}

func NewMediaUseCase(
	store *FeatureStore,
	disk repository.BlobStorage,
	downloader repository.MediaDownloader,
	timeout time.Duration,
	logger *zap.Logger,
) *MediaUseCase {
	return &MediaUseCase{
		store:      store,
		disk:       disk,
		downloader: downloader,
		timeout:    timeout,
		logger:     logger,
	}
}

// FetchAndStore возвращает id созданной media фичи.
// Ошибка означает, что ссылку на медиа ставить не нужно.
func (uc *MediaUseCase) FetchAndStore(ctx context.Context, req MediaRequest) (int64, error) {
	logger := uc.logger.With(
		zap.String("source_id", req.SourceID),
		zap.String("endpoint", req.Endpoint),
		zap.String("reference", req.Reference))

	if strings.TrimSpace(req.Reference) == "" || strings.TrimSpace(req.URL) == "" {
		return 0, errors.ErrMediaFetch.Wrap(fmt.Errorf("empty media reference"))
	}

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	logger.Info("Fetching media", zap.String("url", req.URL))

	data, err := uc.downloader.Download(ctx, req.URL)
	if err != nil {
		return 0, err
	}

	name := StorageName(req.Reference)
	if err := uc.disk.Put(ctx, name, data); err != nil {
		return 0, err
	}

	ok, err := uc.disk.Exists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.ErrStorageError.Wrap(fmt.Errorf("media %s missing after write", name))
	}

	tags := NewTagBuilder()
	for _, locale := range req.Name.Locales() {
		tags.Name(locale, req.Name[locale])
	}
	tags.URL(name)

	raw, err := json.Marshal(map[string]string{
		"reference": req.Reference,
		"url":       req.URL,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal media raw data: %w", err)
	}

	id, err := uc.store.Upsert(ctx, domain.FeatureKey{SourceID: req.SourceID, Endpoint: req.Endpoint}, domain.FeatureParams{
		Type:     domain.FeatureTypeMedia,
		Provider: req.Provider,
		Geometry: req.Geometry,
		RawData:  raw,
		Tags:     tags.Build(),
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Media stored",
		zap.String("name", name),
		zap.Int64("feature_id", id))

	return id, nil
}

// StorageName - sha1 от имени файла без расширения плюс исходное расширение
func StorageName(reference string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(reference), "\\", "/"))
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	sum := sha1.Sum([]byte(stem))
	name := hex.EncodeToString(sum[:])
	if ext != "" {
		name += ext
	}
	return name
}
