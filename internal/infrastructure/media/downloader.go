// Package media скачивает изображения источников по HTTP.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"go.uber.org/zap"
)

type downloader struct {
	httpClient *http.Client
	maxBytes   int64
	logger     *zap.Logger
}

// NewDownloader создаёт загрузчик медиа.
// maxBytes <= 0 снимает ограничение на размер.
func NewDownloader(timeout time.Duration, maxBytes int64, logger *zap.Logger) repository.MediaDownloader {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &downloader{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

func (d *downloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.ErrMediaFetch.Wrap(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Warn("Media download failed",
			zap.String("url", rawURL),
			zap.Error(err))
		return nil, errors.ErrMediaFetch.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.ErrMediaFetch.Wrap(fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode))
	}

	var body io.Reader = resp.Body
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.ErrMediaFetch.Wrap(fmt.Errorf("read %s: %w", rawURL, err))
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, errors.ErrMediaFetch.Wrap(fmt.Errorf("%s exceeds %d bytes", rawURL, d.maxBytes))
	}
	if len(data) == 0 {
		return nil, errors.ErrMediaFetch.Wrap(fmt.Errorf("%s: empty body", rawURL))
	}

	d.logger.Debug("Media downloaded",
		zap.String("url", rawURL),
		zap.Int("size", len(data)))

	return data, nil
}
