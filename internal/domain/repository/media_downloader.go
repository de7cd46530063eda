package repository

import "context"

// MediaDownloader скачивает бинарное содержимое изображения
type MediaDownloader interface {
	Download(ctx context.Context, rawURL string) ([]byte, error)
}
