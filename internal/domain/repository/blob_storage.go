package repository

import "context"

// BlobStorage - диск для медиа, CSV и файлов маппинга
type BlobStorage interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
}
