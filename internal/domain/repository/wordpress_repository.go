package repository

import (
	"context"
	"encoding/json"
)

// WordPressRepository - чтение WordPress REST API (/wp-json/wp/v2)
type WordPressRepository interface {
	// GetRecord возвращает один объект ресурса, например track/6 или media/12
	GetRecord(ctx context.Context, endpoint, resource, id string) (json.RawMessage, error)

	// GetURL возвращает JSON по абсолютному URL (ссылки source у переводов терминов)
	GetURL(ctx context.Context, rawURL string) (json.RawMessage, error)

	// ListCollection обходит все страницы коллекции ресурса
	ListCollection(ctx context.Context, endpoint, resource string) ([]json.RawMessage, error)
}
