package repository

import (
	"context"
	"time"
)

// KeyLocker сериализует запись одного ключа.
// Возвращаемая функция освобождает блокировку.
type KeyLocker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
