package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	lockKeyPrefix    = "lock:outsource:"
	lockPollInterval = 50 * time.Millisecond
)

// releaseScript удаляет ключ только если он всё ещё принадлежит владельцу
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type lockRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewLockRepository создаёт распределённую блокировку на SET NX PX
func NewLockRepository(client *redis.Client, logger *zap.Logger) repository.KeyLocker {
	return &lockRepository{
		client: client,
		logger: logger,
	}
}

// Lock ждёт освобождения ключа до отмены контекста.
// TTL ограничивает время жизни блокировки упавшего процесса.
func (r *lockRepository) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			r.logger.Error("Failed to acquire lock",
				zap.String("key", redisKey),
				zap.Error(err))
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	release := func() {
		// отпускаем даже если контекст вызова уже отменён
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.client, []string{redisKey}, token).Err(); err != nil {
			r.logger.Warn("Failed to release lock",
				zap.String("key", redisKey),
				zap.Error(err))
		}
	}

	return release, nil
}
