package wordpress

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiter ограничивает частоту запросов отдельно для каждого WP хоста
type hostLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newHostLimiter(rps float64, burst int) *hostLimiter {
	if rps <= 0 {
		return &hostLimiter{limit: rate.Inf, limiters: make(map[string]*rate.Limiter)}
	}
	if burst <= 0 {
		burst = 1
	}
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Wait блокирует до получения токена или отмены контекста
func (h *hostLimiter) Wait(ctx context.Context, host string) error {
	return h.get(host).Wait(ctx)
}

func (h *hostLimiter) get(host string) *rate.Limiter {
	h.mu.RLock()
	l, ok := h.limiters[host]
	h.mu.RUnlock()
	if ok {
		return l
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok = h.limiters[host]; ok {
		return l
	}
	l = rate.NewLimiter(h.limit, h.burst)
	h.limiters[host] = l
	return l
}
