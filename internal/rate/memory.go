package rate

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter: fixed window in-process, mismo algoritmo que el
// RedisLimiter. Sirve para single-node y tests; los contadores no se
// comparten entre réplicas.
type MemoryLimiter struct {
	store  *gocache.Cache
	max    int64
	window time.Duration
}

// NewMemoryLimiter crea un limiter en memoria.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		store:  gocache.New(window, window),
		max:    int64(max),
		window: window,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.window)
	k := fmt.Sprintf("%s:%d", key, winStart.Unix())

	if err := l.store.Add(k, int64(1), l.window); err != nil {
		// La key ya existía en esta ventana.
		n, err := l.store.IncrementInt64(k, 1)
		if err != nil {
			// Expiró entre Add e Increment; arrancar ventana nueva.
			l.store.Set(k, int64(1), l.window)
			n = 1
		}
		return l.verdict(n, winStart), nil
	}
	return l.verdict(1, winStart), nil
}

func (l *MemoryLimiter) verdict(hits int64, winStart time.Time) Result {
	allowed := hits <= l.max
	remaining := l.max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
	}
	if !allowed {
		res.RetryAfter = time.Until(winStart.Add(l.window))
		if res.RetryAfter < 0 {
			res.RetryAfter = l.window
		}
	}
	return res
}
