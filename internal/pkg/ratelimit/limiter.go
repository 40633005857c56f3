package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/voicelift/voicelift/internal/pkg/cache"
	"github.com/voicelift/voicelift/internal/pkg/env"
)

// Result carries the limiter decision. RetryAfter is only meaningful when
// Allowed is false.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests per actor in a fixed window. Exceeding the ceiling
// refuses the request before any downstream state is touched. This is a
// courtesy guard, not a security boundary.
type Limiter interface {
	Allow(ctx context.Context, actor string) (Result, error)
}

// New selects the limiter backend at startup: the shared-store implementation
// when RATE_LIMIT_BACKEND=redis, otherwise the process-local map. The local
// map is only safe for a single-instance deployment.
func New(scope string, limit int, window time.Duration) Limiter {
	if env.GetEnv("RATE_LIMIT_BACKEND", "memory") == "redis" {
		return NewRedisLimiter(scope, limit, window)
	}
	return NewMemoryLimiter(limit, window)
}

type bucket struct {
	count int
	until time.Time
}

// MemoryLimiter keeps counters in a process-local map guarded by a mutex.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, actor string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[actor]
	if !ok || now.After(b.until) {
		b = &bucket{count: 0, until: now.Add(l.window)}
		l.buckets[actor] = b
	}
	if b.count >= l.limit {
		return Result{Allowed: false, RetryAfter: b.until.Sub(now)}, nil
	}
	b.count++
	return Result{Allowed: true, Remaining: l.limit - b.count}, nil
}

// RedisLimiter keeps counters in the shared cache so all instances agree.
// INCR plus a one-shot EXPIRE gives the fixed window atomically.
type RedisLimiter struct {
	scope  string
	limit  int
	window time.Duration
}

func NewRedisLimiter(scope string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{scope: scope, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, actor string) (Result, error) {
	rdb := cache.GetClient()
	key := "ratelimit:" + l.scope + ":" + actor

	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}
	if count == 1 {
		if err := rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return Result{}, err
		}
	}
	if count > int64(l.limit) {
		ttl, err := rdb.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}
		return Result{Allowed: false, RetryAfter: ttl}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - int(count)}, nil
}

// WindowSeconds formats a retry hint for response headers.
func WindowSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
