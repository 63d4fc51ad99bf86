// Package ratelimit implements fixed-window request limits keyed by an identifier such as a client IP.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter reports whether one more hit for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter counts hits with INCR and reads the TTL in the same pipeline.
// A key left without expiry (first hit, or an EXPIRE that failed earlier) gets the window set again.
// Key format: <prefix>:<window_seconds>:<key>.
type RedisLimiter struct {
	rdb    redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(rdb redis.Cmdable, prefix string, limit int, win time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: win}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + ":" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.TTL(ctx, k)
		return nil
	}); err != nil {
		return false, fmt.Errorf("ratelimit incr: %w", err)
	}

	// TTL reports a negative value for a key without expiry.
	if ttl.Val() < 0 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit expire: %w", err)
		}
	}
	return incr.Val() <= int64(l.limit), nil
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is the single-process fallback used when Redis is not configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*window
	now     func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(limit int, win time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  win,
		clients: make(map[string]*window),
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.clients[key] = &window{start: now, count: 1}
		l.sweep(now)
		return true, nil
	}
	w.count++
	return w.count <= l.limit, nil
}

// sweep drops expired windows so the map does not grow with every client ever seen.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, k)
		}
	}
}
