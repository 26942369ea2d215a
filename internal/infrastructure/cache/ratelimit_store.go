package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "wms:ratelimit:"

// RateLimitStore counts requests per key in fixed windows
type RateLimitStore interface {
	// Increment counts one request for key and returns the count within the
	// current window and when that window resets
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// RedisRateLimitStore implements RateLimitStore with INCR and EXPIRE NX,
// so every instance behind a load balancer shares the counters
type RedisRateLimitStore struct {
	client redis.UniversalClient
}

// NewRedisRateLimitStore creates a new RedisRateLimitStore
func NewRedisRateLimitStore(client redis.UniversalClient) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// Increment implements RateLimitStore
func (s *RedisRateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	redisKey := rateLimitPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// NX keeps the expiry of the first request in the window
	pipe.ExpireNX(ctx, redisKey, window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to count request: %w", err)
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}
	return int(incr.Val()), time.Now().Add(remaining), nil
}

// InMemoryRateLimitStore implements RateLimitStore in process memory
type InMemoryRateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	stop    chan struct{}
	once    sync.Once
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// NewInMemoryRateLimitStore creates a store that drops expired windows every cleanupEvery
func NewInMemoryRateLimitStore(cleanupEvery time.Duration) *InMemoryRateLimitStore {
	s := &InMemoryRateLimitStore{
		windows: make(map[string]*rateWindow),
		stop:    make(chan struct{}),
	}
	if cleanupEvery > 0 {
		go s.cleanup(cleanupEvery)
	}
	return s
}

// Increment implements RateLimitStore
func (s *InMemoryRateLimitStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

// Close stops the cleanup goroutine
func (s *InMemoryRateLimitStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *InMemoryRateLimitStore) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, w := range s.windows {
				if !now.Before(w.resetAt) {
					delete(s.windows, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

var (
	_ RateLimitStore = (*RedisRateLimitStore)(nil)
	_ RateLimitStore = (*InMemoryRateLimitStore)(nil)
)
