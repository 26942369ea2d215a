package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/wms/backend/internal/domain/integration"
	"go.uber.org/zap"
)

const (
	syncLockPrefix = "wms:lock:"
	// DefaultSyncLockTTL bounds how long a crashed holder blocks the next sync
	DefaultSyncLockTTL = 10 * time.Minute
)

// RedisSyncLocker implements integration.SyncLocker with redislock.
// The lock expires after ttl so a crashed process cannot block syncs forever.
type RedisSyncLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSyncLocker creates a new RedisSyncLocker
func NewRedisSyncLocker(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisSyncLocker {
	if ttl <= 0 {
		ttl = DefaultSyncLockTTL
	}
	return &RedisSyncLocker{
		locker: redislock.New(client),
		ttl:    ttl,
		logger: logger,
	}
}

// Acquire obtains the named lock without waiting
func (l *RedisSyncLocker) Acquire(ctx context.Context, name string) (func(), error) {
	lock, err := l.locker.Obtain(ctx, syncLockPrefix+name, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, integration.ErrSyncInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", name, err)
	}

	return func() {
		// The request context may be cancelled by now
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release sync lock", zap.String("lock", name), zap.Error(err))
		}
	}, nil
}

// InMemorySyncLocker implements integration.SyncLocker within one process
type InMemorySyncLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewInMemorySyncLocker creates a new InMemorySyncLocker
func NewInMemorySyncLocker() *InMemorySyncLocker {
	return &InMemorySyncLocker{held: make(map[string]struct{})}
}

// Acquire obtains the named lock without waiting
func (l *InMemorySyncLocker) Acquire(_ context.Context, name string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[name]; ok {
		return nil, integration.ErrSyncInProgress
	}
	l.held[name] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, nil
}

var (
	_ integration.SyncLocker = (*RedisSyncLocker)(nil)
	_ integration.SyncLocker = (*InMemorySyncLocker)(nil)
)
