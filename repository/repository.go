package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/config"
	"github.com/mohammad-safakhou/pathfinder/repository/inmemory_repository"
	"github.com/mohammad-safakhou/pathfinder/repository/redis_repository"
)

// SeenStore remembers which URLs were fetched recently so repeated discovery
// runs do not crawl the same page inside the TTL.
type SeenStore interface {
	Seen(ctx context.Context, url string) (bool, error)
	Mark(ctx context.Context, url string, ttl time.Duration) error
}

// Locker guards a named critical section across processes.
type Locker interface {
	// TryLock acquires key for ttl. The returned release is nil when the lock
	// is held elsewhere.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type RepoType string

const (
	RepoTypeNone   RepoType = "none"
	RepoTypeMemory RepoType = "memory"
	RepoTypeRedis  RepoType = "redis"
)

// NewSeenStore returns the seen-URL backend named by storage.seen_backend.
// "none" yields a nil store and no error.
func NewSeenStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (SeenStore, func() error, error) {
	noop := func() error { return nil }
	switch RepoType(cfg.SeenBackend) {
	case RepoTypeNone, "":
		return nil, noop, nil
	case RepoTypeMemory:
		return inmemory_repository.NewSeenRepository(), noop, nil
	case RepoTypeRedis:
		c, err := redis_repository.Conn(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, noop, err
		}
		return redis_repository.NewSeenRepository(c), c.Close, nil
	}
	return nil, noop, fmt.Errorf("invalid repository type: %s", cfg.SeenBackend)
}

// NewLocker returns a Redis-backed lock when Redis is configured, otherwise a
// process-local one.
func NewLocker(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (Locker, func() error, error) {
	if cfg.Host == "" {
		return inmemory_repository.NewLocker(), func() error { return nil }, nil
	}
	c, err := redis_repository.Conn(ctx, cfg, logger)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	return redis_repository.NewLocker(c), c.Close, nil
}
