package redis_repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
)

const seenKeyPrefix = "pathfinder:seen:"

// redisSeenRepository stores one expiring key per URL fingerprint.
type redisSeenRepository struct {
	client *redis.Client
}

func (r redisSeenRepository) Seen(ctx context.Context, url string) (bool, error) {
	key, err := seenKey(url)
	if err != nil {
		return false, err
	}
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r redisSeenRepository) Mark(ctx context.Context, url string, ttl time.Duration) error {
	key, err := seenKey(url)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

func seenKey(url string) (string, error) {
	fp, err := helpers.URLFingerprint(url)
	if err != nil {
		return "", err
	}
	return seenKeyPrefix + fp, nil
}

func NewSeenRepository(client *redis.Client) *redisSeenRepository {
	return &redisSeenRepository{
		client: client,
	}
}
