package redis_repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "pathfinder:lock:"

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type redisLocker struct {
	client *redis.Client
}

func (l redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil || !ok {
		return nil, err
	}
	return func() {
		_ = releaseScript.Run(context.Background(), l.client, []string{lockKeyPrefix + key}, token).Err()
	}, nil
}

func NewLocker(client *redis.Client) *redisLocker {
	return &redisLocker{client: client}
}
