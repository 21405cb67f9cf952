package redis_repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/config"
	"github.com/mohammad-safakhou/pathfinder/internal/logging"
)

func Conn(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		DialTimeout: timeout,
		Password:    cfg.Password,
		DB:          cfg.DB,
	})
	logging.OrNop(logger).Named("redis").Info("connecting", zap.String("addr", cfg.Addr()), zap.Int("db", cfg.DB))

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if pong != "PONG" {
		_ = client.Close()
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}

	return client, nil
}
