package database

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings. Zero values fall back to the
// go-redis defaults.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// OpenRedis creates a go-redis client and waits until the server answers a
// PING. Commands are traced through RedisTracing. The client is closed if
// the server never answers.
func OpenRedis(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	client.AddHook(RedisTracing{})

	err := defaultStartupRetry.do(ctx, logger, "ping redis at "+cfg.Addr, nil, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
