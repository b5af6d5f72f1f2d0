package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis is nil unless REDIS_URL is configured.
var Redis *redis.Client

// InitRedis connects to redis when REDIS_URL is set. Without it the service
// runs with database-only sessions and an in-process snapshot stream.
func InitRedis() error {
	config := GetConfig()
	if config.RedisURL == "" {
		logrus.Info("[database] REDIS_URL not set, redis disabled")
		return nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	Redis = rdb
	logrus.WithField("addr", opts.Addr).Info("[database] redis connection established")
	return nil
}

// CloseRedis releases the redis client if one was opened.
func CloseRedis() {
	if Redis == nil {
		return
	}
	if err := Redis.Close(); err != nil {
		logrus.WithError(err).Warn("[database] failed to close redis")
	}
}
