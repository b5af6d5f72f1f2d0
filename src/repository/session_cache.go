package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portfoliotracker/src/model"
)

// RedisSessionCache keeps recently validated sessions in redis so that
// authenticated requests skip the session lookup in the database.
type RedisSessionCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessionCache(rdb *redis.Client, ttl time.Duration) *RedisSessionCache {
	return &RedisSessionCache{rdb: rdb, prefix: "portfoliotracker:session", ttl: ttl}
}

func (c *RedisSessionCache) key(sessionID int64) string {
	return fmt.Sprintf("%s:%d", c.prefix, sessionID)
}

// Get returns (nil, nil) on a cache miss.
func (c *RedisSessionCache) Get(ctx context.Context, sessionID int64) (*model.UserSession, error) {
	raw, err := c.rdb.Get(ctx, c.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var session model.UserSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode cached session: %w", err)
	}
	return &session, nil
}

// Set caches the session until the earlier of the cache ttl and its expiry.
func (c *RedisSessionCache) Set(ctx context.Context, session *model.UserSession) error {
	ttl := c.ttl
	if remaining := time.Until(session.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return nil
	}

	b, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(session.SessionID), b, ttl).Err()
}

func (c *RedisSessionCache) Delete(ctx context.Context, sessionID int64) error {
	return c.rdb.Del(ctx, c.key(sessionID)).Err()
}
