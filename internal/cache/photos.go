// Package cache keeps proxied photo bytes in Redis so repeated page views do
// not hit the Places API again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bounceheads/directory/internal/places"
)

const keyPrefix = "photo:"

// PhotoCache stores fetched photos by request key.
type PhotoCache interface {
	Get(ctx context.Context, key string) (*places.Media, bool, error)
	Set(ctx context.Context, key string, media *places.Media) error
}

// RedisPhotoCache is a PhotoCache backed by one Redis hash per photo.
type RedisPhotoCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisPhotoCache connects to url (redis://...) and verifies the connection.
func NewRedisPhotoCache(ctx context.Context, url string, ttl time.Duration, logger *zap.Logger) (*RedisPhotoCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return NewRedisPhotoCacheFromClient(client, ttl, logger), nil
}

// NewRedisPhotoCacheFromClient wraps an existing client.
func NewRedisPhotoCacheFromClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisPhotoCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPhotoCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached photo, or false on a miss.
func (c *RedisPhotoCache) Get(ctx context.Context, key string) (*places.Media, bool, error) {
	fields, err := c.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached photo: %w", err)
	}
	body, ok := fields["body"]
	if !ok {
		return nil, false, nil
	}
	return &places.Media{Body: []byte(body), ContentType: fields["type"]}, true, nil
}

// Set stores a photo for the cache TTL.
func (c *RedisPhotoCache) Set(ctx context.Context, key string, media *places.Media) error {
	if media == nil {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, keyPrefix+key, "type", media.ContentType, "body", media.Body)
		pipe.Expire(ctx, keyPrefix+key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache photo: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *RedisPhotoCache) Close() error {
	c.logger.Info("Closing Redis connection")
	return c.client.Close()
}
