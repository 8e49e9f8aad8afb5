package services

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/username/homescout/backend/src/logger"
)

// Cache is the small key/value surface the market price service needs.
// Two implementations exist: an in-process go-cache store (default)
// and a Redis store for deployments with more than one instance.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string, ttl time.Duration)
}

// NewCache picks the Redis store when an address is configured and
// falls back to the in-process store otherwise.
func NewCache(redisAddr string, defaultTTL time.Duration) Cache {
	if redisAddr != "" {
		logger.L.Info("Using Redis cache", "addr", redisAddr)
		return NewRedisCache(redisAddr)
	}
	logger.L.Info("Using in-process cache", "defaultTTL", defaultTTL.String())
	return NewMemoryCache(defaultTTL)
}

type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (m *MemoryCache) Get(key string) (string, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (m *MemoryCache) Set(key, value string, ttl time.Duration) {
	m.c.Set(key, value, ttl)
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{client: rdb}
}

func (r *RedisCache) Get(key string) (string, bool) {
	val, err := r.client.Get(context.Background(), key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.L.Warn("Redis GET failed", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

func (r *RedisCache) Set(key, value string, ttl time.Duration) {
	if err := r.client.Set(context.Background(), key, value, ttl).Err(); err != nil {
		logger.L.Warn("Redis SET failed", "key", key, "error", err)
	}
}
