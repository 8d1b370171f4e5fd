package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// FeedEntry is a cached upstream response.
type FeedEntry struct {
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Cache stores feed responses for a fixed TTL.
type Cache interface {
	Get(ctx context.Context, key string) (FeedEntry, bool, error)
	Set(ctx context.Context, key string, entry FeedEntry) error
}

// MemoryCache is a size-bounded in-process [Cache].
type MemoryCache struct {
	lru *expirable.LRU[string, FeedEntry]
}

// NewMemoryCache creates a cache holding up to size entries for ttl each.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 256
	}
	return &MemoryCache{lru: expirable.NewLRU[string, FeedEntry](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (FeedEntry, bool, error) {
	entry, ok := c.lru.Get(key)
	return entry, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, entry FeedEntry) error {
	c.lru.Add(key, entry)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

const redisKeyPrefix = "watchx:feed:"

// RedisCache shares cached feeds between proxy instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisCacheFromClient(client, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (FeedEntry, bool, error) {
	var entry FeedEntry

	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, false, fmt.Errorf("redis entry %s: %w", key, err)
	}
	return entry, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, entry FeedEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
