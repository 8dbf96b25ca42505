// Package cache holds the Redis read-through cache for component listings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/models"
)

// keysSet tracks every listing key so a write can drop them in one pipeline
const keysSet = "components:list_keys"

// ErrMiss is returned when a listing is not cached
var ErrMiss = errors.New("cache miss")

// RedisClient holds the Redis client connection
type RedisClient struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisClient connects to Redis and verifies the connection with PING
func NewRedisClient(ctx context.Context, addr, password string, db int, log *zap.Logger) (*RedisClient, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address not set")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pong, err := client.Ping(pingCtx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("Connected to Redis", zap.String("addr", addr), zap.String("ping", pong))

	return &RedisClient{client: client, log: log}, nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() {
	if c.client != nil {
		c.client.Close()
		c.log.Info("Redis connection closed")
	}
}

// GetClient returns the underlying *redis.Client instance
func (c *RedisClient) GetClient() *redis.Client {
	return c.client
}

// ComponentLists caches component listings as JSON under per-filter keys
type ComponentLists struct {
	client *redis.Client
	ttl    time.Duration
}

// NewComponentLists returns a listing cache whose entries expire after ttl
func NewComponentLists(client *redis.Client, ttl time.Duration) *ComponentLists {
	return &ComponentLists{client: client, ttl: ttl}
}

// ListKey names the cache entry for a category filter and active flag
func ListKey(category models.Category, activeOnly bool) string {
	if category == "" {
		category = "all"
	}
	return fmt.Sprintf("components:list:%s:%t", category, activeOnly)
}

// Get returns the cached listing or ErrMiss
func (l *ComponentLists) Get(ctx context.Context, key string) ([]models.Component, error) {
	raw, err := l.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s from Redis: %w", key, err)
	}

	var components []models.Component
	if err := json.Unmarshal(raw, &components); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached listing %s: %w", key, err)
	}
	return components, nil
}

// Set stores a listing and records its key for invalidation
func (l *ComponentLists) Set(ctx context.Context, key string, components []models.Component) error {
	raw, err := json.Marshal(components)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.Set(ctx, key, raw, l.ttl)
	pipe.SAdd(ctx, keysSet, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute Redis pipeline for %s: %w", key, err)
	}
	return nil
}

// Invalidate drops every cached listing
func (l *ComponentLists) Invalidate(ctx context.Context) error {
	keys, err := l.client.SMembers(ctx, keysSet).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read %s from Redis: %w", keysSet, err)
	}

	pipe := l.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, keysSet)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute Redis pipeline for invalidation: %w", err)
	}
	return nil
}
