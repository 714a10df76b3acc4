package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"enricher/internal/logger"
)

// TextCache remembers AI stage outputs by stage and input, so a product that
// is retried on a later pass does not pay for the same call twice.
type TextCache interface {
	Get(ctx context.Context, stage, input string) (string, bool)
	Set(ctx context.Context, stage, input, value string)
}

// Key is the storage key of a stage result.
func Key(stage, input string) string {
	sum := sha256.Sum256([]byte(input))
	return "enricher:" + stage + ":" + hex.EncodeToString(sum[:])
}

// RedisTextCache stores stage results in Redis. Redis failures are logged
// and treated as misses.
type RedisTextCache struct {
	client *RedisClient
	ttl    time.Duration
	logger *logger.Logger
}

func NewRedisTextCache(client *RedisClient, ttl time.Duration, logger *logger.Logger) *RedisTextCache {
	return &RedisTextCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisTextCache) Get(ctx context.Context, stage, input string) (string, bool) {
	v, ok, err := c.client.Get(ctx, Key(stage, input))
	if err != nil {
		c.logger.Warn("cache get %s failed: %v", stage, err)
		return "", false
	}
	return v, ok
}

func (c *RedisTextCache) Set(ctx context.Context, stage, input, value string) {
	if err := c.client.Set(ctx, Key(stage, input), value, c.ttl); err != nil {
		c.logger.Warn("cache set %s failed: %v", stage, err)
	}
}

// DefaultMemoryEntries caps the in-process cache when no limit is given.
const DefaultMemoryEntries = 10000

// MemoryTextCache is an in-process TextCache for local runs without Redis.
// Past maxEntries the oldest entry is evicted.
type MemoryTextCache struct {
	mu         sync.RWMutex
	items      map[string]string
	order      []string
	maxEntries int
}

func NewMemoryTextCache() *MemoryTextCache {
	return NewMemoryTextCacheWithLimit(DefaultMemoryEntries)
}

func NewMemoryTextCacheWithLimit(maxEntries int) *MemoryTextCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	return &MemoryTextCache{items: make(map[string]string), maxEntries: maxEntries}
}

func (c *MemoryTextCache) Get(_ context.Context, stage, input string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[Key(stage, input)]
	return v, ok
}

func (c *MemoryTextCache) Set(_ context.Context, stage, input, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := Key(stage, input)
	if _, ok := c.items[key]; !ok {
		c.order = append(c.order, key)
	}
	c.items[key] = value
	for len(c.order) > c.maxEntries {
		delete(c.items, c.order[0])
		c.order = c.order[1:]
	}
}

func (c *MemoryTextCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
