// Package cache provides an optional Redis-backed cache for derived slot
// lists. When no Redis URL is configured the cache degrades to a no-op and
// every read is a miss.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin wrapper over a Redis client. A nil *Cache or a Cache with a
// nil client is safe to use and caches nothing.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis using a redis:// URL. An empty URL returns a disabled
// cache and no error.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	if redisURL == "" {
		return &Cache{}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

// Enabled reports whether a Redis backend is connected.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

// SlotKey builds the cache key for a generated slot list. The duration is
// part of the key because different durations produce different grids.
func SlotKey(tenant, locationID, date, therapistID string, durationMinutes int) string {
	return fmt.Sprintf("slots:%s:%s:%s:%s:%d", tenant, locationID, date, therapistID, durationMinutes)
}

// SlotPrefix builds the invalidation prefix covering every cached slot list
// for a location on a date, regardless of therapist or duration.
func SlotPrefix(tenant, locationID, date string) string {
	return fmt.Sprintf("slots:%s:%s:%s:", tenant, locationID, date)
}

// LocationPrefix builds the invalidation prefix covering every cached slot
// list for a location on any date. Schedule writes use it because a weekly
// interval change touches an unbounded set of dates.
func LocationPrefix(tenant, locationID string) string {
	return fmt.Sprintf("slots:%s:%s:", tenant, locationID)
}

// Get returns the cached payload for key, or ok=false on a miss. Redis
// errors are reported as misses so a cache outage never fails a read path.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores a payload under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, val []byte) {
	if !c.Enabled() {
		return
	}
	c.rdb.Set(ctx, key, val, c.ttl)
}

// InvalidatePrefix removes every key under prefix. Called after booking and
// schedule writes so stale slot lists are not served past the write.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if !c.Enabled() {
		return
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.rdb.Del(ctx, keys...)
	}
}
