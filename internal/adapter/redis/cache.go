// Package redis implements the cache port on Redis using go-redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/circularsync/gateway/internal/config"
)

// scanBatch is the COUNT hint for SCAN and the UNLINK batch size.
const scanBatch = 500

// Cache wraps a go-redis client as the shared cache store.
type Cache struct {
	rdb goredis.UniversalClient
}

// New creates a Redis-backed cache from connection settings. The connection
// is lazy; call Ping to verify reachability.
func New(cfg config.Redis) *Cache {
	return NewFromClient(goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}))
}

// NewFromClient wraps an existing client.
func NewFromClient(rdb goredis.UniversalClient) *Cache {
	return &Cache{rdb: rdb}
}

// Get retrieves a value. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores a value with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// TTL reports the remaining lifetime of key via PTTL.
func (c *Cache) TTL(ctx context.Context, key string) (remaining time.Duration, ok bool, err error) {
	d, err := c.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis pttl %s: %w", key, err)
	}
	// PTTL reports -2 for a missing key and -1 for one without expiry.
	if d <= 0 {
		return 0, false, nil
	}
	return d, true, nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// DeletePattern removes every key matching pattern. Keys are collected
// over a full SCAN first and unlinked afterwards in batches: deleting while
// scanning can shift the cursor and skip keys. SCAN keeps large keyspaces
// from blocking the server the way KEYS would.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		matched []string
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		matched = append(matched, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	var deleted int64
	for start := 0; start < len(matched); start += scanBatch {
		end := min(start+scanBatch, len(matched))
		n, err := c.rdb.Unlink(ctx, matched[start:end]...).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis unlink %s: %w", pattern, err)
		}
		deleted += n
	}
	return deleted, nil
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
