// Package memory implements the cache port in-process on jellydator/ttlcache.
// It is the single-replica and local-development backend; unlike the
// ristretto L1 it can enumerate keys, so pattern invalidation works.
package memory

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/circularsync/gateway/internal/port/cache"
)

// Cache wraps a ttlcache instance.
type Cache struct {
	c *ttlcache.Cache[string, []byte]
}

// New creates an in-process cache and starts its expiry loop.
// Call Close to stop it.
func New() *Cache {
	c := ttlcache.New[string, []byte](
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go c.Start()
	return &Cache{c: c}
}

// Get retrieves a value. Expired items are reported as misses even if the
// expiry loop has not collected them yet.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	item := c.c.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

// Set stores a copy of value with the given TTL.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)
	c.c.Set(key, v, ttl)
	return nil
}

// TTL reports how long key has left before it expires.
func (c *Cache) TTL(_ context.Context, key string) (remaining time.Duration, ok bool, err error) {
	item := c.c.Get(key)
	if item == nil || item.IsExpired() || item.ExpiresAt().IsZero() {
		return 0, false, nil
	}
	remaining = time.Until(item.ExpiresAt())
	if remaining <= 0 {
		return 0, false, nil
	}
	return remaining, true, nil
}

// Delete removes a value.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Delete(key)
	return nil
}

// DeletePattern removes every live key matching the glob pattern.
func (c *Cache) DeletePattern(_ context.Context, pattern string) (int64, error) {
	var n int64
	for _, k := range c.c.Keys() {
		if !cache.Match(pattern, k) {
			continue
		}
		if item := c.c.Get(k); item == nil || item.IsExpired() {
			continue
		}
		c.c.Delete(k)
		n++
	}
	return n, nil
}

// Len returns the number of stored entries, including not-yet-collected expired ones.
func (c *Cache) Len() int {
	return c.c.Len()
}

// Close stops the expiry loop.
func (c *Cache) Close() {
	c.c.Stop()
}
