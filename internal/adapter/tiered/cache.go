// Package tiered implements a two-level (L1 + L2) cache adapter.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/circularsync/gateway/internal/domain"
	"github.com/circularsync/gateway/internal/port/cache"
)

// Clearer is implemented by L1 caches that cannot enumerate keys.
type Clearer interface {
	Clear()
}

// Cache combines an L1 (in-process) and L2 (shared) cache.
// Get checks L1 first, then L2 (backfilling L1 on L2 hit). A backfilled
// entry never outlives the L2 entry when L2 can report its TTL; otherwise
// it may be served for up to l1Expire after L2 expired it.
// Set and Delete operate on both levels. L1 failures are logged and never
// hide the L2 result.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
}

// New creates a tiered cache with the given L1 and L2 backends.
// l1Expire caps how long an entry lives in L1, so replicas that miss an
// invalidation event converge within l1Expire.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire}
}

// L1 exposes the in-process level so remote invalidation events can evict it.
func (c *Cache) L1() cache.Cache {
	return c.l1
}

// Get checks L1, then L2. On L2 hit, backfills L1.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		slog.Warn("tiered cache: l1 get failed", "key", key, "error", err)
	} else if found {
		return val, true, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		_ = c.l1.Set(ctx, key, val, c.backfillTTL(ctx, key))
		return val, true, nil
	}

	return nil, false, nil
}

// backfillTTL caps l1Expire at what is left of the L2 entry's lifetime.
func (c *Cache) backfillTTL(ctx context.Context, key string) time.Duration {
	r, ok := c.l2.(cache.TTLReader)
	if !ok {
		return c.l1Expire
	}
	remaining, ok, err := r.TTL(ctx, key)
	if err != nil {
		slog.Debug("tiered cache: l2 ttl lookup failed", "key", key, "error", err)
		return c.l1Expire
	}
	if ok {
		return min(remaining, c.l1Expire)
	}
	return c.l1Expire
}

// Set writes to L2 first, then L1 with the shorter of ttl and l1Expire.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if err := c.l1.Set(ctx, key, value, min(ttl, c.l1Expire)); err != nil {
		slog.Warn("tiered cache: l1 set failed", "key", key, "error", err)
	}
	return nil
}

// Delete removes from both L1 and L2.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.l1.Delete(ctx, key); err != nil {
		return err
	}
	return c.l2.Delete(ctx, key)
}

// DeletePattern deletes matching keys from L2 and evicts L1, by pattern when
// L1 supports it and by clearing it otherwise. The count is L2's.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	pd, ok := c.l2.(cache.PatternDeleter)
	if !ok {
		return 0, domain.ErrPatternUnsupported
	}
	n, err := pd.DeletePattern(ctx, pattern)
	if err != nil {
		return n, err
	}
	EvictL1(ctx, c.l1, pattern)
	return n, nil
}

// Ping checks the L2 store when it supports health checks.
func (c *Cache) Ping(ctx context.Context) error {
	if p, ok := c.l2.(cache.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// EvictL1 removes pattern matches from an in-process cache that may or may
// not be able to enumerate keys.
func EvictL1(ctx context.Context, l1 cache.Cache, pattern string) {
	switch l := l1.(type) {
	case cache.PatternDeleter:
		if _, err := l.DeletePattern(ctx, pattern); err != nil {
			slog.Warn("tiered cache: l1 pattern evict failed", "pattern", pattern, "error", err)
		}
	case Clearer:
		l.Clear()
	}
}
