// Package natskv implements the cache port using NATS JetStream KV as a
// shared L2 store for multi-replica deployments without Redis.
package natskv

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/circularsync/gateway/internal/port/cache"
)

// headerLen is the size of the expiry prefix stored before every value.
const headerLen = 8

// Cache wraps a NATS JetStream KeyValue bucket. The bucket TTL bounds
// storage; each value also carries its own expiry so route TTLs shorter
// than the bucket TTL are honoured on read.
type Cache struct {
	kv  jetstream.KeyValue
	now func() time.Time
}

// New creates a NATS KV-backed cache.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv, now: time.Now}
}

// EnsureBucket creates or updates the KV bucket used as the cache.
func EnsureBucket(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "circularsync gateway read-through cache",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("nats kv bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// Get retrieves a value from the NATS KV store.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.kv.Get(ctx, encodeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("nats kv get %s: %w", key, err)
	}
	raw := entry.Value()
	if len(raw) < headerLen {
		return nil, false, nil
	}
	if exp := int64(binary.BigEndian.Uint64(raw[:headerLen])); exp != 0 && c.now().UnixNano() >= exp {
		return nil, false, nil
	}
	return raw[headerLen:], true, nil
}

// Set stores a value in the NATS KV store with a per-value expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, headerLen+len(value))
	if ttl > 0 {
		binary.BigEndian.PutUint64(buf[:headerLen], uint64(c.now().Add(ttl).UnixNano()))
	}
	copy(buf[headerLen:], value)
	if _, err := c.kv.Put(ctx, encodeKey(key), buf); err != nil {
		return fmt.Errorf("nats kv put %s: %w", key, err)
	}
	return nil
}

// Delete removes a value from the NATS KV store.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, encodeKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("nats kv delete %s: %w", key, err)
	}
	return nil
}

// DeletePattern lists the bucket's keys and deletes those matching pattern.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	lister, err := c.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("nats kv list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var matched []string
	for k := range lister.Keys() {
		key, ok := decodeKey(k)
		if ok && cache.Match(pattern, key) {
			matched = append(matched, key)
		}
	}

	var n int64
	for _, key := range matched {
		if err := c.Delete(ctx, key); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// encodeKey maps a cache key onto the NATS KV key alphabet
// [-/_=.A-Za-z0-9]. ':' becomes the '.' token separator; '.', '=' and any
// other byte outside the alphabet are written as "=XX" hex. A ':' that would
// leave an empty token (leading, trailing or doubled) is escaped as well,
// since NATS rejects keys with empty tokens.
func encodeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == ':' && i+1 < len(key) && b.Len() > 0 && !strings.HasSuffix(b.String(), "."):
			b.WriteByte('.')
		case c == '-' || c == '_' || c == '/' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'):
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "=%02X", c)
		}
	}
	return b.String()
}

func decodeKey(k string) (string, bool) {
	var b strings.Builder
	b.Grow(len(k))
	for i := 0; i < len(k); i++ {
		c := k[i]
		switch c {
		case '.':
			b.WriteByte(':')
		case '=':
			if i+2 >= len(k) {
				return "", false
			}
			v, err := strconv.ParseUint(k[i+1:i+3], 16, 8)
			if err != nil {
				return "", false
			}
			b.WriteByte(byte(v))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), true
}
