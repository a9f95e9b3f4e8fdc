// Package cache defines the port interfaces for the gateway's cache store.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching. Get reports a miss as
// (nil, false, nil); a non-nil error means the store itself failed.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PatternDeleter is implemented by stores that can enumerate keys.
// Patterns use Redis glob syntax (*, ?, [abc], [a-z], \ escapes).
type PatternDeleter interface {
	DeletePattern(ctx context.Context, pattern string) (int64, error)
}

// TTLReader is implemented by stores that can report how long a key has
// left to live. ok is false for a missing key or one without expiry.
type TTLReader interface {
	TTL(ctx context.Context, key string) (remaining time.Duration, ok bool, err error)
}

// Pinger is implemented by stores with a remote connection to health-check.
type Pinger interface {
	Ping(ctx context.Context) error
}
