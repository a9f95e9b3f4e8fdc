package logger

import (
	"context"
	"log/slog"
)

type requestIDKey struct{}
type cacheKeyKey struct{}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithCacheKey records the cache key a request is resolving.
func WithCacheKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, cacheKeyKey{}, key)
}

// CacheKey returns the cache key stored by WithCacheKey, or "".
func CacheKey(ctx context.Context) string {
	k, _ := ctx.Value(cacheKeyKey{}).(string)
	return k
}

// From returns l annotated with the request ID and cache key carried by ctx.
func From(ctx context.Context, l *slog.Logger) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		l = l.With("request_id", id)
	}
	if k := CacheKey(ctx); k != "" {
		l = l.With("cache_key", k)
	}
	return l
}
