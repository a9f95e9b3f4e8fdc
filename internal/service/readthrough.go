// Package service contains application services.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	cfotel "github.com/circularsync/gateway/internal/adapter/otel"
	"github.com/circularsync/gateway/internal/adapter/tiered"
	"github.com/circularsync/gateway/internal/adapter/ws"
	"github.com/circularsync/gateway/internal/domain"
	"github.com/circularsync/gateway/internal/logger"
	"github.com/circularsync/gateway/internal/port/broadcast"
	"github.com/circularsync/gateway/internal/port/cache"
	"github.com/circularsync/gateway/internal/port/messagequeue"
)

// Result sources. "redis" is reported for every hit whatever the backend,
// clients key off the literal.
const (
	SourceCache = "redis"
	SourceFresh = "fresh"
)

// Result is a read-through outcome as returned to HTTP clients.
type Result struct {
	Data      json.RawMessage `json:"data"`
	Cached    bool            `json:"cached"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
}

// FetchFunc computes the value for a missing key.
type FetchFunc func(ctx context.Context) (any, error)

// ReadThrough implements cache-aside reads and explicit invalidation over a
// cache store. Store failures on the read path degrade to a miss.
type ReadThrough struct {
	store      cache.Cache
	local      cache.Cache // in-process L1 evicted on remote invalidation
	group      singleflight.Group
	fence      fence
	queue      messagequeue.Queue
	hub        broadcast.Broadcaster
	metrics    *cfotel.Metrics
	instanceID string
	now        func() time.Time
}

// NewReadThrough creates a ReadThrough over store with a fresh instance id.
func NewReadThrough(store cache.Cache) *ReadThrough {
	return &ReadThrough{
		store:      store,
		instanceID: uuid.NewString(),
		now:        time.Now,
		fence:      fence{keys: make(map[string]*fenceEntry)},
	}
}

// SetQueue enables publishing and consuming invalidation events.
func (s *ReadThrough) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetBroadcaster enables pushing invalidation events to WebSocket clients.
func (s *ReadThrough) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetMetrics enables cache hit/miss/error counters.
func (s *ReadThrough) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// SetLocal registers the in-process cache level that remote invalidation
// events must evict.
func (s *ReadThrough) SetLocal(l1 cache.Cache) { s.local = l1 }

// InstanceID identifies this gateway process in invalidation events.
func (s *ReadThrough) InstanceID() string { return s.instanceID }

// Get returns the cached value for key, or calls fetch, stores the encoded
// result for ttl and returns it. Concurrent misses for one key share a
// single fetch and a single store write.
func (s *ReadThrough) Get(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (res *Result, err error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl %v for %s: %w", ttl, key, domain.ErrValidation)
	}

	ctx = logger.WithCacheKey(ctx, key)
	ctx, span := cfotel.StartReadThroughSpan(ctx, key)
	defer func() { cfotel.EndSpan(span, err) }()
	log := logger.From(ctx, slog.Default())

	data, found, err := s.store.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn("cache get failed, treating as miss", "error", err)
		s.count(ctx, storeError, key)
	case found && json.Valid(data):
		s.count(ctx, cacheHit, key)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &Result{Data: data, Cached: true, Source: SourceCache, Timestamp: s.now()}, nil
	case found:
		log.Warn("cached value is not valid JSON, recomputing")
	}

	s.count(ctx, cacheMiss, key)
	span.SetAttributes(attribute.Bool("cache.hit", false))

	ch := s.group.DoChan(key, func() (any, error) {
		// The fetch is shared with joiners, so it must outlive the caller
		// that happened to start it.
		fctx := context.WithoutCancel(ctx)
		tok := s.fence.begin(key)
		defer s.fence.end(key)

		val, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w: %w", key, domain.ErrMalformed, err)
		}
		if s.fence.stale(key, tok) {
			log.Debug("key invalidated during fetch, not caching")
			return encoded, nil
		}
		if err := s.store.Set(fctx, key, encoded, ttl); err != nil {
			log.Warn("cache set failed", "error", err)
			s.count(fctx, storeError, key)
			return encoded, nil
		}
		if s.fence.stale(key, tok) {
			// An invalidation raced the write. Its own delete may already
			// have run, so remove what was just stored.
			log.Debug("key invalidated while caching, evicting")
			if err := s.store.Delete(fctx, key); err != nil {
				log.Warn("cache delete failed", "error", err)
			}
		}
		return encoded, nil
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	v, err, shared := r.Val, r.Err, r.Shared
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug("joined in-flight fetch")
	}
	return &Result{Data: v.([]byte), Cached: false, Source: SourceFresh, Timestamp: s.now()}, nil
}

// Invalidate deletes the given literal keys. The first store error aborts
// and is returned.
func (s *ReadThrough) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return fmt.Errorf("no keys to invalidate: %w", domain.ErrValidation)
	}
	for _, key := range keys {
		s.fence.bump(key)
		if err := s.store.Delete(ctx, key); err != nil {
			slog.Error("cache delete failed", "key", key, "error", err, "request_id", logger.RequestID(ctx))
			s.count(ctx, storeError, key)
			return fmt.Errorf("delete %s: %w", key, err)
		}
		s.group.Forget(key)
	}
	slog.Info("cache invalidated", "keys", keys, "request_id", logger.RequestID(ctx))
	s.publish(ctx, messagequeue.CacheInvalidatedPayload{Keys: keys}, 0)
	return nil
}

// InvalidatePattern deletes every key matching a Redis-style glob and
// returns how many were removed.
func (s *ReadThrough) InvalidatePattern(ctx context.Context, pattern string) (int64, error) {
	if pattern == "" {
		return 0, fmt.Errorf("empty pattern: %w", domain.ErrValidation)
	}
	pd, ok := s.store.(cache.PatternDeleter)
	if !ok {
		return 0, domain.ErrPatternUnsupported
	}
	s.fence.bumpAll()
	n, err := pd.DeletePattern(ctx, pattern)
	if err != nil {
		slog.Error("cache pattern delete failed", "pattern", pattern, "error", err, "request_id", logger.RequestID(ctx))
		s.count(ctx, storeError, pattern)
		return 0, fmt.Errorf("delete pattern %s: %w", pattern, err)
	}
	slog.Info("cache pattern invalidated", "pattern", pattern, "deleted", n, "request_id", logger.RequestID(ctx))
	s.publish(ctx, messagequeue.CacheInvalidatedPayload{Pattern: pattern}, n)
	return n, nil
}

// publish announces a local invalidation to other replicas and to
// WebSocket clients. Failures are logged only.
func (s *ReadThrough) publish(ctx context.Context, ev messagequeue.CacheInvalidatedPayload, deleted int64) {
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventCacheInvalidated, ws.CacheInvalidatedEvent{
			Keys:    ev.Keys,
			Pattern: ev.Pattern,
			Deleted: deleted,
		})
	}
	if s.queue == nil {
		return
	}

	ev.ID = uuid.NewString()
	ev.Origin = s.instanceID
	ev.At = s.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal invalidation event", "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectCacheInvalidated, data); err != nil {
		slog.Warn("publish invalidation event failed", "error", err, "request_id", logger.RequestID(ctx))
	}
}

// StartInvalidationListener consumes invalidation events from other
// replicas, evicting the local cache level. The returned function stops it.
func (s *ReadThrough) StartInvalidationListener(ctx context.Context) (func(), error) {
	if s.queue == nil {
		return func() {}, nil
	}
	return s.queue.Subscribe(ctx, messagequeue.SubjectCacheInvalidated, s.handleRemoteInvalidation)
}

func (s *ReadThrough) handleRemoteInvalidation(ctx context.Context, _ string, data []byte) error {
	var ev messagequeue.CacheInvalidatedPayload
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode invalidation event: %w", err)
	}
	if ev.Origin == s.instanceID {
		return nil
	}

	if ev.Pattern != "" {
		s.fence.bumpAll()
	}
	for _, key := range ev.Keys {
		s.fence.bump(key)
		s.group.Forget(key)
		if s.local != nil {
			if err := s.local.Delete(ctx, key); err != nil {
				slog.Warn("local evict failed", "key", key, "error", err)
			}
		}
	}
	if ev.Pattern != "" && s.local != nil {
		tiered.EvictL1(ctx, s.local, ev.Pattern)
	}

	slog.Debug("remote invalidation applied", "origin", ev.Origin, "keys", ev.Keys, "pattern", ev.Pattern)

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventCacheInvalidated, ws.CacheInvalidatedEvent{
			Keys:    ev.Keys,
			Pattern: ev.Pattern,
			Remote:  true,
		})
	}
	return nil
}

// fence tracks invalidations that land while a fetch for the same key is
// in flight, so the fetch does not cache a value computed before them.
// Only keys with a fetch in flight are tracked.
type fence struct {
	mu    sync.Mutex
	epoch uint64 // bumped by pattern invalidation
	keys  map[string]*fenceEntry
}

type fenceEntry struct {
	gen  uint64
	refs int
}

type fenceToken struct {
	epoch uint64
	gen   uint64
}

func (f *fence) begin(key string) fenceToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.keys[key]
	if e == nil {
		e = &fenceEntry{}
		f.keys[key] = e
	}
	e.refs++
	return fenceToken{epoch: f.epoch, gen: e.gen}
}

func (f *fence) end(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e := f.keys[key]; e != nil {
		e.refs--
		if e.refs <= 0 {
			delete(f.keys, key)
		}
	}
}

func (f *fence) stale(key string, tok fenceToken) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.keys[key]
	return f.epoch != tok.epoch || e == nil || e.gen != tok.gen
}

func (f *fence) bump(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e := f.keys[key]; e != nil {
		e.gen++
	}
}

func (f *fence) bumpAll() {
	f.mu.Lock()
	f.epoch++
	f.mu.Unlock()
}

type counter int

const (
	cacheHit counter = iota
	cacheMiss
	storeError
)

func (s *ReadThrough) count(ctx context.Context, c counter, key string) {
	if s.metrics == nil {
		return
	}
	inst := s.metrics.CacheHits
	switch c {
	case cacheMiss:
		inst = s.metrics.CacheMisses
	case storeError:
		inst = s.metrics.StoreErrors
	}
	inst.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.namespace", namespace(key))))
}

// namespace returns the key up to its last ':' so metric cardinality stays
// bounded by route rather than by id.
func namespace(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
