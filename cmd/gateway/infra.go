package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/circularsync/gateway/internal/adapter/memory"
	cfnats "github.com/circularsync/gateway/internal/adapter/nats"
	"github.com/circularsync/gateway/internal/adapter/natskv"
	"github.com/circularsync/gateway/internal/adapter/redis"
	"github.com/circularsync/gateway/internal/adapter/ristretto"
	"github.com/circularsync/gateway/internal/adapter/tiered"
	"github.com/circularsync/gateway/internal/config"
	"github.com/circularsync/gateway/internal/port/cache"
)

// infra holds the connections shared by the server and the cache subcommands.
type infra struct {
	store   cache.Cache
	l1      cache.Cache   // nil unless cache.l1_enabled
	queue   *cfnats.Queue // nil unless NATS is in use
	closers []func()
}

func (in *infra) close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		in.closers[i]()
	}
}

// openInfra connects NATS when it is enabled or backs the cache, then
// builds the configured store, optionally wrapped by a ristretto L1.
func openInfra(ctx context.Context, cfg *config.Config) (*infra, error) {
	in := &infra{}

	if cfg.NATS.Enabled || cfg.Cache.Backend == "nats" {
		q, err := cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		in.queue = q
		in.closers = append(in.closers, func() {
			if err := q.Drain(); err != nil {
				slog.Warn("nats drain", "error", err)
			}
		})
	}

	var l2 cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		rc := redis.New(cfg.Redis)
		if err := rc.Ping(ctx); err != nil {
			// Reads degrade to upstream-only while Redis is down.
			slog.Warn("redis unreachable at startup", "addr", cfg.Redis.Addr(), "error", err)
		}
		in.closers = append(in.closers, func() { _ = rc.Close() })
		l2 = rc
	case "memory":
		mc := memory.New()
		in.closers = append(in.closers, mc.Close)
		l2 = mc
	case "nats":
		kv, err := natskv.EnsureBucket(ctx, in.queue.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			in.close()
			return nil, fmt.Errorf("nats kv: %w", err)
		}
		l2 = natskv.New(kv)
	default:
		in.close()
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	in.store = l2

	if cfg.Cache.L1Enabled {
		l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
		if err != nil {
			in.close()
			return nil, fmt.Errorf("l1 cache: %w", err)
		}
		in.closers = append(in.closers, l1.Close)
		in.l1 = l1
		in.store = tiered.New(l1, l2, cfg.Cache.L1TTL)
	}

	slog.Info("cache store ready", "backend", cfg.Cache.Backend, "l1", cfg.Cache.L1Enabled)
	return in, nil
}
