package redis_test

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/circularsync/gateway/internal/adapter/redis"
	"github.com/circularsync/gateway/internal/config"
	"github.com/circularsync/gateway/internal/port/cache/cachetest"
)

func newTestCache(t *testing.T) (*redis.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedis_Compliance(t *testing.T) {
	c, _ := newTestCache(t)
	cachetest.RunComplianceTests(t, c)
}

func TestRedis_DeletePattern(t *testing.T) {
	c, _ := newTestCache(t)
	cachetest.RunPatternTests(t, c)
}

func TestRedis_TTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "admin:material-verification:stats", []byte(`{"verified":1}`), 300*time.Second); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("admin:material-verification:stats"); ttl != 300*time.Second {
		t.Fatalf("expected ttl 300s, got %v", ttl)
	}

	mr.FastForward(299 * time.Second)
	if _, found, _ := c.Get(ctx, "admin:material-verification:stats"); !found {
		t.Fatal("expected hit before ttl elapsed")
	}

	mr.FastForward(2 * time.Second)
	_, found, err := c.Get(ctx, "admin:material-verification:stats")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected miss after ttl elapsed")
	}
}

func TestRedis_TTL(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "user:profile:1", []byte(`1`), 10*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "user:profile:2", []byte(`2`), 0); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key    string
		wantOK bool
	}{
		{"user:profile:1", true},
		{"user:profile:2", false},
		{"user:profile:missing", false},
	}
	for _, tt := range tests {
		d, ok, err := c.TTL(ctx, tt.key)
		if err != nil {
			t.Fatalf("%s: %v", tt.key, err)
		}
		if ok != tt.wantOK {
			t.Fatalf("%s: ok = %v, want %v", tt.key, ok, tt.wantOK)
		}
		if ok && (d <= 0 || d > 10*time.Second) {
			t.Fatalf("%s: unexpected ttl %v", tt.key, d)
		}
	}
}

func TestRedis_PatternDeleteManyKeys(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 1200; i++ {
		_ = mr.Set("user:profile:"+strconv.Itoa(i), "v")
	}
	_ = mr.Set("pricing:recommendation:pet", "v")

	n, err := c.DeletePattern(ctx, "user:profile:*")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1200 {
		t.Fatalf("expected 1200 deleted, got %d", n)
	}
	if !mr.Exists("pricing:recommendation:pet") {
		t.Fatal("unrelated key was deleted")
	}
}

func TestRedis_StoreUnavailable(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	mr.Close()

	if _, _, err := c.Get(ctx, "user:profile:1"); err == nil {
		t.Fatal("expected error when redis is down")
	}
	if err := c.Set(ctx, "user:profile:1", []byte("v"), time.Minute); err == nil {
		t.Fatal("expected error when redis is down")
	}
	if err := c.Ping(ctx); err == nil {
		t.Fatal("expected ping error when redis is down")
	}
}

func TestRedis_NewFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("hunter2")

	host, port, err := net.SplitHostPort(mr.Addr())
	if err != nil {
		t.Fatal(err)
	}
	c := redis.New(config.Redis{Host: host, Port: port, Password: "hunter2", DialTimeout: time.Second})
	defer func() { _ = c.Close() }()

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	bad := redis.New(config.Redis{Host: host, Port: port, Password: "wrong", DialTimeout: time.Second})
	defer func() { _ = bad.Close() }()
	if err := bad.Ping(context.Background()); err == nil {
		t.Fatal("expected auth failure")
	} else if errors.Is(err, goredis.Nil) {
		t.Fatalf("unexpected redis.Nil: %v", err)
	}
}
