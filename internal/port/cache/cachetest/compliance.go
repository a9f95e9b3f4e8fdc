// Package cachetest provides a compliance suite shared by every cache adapter.
package cachetest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/circularsync/gateway/internal/port/cache"
)

// RunComplianceTests runs the standard compliance test suite against any Cache implementation.
func RunComplianceTests(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		want := []byte(`{"totalSubmissions":3,"verified":1}`)
		if err := c.Set(ctx, "compliance:set:get", want, time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, "compliance:set:get")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != string(want) {
			t.Fatalf("expected %s, got %s", want, val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "compliance:nonexistent")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "compliance:del", []byte("del-val"), time.Minute)
		if err := c.Delete(ctx, "compliance:del"); err != nil {
			t.Fatal(err)
		}
		_, found, err := c.Get(ctx, "compliance:del")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "compliance:never-existed"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "compliance:ow", []byte("v1"), time.Minute)
		_ = c.Set(ctx, "compliance:ow", []byte("v2"), time.Minute)
		val, found, err := c.Get(ctx, "compliance:ow")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after overwrite")
		}
		if string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %s", val)
		}
	})
}

// RunPatternTests checks that DeletePattern removes all and only the matching keys.
func RunPatternTests(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	pd, ok := c.(cache.PatternDeleter)
	if !ok {
		t.Fatalf("%T does not implement cache.PatternDeleter", c)
	}

	keys := []string{
		"warehouse:stats:w1",
		"warehouse:stats:w2",
		"warehouse:stats:w10",
		"user:profile:u1",
		"admin:material-submissions:list",
	}
	for _, k := range keys {
		if err := c.Set(ctx, k, []byte("v"), time.Minute); err != nil {
			t.Fatal(err)
		}
	}

	n, err := pd.DeletePattern(ctx, "warehouse:stats:*")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}

	var remaining []string
	for _, k := range keys {
		_, found, err := c.Get(ctx, k)
		if err != nil {
			t.Fatal(err)
		}
		if found {
			remaining = append(remaining, k)
		}
	}
	sort.Strings(remaining)
	want := []string{"admin:material-submissions:list", "user:profile:u1"}
	if len(remaining) != len(want) || remaining[0] != want[0] || remaining[1] != want[1] {
		t.Fatalf("expected %v to survive, got %v", want, remaining)
	}

	n, err = pd.DeletePattern(ctx, "nothing:matches:*")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected 0 deleted for unmatched pattern, got %d", n)
	}
}
