package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/circularsync/gateway/internal/adapter/memory"
	"github.com/circularsync/gateway/internal/port/cache/cachetest"
)

func TestMemory_Compliance(t *testing.T) {
	c := memory.New()
	defer c.Close()
	cachetest.RunComplianceTests(t, c)
}

func TestMemory_DeletePattern(t *testing.T) {
	c := memory.New()
	defer c.Close()
	cachetest.RunPatternTests(t, c)
}

func TestMemory_TTLExpiry(t *testing.T) {
	c := memory.New()
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "pricing:recommendation:hdpe", []byte(`{"suggestedBid":12}`), 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := c.Get(ctx, "pricing:recommendation:hdpe"); !found {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(120 * time.Millisecond)

	if _, found, _ := c.Get(ctx, "pricing:recommendation:hdpe"); found {
		t.Fatal("expected miss after expiry")
	}
}

func TestMemory_SetCopiesValue(t *testing.T) {
	c := memory.New()
	defer c.Close()
	ctx := context.Background()

	buf := []byte("original")
	_ = c.Set(ctx, "k", buf, time.Minute)
	copy(buf, "mutated!")

	got, _, _ := c.Get(ctx, "k")
	if string(got) != "original" {
		t.Fatalf("expected stored copy to be unaffected, got %s", got)
	}
}
