package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/circularsync/gateway/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc"}
	l, closer := New(cfg)
	defer closer.Close()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewAsync(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc", Async: true}
	l, closer := New(cfg)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if _, ok := closer.(*AsyncHandler); !ok {
		t.Fatalf("expected *AsyncHandler closer, got %T", closer)
	}
	closer.Close()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"ERROR", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	if got := RequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
}

func TestCacheKeyContext(t *testing.T) {
	ctx := WithCacheKey(context.Background(), "user:profile:42")
	if got := CacheKey(ctx); got != "user:profile:42" {
		t.Errorf("expected user:profile:42, got %q", got)
	}
}

func TestFromAddsContextAttrs(t *testing.T) {
	inner := &recordingHandler{}
	base := slog.New(inner)

	ctx := WithCacheKey(WithRequestID(context.Background(), "req-9"), "admin:material-submissions:list")
	From(ctx, base).Info("hit")

	if got := inner.count(); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}
}
