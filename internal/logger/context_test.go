package logger_test

import (
	"context"
	"testing"

	"github.com/jonesrussell/north-cloud/suggester/internal/logger"
)

func TestWithContext_FromContext_RoundTrip(t *testing.T) {
	t.Parallel()

	l, err := logger.New(logger.Config{Level: "debug", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := logger.WithContext(context.Background(), l)
	if got := logger.FromContext(ctx); got != l {
		t.Errorf("FromContext returned %v, want %v", got, l)
	}
}

func TestFromContext_NoLogger_ReturnsUsableFallback(t *testing.T) {
	t.Parallel()

	fallback := logger.FromContext(context.Background())
	if fallback == nil {
		t.Fatal("FromContext on empty context returned nil")
	}

	fallback.Debug("filtered")
	fallback.Warn("message with fields", logger.PageID(42), logger.TaskType("links"))
}

func TestNop_WithReturnsSelf(t *testing.T) {
	t.Parallel()

	nop := logger.NewNop()
	if nop.With(logger.String("k", "v")) != nop {
		t.Error("With on a no-op logger should return the same logger")
	}
	if err := nop.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}
