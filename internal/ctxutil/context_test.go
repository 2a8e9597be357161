package ctxutil

import (
	"context"
	"testing"
)

func TestRunID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	if got := GetRunID(ctx); got != "" {
		t.Errorf("GetRunID() on empty context = %q, want empty", got)
	}

	ctx = WithRunID(ctx, "run-123")
	if got := GetRunID(ctx); got != "run-123" {
		t.Errorf("GetRunID() = %q, want %q", got, "run-123")
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	if _, ok := GetRequestID(ctx); ok {
		t.Error("GetRequestID() on empty context should report false")
	}
	if _, ok := GetRequestID(WithRequestID(ctx, "")); ok {
		t.Error("GetRequestID() should treat empty id as missing")
	}

	got, ok := GetRequestID(WithRequestID(ctx, "req-1"))
	if !ok || got != "req-1" {
		t.Errorf("GetRequestID() = (%q, %v), want (%q, true)", got, ok, "req-1")
	}
}
