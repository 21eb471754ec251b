package http

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_PerKeyAndRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(ctx, "login:1.2.3.4"); !ok {
			t.Fatalf("hit %d denied", i)
		}
	}
	if ok, _ := l.Allow(ctx, "login:1.2.3.4"); ok {
		t.Fatal("third hit allowed")
	}
	if ok, _ := l.Allow(ctx, "login:5.6.7.8"); !ok {
		t.Fatal("other client throttled")
	}

	now = now.Add(30 * time.Second)
	if ok, _ := l.Allow(ctx, "login:1.2.3.4"); !ok {
		t.Fatal("token not refilled after window/limit")
	}
}

func TestMemoryLimiter_PrunesIdleKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "a")
	now = now.Add(3 * time.Minute)
	_, _ = l.Allow(context.Background(), "b")

	if _, ok := l.keys["a"]; ok || len(l.keys) != 1 {
		t.Fatalf("keys = %v", l.keys)
	}
}
