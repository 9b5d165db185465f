package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestMemoryStore_WindowLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = fixedClock(&now)

	const key = "chat:send:u1:1.2.3.4"
	const limit = 30
	window := time.Minute

	for i := 0; i < limit; i++ {
		d, err := s.Allow(ctx, key, limit, window)
		if err != nil {
			t.Fatalf("Allow #%d: %v", i+1, err)
		}
		if !d.Allowed {
			t.Fatalf("request %d inside limit was rejected", i+1)
		}
	}

	// 31st call within the same window must reject with retry-after in (0, window].
	d, err := s.Allow(ctx, key, limit, window)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("over-limit request was admitted")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > window {
		t.Fatalf("retry-after out of range: %s", d.RetryAfter)
	}

	// After the window passes, a request is always admitted and starts fresh.
	now = now.Add(window + time.Millisecond)
	d, err = s.Allow(ctx, key, limit, window)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatal("request after resetAt was rejected")
	}
	if d.Remaining != limit-1 {
		t.Fatalf("fresh window remaining = %d, want %d", d.Remaining, limit-1)
	}
}

func TestMemoryStore_DistinctKeysDoNotInterfere(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if d, _ := s.Allow(ctx, SendKey("u1", "1.2.3.4"), 1, time.Minute); !d.Allowed {
		t.Fatal("first send rejected")
	}
	if d, _ := s.Allow(ctx, SendKey("u1", "1.2.3.4"), 1, time.Minute); d.Allowed {
		t.Fatal("second send admitted over limit")
	}
	// A different operation key for the same identity keeps its own budget.
	if d, _ := s.Allow(ctx, ListKey("u1", "1.2.3.4"), 1, time.Minute); !d.Allowed {
		t.Fatal("list budget starved by send budget")
	}
}

func TestMemoryStore_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const limit = 50
	const attempts = 200
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.Allow(ctx, "k", limit, time.Minute)
			if err != nil {
				t.Error(err)
				return
			}
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != limit {
		t.Fatalf("admitted %d requests, want exactly %d", allowed, limit)
	}
}

func TestMemoryStore_RetryAfterNeverBelowOneSecond(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemoryStore()
	s.now = fixedClock(&now)

	window := 500 * time.Millisecond
	if d, _ := s.Allow(ctx, "k", 1, window); !d.Allowed {
		t.Fatal("first request rejected")
	}
	d, _ := s.Allow(ctx, "k", 1, window)
	if d.Allowed {
		t.Fatal("over-limit admitted")
	}
	if d.RetryAfter < time.Second {
		t.Fatalf("retry-after %s below floor", d.RetryAfter)
	}
}
