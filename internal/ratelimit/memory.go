package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 32

type bucket struct {
	count   int
	resetAt time.Time
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// MemoryStore is a sharded fixed-window counter. Buckets are created on first
// use and replaced lazily when their window expires; there is no sweeper.
// A burst at a window boundary can admit up to 2x limit — accepted trade-off
// of the fixed-window design.
type MemoryStore struct {
	shards [shardCount]*shard
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{buckets: make(map[string]*bucket)}
	}
	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := s.now()
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	b, ok := sh.buckets[key]
	if !ok || now.After(b.resetAt) {
		sh.buckets[key] = &bucket{count: 1, resetAt: now.Add(window)}
		return Decision{Allowed: true, Remaining: limit - 1}, nil
	}

	if b.count >= limit {
		retry := b.resetAt.Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}

	b.count++
	return Decision{Allowed: true, Remaining: limit - b.count}, nil
}
