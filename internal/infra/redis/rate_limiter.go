package redis

import (
	"context"
	"time"

	"carechat/internal/ratelimit"
)

// RateLimitStore is the shared-backing variant of ratelimit.Store for
// deployments running more than one process instance. Fixed-window semantics
// match the in-memory store: INCR creates the counter, the first hit arms the
// window TTL, and PTTL supplies the retry-after on rejection.
type RateLimitStore struct {
	client RedisClient
}

var _ ratelimit.Store = (*RateLimitStore)(nil)

func NewRateLimitStore(client RedisClient) *RateLimitStore {
	return &RateLimitStore{client: client}
}

func (r *RateLimitStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return ratelimit.Decision{}, err
	}

	if count == 1 {
		if err := r.client.PExpire(ctx, key, window); err != nil {
			return ratelimit.Decision{}, err
		}
	}

	if count > int64(limit) {
		ttl, err := r.client.PTTL(ctx, key)
		if err != nil || ttl <= 0 {
			ttl = window
		}
		if ttl < time.Second {
			ttl = time.Second
		}
		return ratelimit.Decision{Allowed: false, RetryAfter: ttl}, nil
	}

	remaining := limit - int(count)
	return ratelimit.Decision{Allowed: true, Remaining: remaining}, nil
}
