package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Decision is the outcome of one fixed-window check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store is the rate-limit capability. The in-memory implementation lives in
// this package; a Redis-backed one (for multi-instance deployments that share
// no memory) lives in internal/infra/redis.
type Store interface {
	// Allow performs one read-modify-write on the bucket for key: it creates
	// or lazily resets the bucket when the window has passed, otherwise
	// increments the counter, rejecting once limit is reached.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// SendKey scopes the chat-send budget to a user and client address so one
// abusive axis does not starve another.
func SendKey(userID, ip string) string {
	return fmt.Sprintf("chat:send:%s:%s", userID, ip)
}

// ListKey is the separate, more permissive budget for history reads.
func ListKey(userID, ip string) string {
	return fmt.Sprintf("chat:list:%s:%s", userID, ip)
}
