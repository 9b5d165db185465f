package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("missing or invalid identity")
	ErrMisconfigured   = errors.New("upstream provider is not configured")
	ErrUpstream        = errors.New("upstream provider error")
	ErrTimeout         = errors.New("upstream call timed out")
)

// RateLimitError is a control signal, not a fault: the caller should back off
// and retry after the carried duration.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// RetryAfterSeconds reports the wait rounded up to whole seconds, never below 1.
func (e *RateLimitError) RetryAfterSeconds() int {
	s := int((e.RetryAfter + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

// AsRateLimit unwraps err into a *RateLimitError when it is one.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
