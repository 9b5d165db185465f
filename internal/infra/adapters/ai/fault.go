package ai

import (
	"fmt"

	"carechat/internal/domain"
)

// Fault wraps a provider failure with enough shape for the caller to decide
// whether a second attempt is worth it. Status is the upstream HTTP status
// when known, zero for transport-level failures.
type Fault struct {
	Status    int
	Retryable bool
	cause     error
}

func (f *Fault) Error() string {
	if f.Status > 0 {
		return fmt.Sprintf("upstream status %d: %v", f.Status, f.cause)
	}
	return fmt.Sprintf("upstream: %v", f.cause)
}

func (f *Fault) Unwrap() error { return f.cause }

// faultFromStatus maps an HTTP status to a classified fault.
// 401/403 mean our credentials are wrong, not that the service is down.
func faultFromStatus(status int, err error) *Fault {
	cause := domain.ErrUpstream
	if status == 401 || status == 403 {
		cause = domain.ErrMisconfigured
	}
	return &Fault{
		Status:    status,
		Retryable: status == 429 || status >= 500,
		cause:     fmt.Errorf("%w: %v", cause, err),
	}
}

// transportFault classifies a failure with no HTTP status (connection reset,
// DNS, truncated stream). These are transient until proven otherwise.
func transportFault(err error) *Fault {
	return &Fault{
		Retryable: true,
		cause:     fmt.Errorf("%w: %v", domain.ErrUpstream, err),
	}
}
