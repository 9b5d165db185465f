package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"carechat/internal/config"
	"carechat/internal/domain"
	"carechat/internal/domain/model"
	"carechat/internal/domain/ports/adapter"
	"carechat/internal/infra/metrics"
)

// Client drives one completion call against the configured provider:
// per-mode deadline, a single delayed retry on transient faults, and
// fragment forwarding for streamed responses.
//
// The retry only fires when nothing has been emitted yet. Once a fragment
// has reached the peer a retry would duplicate text, so the call fails as
// is and the accumulated prefix is what the caller persists.
type Client struct {
	provider adapter.CompletionProvider
	cfg      config.AIConfig
	log      *zerolog.Logger
}

func NewClient(provider adapter.CompletionProvider, cfg config.AIConfig, log *zerolog.Logger) *Client {
	return &Client{provider: provider, cfg: cfg, log: log}
}

func (c *Client) Provider() string { return c.provider.Name() }

// Ask runs the prompt to completion. If emit is non-nil the provider is
// asked for a stream and every fragment is both forwarded to emit and
// accumulated; the returned answer always equals the concatenation of the
// emitted fragments. With emit nil a single blocking call is made.
//
// Cancellation of ctx is returned as-is. A missed per-mode deadline comes
// back as domain.ErrTimeout.
func (c *Client) Ask(ctx context.Context, mode model.Mode, p adapter.Prompt, emit func(string)) (string, error) {
	if p.MaxTokens == 0 {
		p.MaxTokens = c.cfg.MaxTokensFor(mode)
	}
	if p.Temperature == 0 {
		p.Temperature = c.cfg.Temperature
	}

	start := time.Now()

	answer, emitted, err := c.attempt(ctx, mode, p, emit)
	if err != nil && !emitted && isRetryable(err) && ctx.Err() == nil {
		c.log.Warn().Err(err).Str("provider", c.provider.Name()).Msg("upstream attempt failed, retrying once")
		select {
		case <-time.After(c.cfg.RetryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		answer, _, err = c.attempt(ctx, mode, p, emit)
	}

	latency := time.Since(start).Milliseconds()
	if err != nil {
		metrics.ObserveUpstream(c.provider.Name(), string(mode), 0, 0, latency, false)
		return answer, err
	}

	tokensIn := CountTokens(p.System) + CountTokens(p.User)
	tokensOut := CountTokens(answer)
	metrics.ObserveUpstream(c.provider.Name(), string(mode), tokensIn, tokensOut, latency, true)
	return answer, nil
}

// attempt makes one bounded call. Reports whether any fragment was emitted
// so the caller can decide on a retry.
func (c *Client) attempt(ctx context.Context, mode model.Mode, p adapter.Prompt, emit func(string)) (string, bool, error) {
	cctx, cancel := context.WithTimeout(ctx, c.cfg.TimeoutFor(mode))
	defer cancel()

	if emit == nil {
		answer, err := c.provider.Complete(cctx, p)
		if err != nil {
			return "", false, c.classify(ctx, cctx, err)
		}
		return answer, false, nil
	}

	stream, err := c.provider.Stream(cctx, p)
	if err != nil {
		return "", false, c.classify(ctx, cctx, err)
	}
	defer stream.Close()

	var sb strings.Builder
	emitted := false
	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			return sb.String(), emitted, nil
		}
		if err != nil {
			return sb.String(), emitted, c.classify(ctx, cctx, err)
		}
		if frag == "" {
			continue
		}
		sb.WriteString(frag)
		emitted = true
		emit(frag)
	}
}

// classify separates caller cancellation from our own deadline. The parent
// ctx being dead means the peer went away; the attempt ctx expiring alone
// means the provider was too slow.
func (c *Client) classify(parent, attempt context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return err
}

func isRetryable(err error) bool {
	var f *Fault
	return errors.As(err, &f) && f.Retryable
}
