package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"carechat/internal/config"
	"carechat/internal/domain"
	"carechat/internal/domain/model"
	"carechat/internal/domain/ports/adapter"
)

type scriptProvider struct {
	completeFn func(ctx context.Context, call int) (string, error)
	streamFn   func(ctx context.Context, call int) (adapter.TokenStream, error)
	calls      int
	lastPrompt adapter.Prompt
}

func (s *scriptProvider) Name() string { return "script" }

func (s *scriptProvider) Complete(ctx context.Context, p adapter.Prompt) (string, error) {
	s.calls++
	s.lastPrompt = p
	return s.completeFn(ctx, s.calls)
}

func (s *scriptProvider) Stream(ctx context.Context, p adapter.Prompt) (adapter.TokenStream, error) {
	s.calls++
	s.lastPrompt = p
	return s.streamFn(ctx, s.calls)
}

// fragStream yields fixed fragments, then the terminal error (io.EOF for a
// clean finish).
type fragStream struct {
	frags    []string
	terminal error
	i        int
	closed   bool
}

func (f *fragStream) Recv() (string, error) {
	if f.i >= len(f.frags) {
		return "", f.terminal
	}
	s := f.frags[f.i]
	f.i++
	return s, nil
}

func (f *fragStream) Close() error { f.closed = true; return nil }

func testClient(p adapter.CompletionProvider) *Client {
	log := zerolog.Nop()
	return NewClient(p, config.AIConfig{
		Timeout:       200 * time.Millisecond,
		RecipeTimeout: 200 * time.Millisecond,
		RetryDelay:    time.Millisecond,
	}, &log)
}

func TestAskFillsPerModeBudget(t *testing.T) {
	p := &scriptProvider{
		completeFn: func(_ context.Context, call int) (string, error) { return "ok", nil },
	}
	log := zerolog.Nop()
	c := NewClient(p, config.AIConfig{
		Timeout:         200 * time.Millisecond,
		RecipeTimeout:   200 * time.Millisecond,
		MaxTokens:       900,
		RecipeMaxTokens: 1600,
		Temperature:     0.4,
		RetryDelay:      time.Millisecond,
	}, &log)

	if _, err := c.Ask(context.Background(), model.ModeMedical, adapter.Prompt{}, nil); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if p.lastPrompt.MaxTokens != 900 || p.lastPrompt.Temperature != 0.4 {
		t.Errorf("medical prompt = %d tokens / %v temp", p.lastPrompt.MaxTokens, p.lastPrompt.Temperature)
	}

	if _, err := c.Ask(context.Background(), model.ModeRecipe, adapter.Prompt{}, nil); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if p.lastPrompt.MaxTokens != 1600 {
		t.Errorf("recipe budget = %d, want 1600", p.lastPrompt.MaxTokens)
	}

	// Explicit values pass through untouched.
	if _, err := c.Ask(context.Background(), model.ModeMedical, adapter.Prompt{MaxTokens: 50, Temperature: 0.9}, nil); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if p.lastPrompt.MaxTokens != 50 || p.lastPrompt.Temperature != 0.9 {
		t.Errorf("explicit prompt = %d tokens / %v temp", p.lastPrompt.MaxTokens, p.lastPrompt.Temperature)
	}
}

func TestAskRetriesOnceOnServerError(t *testing.T) {
	p := &scriptProvider{
		completeFn: func(_ context.Context, call int) (string, error) {
			if call == 1 {
				return "", faultFromStatus(500, errors.New("boom"))
			}
			return "recovered", nil
		},
	}
	got, err := testClient(p).Ask(context.Background(), model.ModeMedical, adapter.Prompt{}, nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "recovered" {
		t.Errorf("answer = %q", got)
	}
	if p.calls != 2 {
		t.Errorf("calls = %d, want 2", p.calls)
	}
}

func TestAskDoesNotRetryClientError(t *testing.T) {
	p := &scriptProvider{
		completeFn: func(_ context.Context, call int) (string, error) {
			return "", faultFromStatus(400, errors.New("bad request"))
		},
	}
	_, err := testClient(p).Ask(context.Background(), model.ModeMedical, adapter.Prompt{}, nil)
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestAskMapsAuthFailureToMisconfigured(t *testing.T) {
	p := &scriptProvider{
		completeFn: func(_ context.Context, call int) (string, error) {
			return "", faultFromStatus(401, errors.New("invalid key"))
		},
	}
	_, err := testClient(p).Ask(context.Background(), model.ModeTherapy, adapter.Prompt{}, nil)
	if !errors.Is(err, domain.ErrMisconfigured) {
		t.Fatalf("err = %v, want ErrMisconfigured", err)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1 (auth failures are not retryable)", p.calls)
	}
}

func TestAskTimeout(t *testing.T) {
	p := &scriptProvider{
		completeFn: func(ctx context.Context, call int) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	log := zerolog.Nop()
	c := NewClient(p, config.AIConfig{
		Timeout:       10 * time.Millisecond,
		RecipeTimeout: 10 * time.Millisecond,
		RetryDelay:    time.Millisecond,
	}, &log)
	_, err := c.Ask(context.Background(), model.ModeMedical, adapter.Prompt{}, nil)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestAskCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &scriptProvider{
		completeFn: func(c context.Context, call int) (string, error) {
			cancel()
			<-c.Done()
			return "", c.Err()
		},
	}
	_, err := testClient(p).Ask(ctx, model.ModeMedical, adapter.Prompt{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestAskStreamAnswerMatchesEmittedFragments(t *testing.T) {
	frags := []string{"hello", " ", "world", "!"}
	p := &scriptProvider{
		streamFn: func(_ context.Context, call int) (adapter.TokenStream, error) {
			return &fragStream{frags: frags, terminal: io.EOF}, nil
		},
	}
	var emitted []string
	got, err := testClient(p).Ask(context.Background(), model.ModeRecipe, adapter.Prompt{}, func(s string) {
		emitted = append(emitted, s)
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if joined := strings.Join(emitted, ""); joined != got {
		t.Errorf("emitted %q != answer %q", joined, got)
	}
	if got != "hello world!" {
		t.Errorf("answer = %q", got)
	}
}

func TestAskStreamNoRetryAfterFragments(t *testing.T) {
	p := &scriptProvider{
		streamFn: func(_ context.Context, call int) (adapter.TokenStream, error) {
			return &fragStream{frags: []string{"partial "}, terminal: faultFromStatus(503, errors.New("cut off"))}, nil
		},
	}
	var emitted []string
	got, err := testClient(p).Ask(context.Background(), model.ModeMedical, adapter.Prompt{}, func(s string) {
		emitted = append(emitted, s)
	})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry once fragments went out)", p.calls)
	}
	if got != "partial " {
		t.Errorf("answer = %q, want emitted prefix", got)
	}
}

func TestAskStreamRetriesWhenNothingEmitted(t *testing.T) {
	p := &scriptProvider{
		streamFn: func(_ context.Context, call int) (adapter.TokenStream, error) {
			if call == 1 {
				return nil, faultFromStatus(429, errors.New("slow down"))
			}
			return &fragStream{frags: []string{"ok"}, terminal: io.EOF}, nil
		},
	}
	got, err := testClient(p).Ask(context.Background(), model.ModeMedical, adapter.Prompt{}, func(string) {})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "ok" {
		t.Errorf("answer = %q", got)
	}
	if p.calls != 2 {
		t.Errorf("calls = %d, want 2", p.calls)
	}
}

func TestLimitedProviderReleasesOnStreamClose(t *testing.T) {
	inner := &scriptProvider{
		streamFn: func(_ context.Context, call int) (adapter.TokenStream, error) {
			return &fragStream{frags: []string{"x"}, terminal: io.EOF}, nil
		},
	}
	lp := NewLimitedProvider(inner, 1)

	s1, err := lp.Stream(context.Background(), adapter.Prompt{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	// Slot is taken; a second stream must block until s1 closes.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := lp.Stream(ctx, adapter.Prompt{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second stream: err = %v, want DeadlineExceeded", err)
	}

	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	s2, err := lp.Stream(context.Background(), adapter.Prompt{})
	if err != nil {
		t.Fatalf("stream after release: %v", err)
	}
	_ = s2.Close()
}
