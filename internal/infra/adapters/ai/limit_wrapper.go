package ai

import (
	"context"

	"carechat/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.CompletionProvider = (*limitedProvider)(nil)

type limitedProvider struct {
	inner adapter.CompletionProvider
	sem   chan struct{}
}

// NewLimitedProvider caps concurrent upstream calls. For streams the slot
// is held until the stream is closed, since the upstream connection stays
// open that long.
func NewLimitedProvider(inner adapter.CompletionProvider, maxConcurrent int) adapter.CompletionProvider {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedProvider{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedProvider) Name() string { return l.inner.Name() }

func (l *limitedProvider) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *limitedProvider) Complete(ctx context.Context, p adapter.Prompt) (string, error) {
	if err := l.acquire(ctx); err != nil {
		return "", err
	}
	defer func() { <-l.sem }()
	return l.inner.Complete(ctx, p)
}

func (l *limitedProvider) Stream(ctx context.Context, p adapter.Prompt) (adapter.TokenStream, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	s, err := l.inner.Stream(ctx, p)
	if err != nil {
		<-l.sem
		return nil, err
	}
	return &limitedStream{inner: s, release: func() { <-l.sem }}, nil
}

type limitedStream struct {
	inner    adapter.TokenStream
	release  func()
	released bool
}

func (s *limitedStream) Recv() (string, error) { return s.inner.Recv() }

func (s *limitedStream) Close() error {
	if !s.released {
		s.released = true
		s.release()
	}
	return s.inner.Close()
}
