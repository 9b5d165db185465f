package ai

import (
	"context"
	"io"
	"strings"
	"time"

	"carechat/internal/domain/ports/adapter"
)

var _ adapter.CompletionProvider = (*MockProvider)(nil)

// MockProvider serves canned answers for local development so the whole
// pipeline (relay, persistence, rate limits) can run without credentials.
// Streaming emits the answer word by word with a small delay to make the
// token events visible in a browser.
type MockProvider struct {
	delay time.Duration
}

func NewMockProvider() *MockProvider {
	return &MockProvider{delay: 40 * time.Millisecond}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) answer(p adapter.Prompt) string {
	sys := strings.ToLower(p.System)
	switch {
	case strings.Contains(sys, "recipe"):
		return "Title: Simple Herb Omelette\n\nIngredients:\n- 2 eggs\n- 1 tbsp butter\n- fresh herbs, salt, pepper\n\nSteps:\n1. Whisk the eggs with salt and pepper.\n2. Melt the butter over medium heat.\n3. Pour in the eggs and let them set for a minute.\n4. Scatter the herbs on top.\n5. Fold and slide onto a plate.\n\nTime: 10 minutes\nApprox. 220 kcal per serving."
	case strings.Contains(sys, "dental"):
		return "Thanks for describing that. Where exactly is the pain, and is there any swelling or sensitivity to hot or cold? This is general information only; a dentist should examine you for a diagnosis."
	case strings.Contains(sys, "therap"):
		return "That sounds like a lot to carry. What has this been like for you day to day? I am not a licensed therapist, and if you are in crisis please contact your local emergency services."
	default:
		return "I can share general information about that, but I cannot give you a definitive diagnosis. Could you tell me how long you have had these symptoms? If they worsen suddenly, please see a doctor."
	}
}

func (m *MockProvider) Complete(ctx context.Context, p adapter.Prompt) (string, error) {
	select {
	case <-time.After(m.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return m.answer(p), nil
}

func (m *MockProvider) Stream(ctx context.Context, p adapter.Prompt) (adapter.TokenStream, error) {
	words := strings.SplitAfter(m.answer(p), " ")
	return &mockStream{ctx: ctx, delay: m.delay, words: words}, nil
}

type mockStream struct {
	ctx   context.Context
	delay time.Duration
	words []string
	i     int
}

func (s *mockStream) Recv() (string, error) {
	if s.i >= len(s.words) {
		return "", io.EOF
	}
	select {
	case <-time.After(s.delay):
	case <-s.ctx.Done():
		return "", s.ctx.Err()
	}
	w := s.words[s.i]
	s.i++
	return w, nil
}

func (s *mockStream) Close() error {
	s.i = len(s.words)
	return nil
}
