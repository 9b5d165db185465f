package usecase

import (
	"context"
	"sync"
	"time"

	"carechat/internal/domain/model"
	"carechat/internal/domain/ports/adapter"
	"carechat/internal/ratelimit"
)

// memStore is an in-memory MessageStore for tests.
type memStore struct {
	mu   sync.Mutex
	msgs []*model.ChatMessage

	createErr error
	lastLimit int
}

func (s *memStore) Create(_ context.Context, m *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *m
	s.msgs = append(s.msgs, &cp)
	return nil
}

func (s *memStore) List(_ context.Context, userID string, mode model.Mode, limit int) ([]*model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	var out []*model.ChatMessage
	for _, m := range s.msgs {
		if m.UserID == userID && m.Mode == mode {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) all() []*model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.ChatMessage, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// waitFor polls until cond holds or the deadline passes.
func (s *memStore) waitFor(cond func(n int) bool, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.msgs)
		s.mu.Unlock()
		if cond(n) {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// fakeCompleter scripts the upstream behavior.
type fakeCompleter struct {
	frags  []string
	answer string
	err    error
}

func (f *fakeCompleter) Provider() string { return "fake" }

func (f *fakeCompleter) Ask(_ context.Context, _ model.Mode, _ adapter.Prompt, emit func(string)) (string, error) {
	if emit != nil {
		for _, fr := range f.frags {
			emit(fr)
		}
	}
	return f.answer, f.err
}

// fakeLimiter scripts rate-limit decisions.
type fakeLimiter struct {
	decision ratelimit.Decision
	err      error
	keys     []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (ratelimit.Decision, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return ratelimit.Decision{}, f.err
	}
	return f.decision, nil
}

func allowAll() *fakeLimiter {
	return &fakeLimiter{decision: ratelimit.Decision{Allowed: true, Remaining: 1}}
}

// recordSink captures stream callbacks in order.
type recordSink struct {
	metaLang, metaDir string
	metaCalls         int
	tokens            []string
	tokenBeforeMeta   bool
}

func (r *recordSink) Meta(language, direction string) {
	r.metaCalls++
	r.metaLang, r.metaDir = language, direction
}

func (r *recordSink) Token(fragment string) {
	if r.metaCalls == 0 {
		r.tokenBeforeMeta = true
	}
	r.tokens = append(r.tokens, fragment)
}
