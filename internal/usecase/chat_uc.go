// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"carechat/internal/config"
	"carechat/internal/domain"
	"carechat/internal/domain/model"
	"carechat/internal/domain/ports/adapter"
	"carechat/internal/domain/ports/repository"
	"carechat/internal/infra/logging"
	"carechat/internal/infra/metrics"
	"carechat/internal/infra/worker"
	"carechat/internal/lang"
	"carechat/internal/prompt"
	"carechat/internal/ratelimit"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

// listCap bounds how much history one List call can return.
const listCap = 200

type ChatUseCase interface {
	Send(ctx context.Context, in SendInput) (*SendResult, error)
	List(ctx context.Context, in ListInput) ([]*model.ChatMessage, error)
}

// Completer is the upstream call policy (deadline, retry, streaming).
// Satisfied by ai.Client.
type Completer interface {
	Provider() string
	Ask(ctx context.Context, mode model.Mode, p adapter.Prompt, emit func(string)) (string, error)
}

// StreamSink receives stream-phase callbacks during a streamed send: the
// meta callback once, before any fragment, then each fragment in arrival
// order. Implementations must not block indefinitely.
type StreamSink interface {
	Meta(language, direction string)
	Token(fragment string)
}

type SendInput struct {
	UserID  string
	IP      string
	Mode    model.Mode
	Message string
	Sink    StreamSink // nil for a blocking, non-streamed send
}

type SendResult struct {
	UserMessage      *model.ChatMessage
	AssistantMessage *model.ChatMessage
	Language         lang.Code
	Direction        string
	Disclaimer       string
	Fallback         bool
}

type ListInput struct {
	UserID string
	IP     string
	Mode   model.Mode
	Limit  int
}

type chatUC struct {
	store    repository.MessageStore
	prompts  *prompt.Builder
	upstream Completer
	limits   ratelimit.Store
	rlCfg    config.RateLimitConfig
	pool     *worker.Pool
	log      *zerolog.Logger
	dev      bool
}

func NewChatUseCase(
	store repository.MessageStore,
	prompts *prompt.Builder,
	upstream Completer,
	limits ratelimit.Store,
	rlCfg config.RateLimitConfig,
	pool *worker.Pool,
	log *zerolog.Logger,
	dev bool,
) *chatUC {
	return &chatUC{
		store:    store,
		prompts:  prompts,
		upstream: upstream,
		limits:   limits,
		rlCfg:    rlCfg,
		pool:     pool,
		log:      log,
		dev:      dev,
	}
}

// Send runs one full conversation turn. Whatever the upstream does, a
// successful user-message write is always followed by an assistant write:
// the real answer, the emitted partial on cancellation, or the mode's
// fallback text. History never ends on a user turn.
func (c *chatUC) Send(ctx context.Context, in SendInput) (*SendResult, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(message) > model.MaxMessageLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", domain.ErrInvalidInput, model.MaxMessageLen)
	}

	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "ChatUC.Send")()
	log.Debug().
		Str("preview", logging.Redact(message, c.dev)).
		Int("chars", utf8.RuneCountInString(message)).
		Msg("chat send")

	if err := c.allow(ctx, ratelimit.SendKey(in.UserID, in.IP), c.rlCfg.Send, "send"); err != nil {
		return nil, err
	}

	code := lang.Detect(message)
	direction := lang.Direction(code)

	userMsg := model.NewChatMessage(ulid.Make().String(), in.UserID, model.RoleUser, in.Mode, message)
	if err := c.store.Create(ctx, userMsg); err != nil {
		metrics.ObserveRequest(string(in.Mode), "store_error")
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	res := &SendResult{
		UserMessage: userMsg,
		Language:    code,
		Direction:   direction,
		Disclaimer:  c.prompts.Disclaimer(in.Mode, code),
	}

	if in.Sink != nil {
		in.Sink.Meta(string(code), direction)
	}

	var emit func(string)
	if in.Sink != nil {
		emit = in.Sink.Token
	}
	p := adapter.Prompt{
		System: c.prompts.Build(in.Mode, code),
		User:   message,
	}

	answer, err := c.upstream.Ask(ctx, in.Mode, p, emit)
	switch {
	case err == nil && strings.TrimSpace(answer) != "":
		answer = lang.Normalize(answer, code)
		assistant := model.NewChatMessage(ulid.Make().String(), in.UserID, model.RoleAssistant, in.Mode, answer)
		if serr := c.store.Create(ctx, assistant); serr != nil {
			c.log.Error().Err(serr).Str("user_id", in.UserID).Msg("assistant message write failed")
		}
		res.AssistantMessage = assistant
		metrics.ObserveRequest(string(in.Mode), "ok")
		return res, nil

	case errors.Is(err, context.Canceled):
		// Peer is gone. Preserve whatever it already saw, detached from
		// the dead context.
		content := lang.Normalize(answer, code)
		if strings.TrimSpace(content) == "" {
			content = c.prompts.Fallback(in.Mode, code)
			res.Fallback = true
		}
		assistant := model.NewChatMessage(ulid.Make().String(), in.UserID, model.RoleAssistant, in.Mode, content)
		c.detachedWrite(assistant)
		res.AssistantMessage = assistant
		metrics.StreamCancelled()
		metrics.ObserveRequest(string(in.Mode), "cancelled")
		return res, context.Canceled

	default:
		// Covers upstream faults and the empty-answer edge.
		if err == nil {
			err = fmt.Errorf("%w: empty answer", domain.ErrUpstream)
		}
		fallback := c.prompts.Fallback(in.Mode, code)
		assistant := model.NewChatMessage(ulid.Make().String(), in.UserID, model.RoleAssistant, in.Mode, fallback)
		if serr := c.store.Create(ctx, assistant); serr != nil {
			c.log.Error().Err(serr).Str("user_id", in.UserID).Msg("fallback write failed")
		}
		res.AssistantMessage = assistant
		res.Fallback = true
		metrics.Fallback(string(in.Mode))
		metrics.ObserveRequest(string(in.Mode), "error")
		return res, err
	}
}

func (c *chatUC) List(ctx context.Context, in ListInput) ([]*model.ChatMessage, error) {
	if err := c.allow(ctx, ratelimit.ListKey(in.UserID, in.IP), c.rlCfg.List, "list"); err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit <= 0 || limit > listCap {
		limit = listCap
	}
	msgs, err := c.store.List(ctx, in.UserID, in.Mode, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// allow consults the rate-limit store. A broken store fails open: one chat
// answer is cheaper than refusing everyone while Redis restarts.
func (c *chatUC) allow(ctx context.Context, key string, cfg config.LimitConfig, op string) error {
	d, err := c.limits.Allow(ctx, key, cfg.Limit, cfg.Window)
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("rate limit store unavailable, failing open")
		return nil
	}
	if !d.Allowed {
		metrics.RateLimited(op)
		return &domain.RateLimitError{RetryAfter: d.RetryAfter}
	}
	return nil
}

// detachedWrite persists a message on the worker pool with a fresh deadline
// so a caller disconnect cannot abort it. Best effort.
func (c *chatUC) detachedWrite(m *model.ChatMessage) {
	err := c.pool.Submit(func(context.Context) error {
		wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if werr := c.store.Create(wctx, m); werr != nil {
			c.log.Error().Err(werr).Str("message_id", m.ID).Msg("detached assistant write failed")
		}
		return nil
	})
	if err != nil {
		c.log.Error().Err(err).Str("message_id", m.ID).Msg("worker pool rejected detached write")
	}
}
