package ai

import (
	"context"
	"errors"
	"io"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/ssestream"

	"carechat/internal/domain/ports/adapter"
)

var _ adapter.CompletionProvider = (*OpenAIProvider)(nil)

// OpenAIProvider talks to the OpenAI chat completions API through the
// official SDK. SDK-level retries are disabled; the retry policy lives in
// Client so it can account for fragments already relayed to the peer.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: empty api key")
	}
	return &OpenAIProvider{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
		model: model,
	}, nil
}

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) params(p adapter.Prompt) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
		MaxTokens:   openai.Int(p.MaxTokens),
		Temperature: openai.Float(p.Temperature),
	}
}

func (o *OpenAIProvider) Complete(ctx context.Context, p adapter.Prompt) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(p))
	if err != nil {
		return "", classifyOpenAI(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", transportFault(errors.New("empty choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) Stream(ctx context.Context, p adapter.Prompt) (adapter.TokenStream, error) {
	s := o.client.Chat.Completions.NewStreaming(ctx, o.params(p))
	if err := s.Err(); err != nil {
		_ = s.Close()
		return nil, classifyOpenAI(ctx, err)
	}
	return &openAIStream{ctx: ctx, s: s}, nil
}

type openAIStream struct {
	ctx context.Context
	s   *ssestream.Stream[openai.ChatCompletionChunk]
}

// Recv skips housekeeping chunks (role-only deltas, usage frames) and
// returns the next non-empty text fragment.
func (st *openAIStream) Recv() (string, error) {
	for st.s.Next() {
		chunk := st.s.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if c := chunk.Choices[0].Delta.Content; c != "" {
			return c, nil
		}
	}
	if err := st.s.Err(); err != nil {
		return "", classifyOpenAI(st.ctx, err)
	}
	return "", io.EOF
}

func (st *openAIStream) Close() error { return st.s.Close() }

func classifyOpenAI(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return faultFromStatus(apiErr.StatusCode, err)
	}
	return transportFault(err)
}
