package ai

import (
	"context"
	"errors"
	"io"

	"google.golang.org/genai"

	"carechat/internal/domain/ports/adapter"
)

var _ adapter.CompletionProvider = (*GeminiProvider)(nil)

// GeminiProvider uses the official Google SDK. Gemini has no system role
// in chat history, so the system instruction goes through the generation
// config instead.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, baseURL, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: c, model: model}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) Complete(ctx context.Context, p adapter.Prompt) (string, error) {
	chat, err := g.client.Chats.Create(
		ctx,
		g.model,
		&genai.GenerateContentConfig{
			MaxOutputTokens:   int32(p.MaxTokens),
			Temperature:       genai.Ptr(float32(p.Temperature)),
			SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		},
		nil,
	)
	if err != nil {
		return "", classifyGemini(ctx, err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: p.User})
	if err != nil {
		return "", classifyGemini(ctx, err)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		return "", transportFault(errors.New("empty candidates"))
	}
	return text, nil
}

// Stream satisfies the port with a degenerate stream that yields the whole
// answer as one fragment. The SDK's chat surface used here is synchronous;
// callers still get the same event sequence, just without partial tokens.
func (g *GeminiProvider) Stream(ctx context.Context, p adapter.Prompt) (adapter.TokenStream, error) {
	text, err := g.Complete(ctx, p)
	if err != nil {
		return nil, err
	}
	return &singleStream{text: text}, nil
}

func classifyGemini(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return faultFromStatus(apiErr.Code, err)
	}
	return transportFault(err)
}

// singleStream yields one fragment then io.EOF.
type singleStream struct {
	text string
	sent bool
}

func (s *singleStream) Recv() (string, error) {
	if s.sent {
		return "", io.EOF
	}
	s.sent = true
	return s.text, nil
}

func (s *singleStream) Close() error { return nil }
