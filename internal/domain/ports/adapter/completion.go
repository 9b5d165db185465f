package adapter

import "context"

// Prompt is one fully-built completion request: the system instruction is
// already mode- and language-specific.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int64
	Temperature float64
}

// TokenStream yields text fragments as the provider decodes them.
// Recv returns io.EOF on natural end of stream. Close releases the
// underlying connection and is safe to call more than once.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// CompletionProvider is the port for the upstream LLM.
type CompletionProvider interface {
	Name() string

	// Complete blocks for the whole response body and returns the answer text.
	Complete(ctx context.Context, p Prompt) (string, error)

	// Stream opens an incremental response. Fragments are produced lazily by
	// the returned TokenStream; cancelling ctx aborts the underlying call.
	Stream(ctx context.Context, p Prompt) (TokenStream, error)
}
