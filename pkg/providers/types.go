package providers

import "context"

// LanguageModel is the completion collaborator for the reply engine and
// the memory summarizer. Implementations are blocking and may be slow;
// callers bound them with the context.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleteFunc adapts a function to the LanguageModel interface,
// mostly for deterministic fakes in tests.
type CompleteFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleteFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
