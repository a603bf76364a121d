// Package translate wraps the translation collaborator: a fallible,
// latency-bearing text-in text-out service, plus a manual phrase dictionary
// consulted before it.
package translate

import "context"

// Translator converts text into the target language. Implementations are
// expected to fail; callers fall back to the untranslated text.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Noop returns the input unchanged. Used when no provider is configured.
type Noop struct{}

// Translate implements Translator.
func (Noop) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}
