// Package generate provides text generation backends for chat replies.
package generate

import "context"

// Generator produces a completion for a rendered prompt. Implementations may
// be slow (seconds); callers must not hold locks across a call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
