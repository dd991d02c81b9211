// Package llm holds the text generation backends. Both return the model's raw
// text; splitting reasoning from the answer is left to the caller.
package llm

import "context"

const DefaultTimeoutSeconds = 120

type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}
