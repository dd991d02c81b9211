package translate

import (
	"context"
	"errors"
	"fmt"

	"voxdialog/internal/reply"
)

type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

var names = map[string]string{
	"uk": "Ukrainian",
	"en": "English",
}

// Model translates with a general purpose language model.
type Model struct {
	gen   Generator
	model string
}

func NewModel(gen Generator, model string) *Model {
	return &Model{gen: gen, model: model}
}

func (m *Model) translate(ctx context.Context, text, src, dst string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s.\n"+
			"Output only the translation, without quotes, notes or explanations.\n\n%s",
		names[src], names[dst], text)

	raw, err := m.gen.Generate(ctx, m.model, prompt)
	if err != nil {
		return "", fmt.Errorf("model translate: %w", err)
	}

	out := reply.Parse(raw)
	if out.Answer == "" {
		return "", errors.New("model translate: empty translation")
	}
	return out.Answer, nil
}
