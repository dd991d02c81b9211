// Package translate bridges Ukrainian turns to and from the English working
// language of the model. Only uk->en and en->uk are translated.
package translate

import (
	"context"
	log "log/slog"
	"strings"

	"voxdialog/internal/lang"
)

// Backend performs one supported translation; it is only called with a
// non-blank text and a supported direction.
type Backend interface {
	translate(ctx context.Context, text, src, dst string) (string, error)
}

// Supported reports whether src->dst is one of the translated directions.
func Supported(src, dst string) bool {
	s, d := base(src), base(dst)
	return (s == lang.Ukrainian && d == lang.English) || (s == lang.English && d == lang.Ukrainian)
}

func base(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch {
	case strings.HasPrefix(tag, lang.Ukrainian):
		return lang.Ukrainian
	case strings.HasPrefix(tag, lang.English):
		return lang.English
	default:
		return tag
	}
}

// Translator applies the direction rules in front of a backend.
type Translator struct {
	backend Backend
}

func New(b Backend) *Translator {
	return &Translator{backend: b}
}

func (t *Translator) Translate(ctx context.Context, text, src, dst string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	if !Supported(src, dst) {
		log.Warn("Unsupported translation direction, keeping original", "src", src, "dst", dst)
		return text, nil
	}

	out, err := t.backend.translate(ctx, text, base(src), base(dst))
	if err != nil {
		return "", err
	}

	log.Debug("Translated", "src", src, "dst", dst, "text", out)
	return strings.TrimSpace(out), nil
}
