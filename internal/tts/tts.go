// Package tts turns reply text into speech.
package tts

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
)

type Synthesizer interface {
	Speak(ctx context.Context, text, lang string) error
}

// Nop is used when speech output is disabled.
type Nop struct{}

func (Nop) Speak(context.Context, string, string) error { return nil }

// Chain tries each synthesizer in order until one succeeds.
type Chain []Synthesizer

func (c Chain) Speak(ctx context.Context, text, lang string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var errs []error
	for i, s := range c {
		err := s.Speak(ctx, text, lang)
		if err == nil {
			return nil
		}
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
		if i < len(c)-1 {
			log.Warn("Speech engine failed, trying next", "err", err)
		}
	}

	if len(errs) == 0 {
		return errors.New("no speech engine configured")
	}
	return fmt.Errorf("all speech engines failed: %w", errors.Join(errs...))
}
