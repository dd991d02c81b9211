package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"voxdialog/internal/lang"
)

type Player interface {
	PlayFile(ctx context.Context, path string) error
}

// Voices maps a language tag to a piper voice model. Unknown languages use
// Default.
type Voices struct {
	Ukrainian string
	Default   string
}

func (v Voices) forLanguage(tag string) string {
	if lang.IsUkrainian(tag) && v.Ukrainian != "" {
		return v.Ukrainian
	}
	return v.Default
}

// Piper renders speech with the piper CLI into a temporary WAV and plays it.
type Piper struct {
	bin    string
	voices Voices
	player Player
	tmpDir string
}

func NewPiper(bin string, voices Voices, player Player) *Piper {
	if bin == "" {
		bin = "piper"
	}
	return &Piper{bin: bin, voices: voices, player: player}
}

func (p *Piper) Speak(ctx context.Context, text, language string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	model := p.voices.forLanguage(language)
	if model == "" {
		return fmt.Errorf("piper: no voice for language %q", language)
	}
	if _, err := os.Stat(model); err != nil {
		return fmt.Errorf("piper: voice model: %w", err)
	}

	out, err := os.CreateTemp(p.tmpDir, "vox-tts-*.wav")
	if err != nil {
		return fmt.Errorf("piper: temp file: %w", err)
	}
	out.Close()
	defer os.Remove(out.Name())

	log.Debug("Synthesizing", "engine", "piper", "lang", language, "voice", filepath.Base(model))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.bin, "--model", model, "--output_file", out.Name())
	cmd.Stdin = strings.NewReader(text)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("piper: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("piper: %w", err)
	}

	if err := p.player.PlayFile(ctx, out.Name()); err != nil {
		return fmt.Errorf("piper: play: %w", err)
	}
	return nil
}
