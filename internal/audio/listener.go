package audio

import (
	"context"
	"fmt"
	log "log/slog"
)

// StreamOpener opens a fresh frame stream for one capture.
type StreamOpener interface {
	OpenStream() (Stream, error)
}

// Listener captures one utterance per call from a newly opened stream, so the
// device is idle between turns (and does not hear the assistant speaking).
type Listener struct {
	opener StreamOpener
	cfg    DetectorConfig
}

func NewListener(opener StreamOpener, cfg DetectorConfig) *Listener {
	return &Listener{opener: opener, cfg: cfg}
}

func (l *Listener) Listen(ctx context.Context) (Utterance, error) {
	stream, err := l.opener.OpenStream()
	if err != nil {
		return Utterance{}, fmt.Errorf("open stream: %w", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			log.Warn("Failed to close stream", "err", err)
		}
	}()

	return NewDetector(stream, l.cfg).Capture(ctx)
}
