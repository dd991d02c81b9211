package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"time"
)

type State uint

const (
	WaitingForVoice State = iota
	Recording
	Done
)

func (s State) String() string {
	switch s {
	case WaitingForVoice:
		return "waiting"
	case Recording:
		return "recording"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", uint(s))
	}
}

// DetectorConfig holds the endpointing parameters.
type DetectorConfig struct {
	SampleRate  int
	Threshold   float64       // RMS level a frame must exceed to count as voice
	Silence     time.Duration // trailing silence that ends an utterance
	MaxDuration time.Duration // hard cap on retained audio
}

func (c DetectorConfig) Validate(frame time.Duration) error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", c.SampleRate))
	}
	if c.Threshold < 0 {
		errs = append(errs, fmt.Errorf("threshold must not be negative, got %v", c.Threshold))
	}
	if c.Silence <= 0 {
		errs = append(errs, fmt.Errorf("silence must be positive, got %s", c.Silence))
	}
	if frame <= 0 {
		errs = append(errs, fmt.Errorf("frame duration must be positive, got %s", frame))
	}
	if c.MaxDuration < frame {
		errs = append(errs, fmt.Errorf("max duration %s is shorter than one frame (%s)", c.MaxDuration, frame))
	}
	return errors.Join(errs...)
}

// Detector turns a frame stream into a single bounded utterance using
// amplitude based voice activity detection. It never looks ahead: every
// decision is made on the frame just read.
type Detector struct {
	src FrameSource
	cfg DetectorConfig
}

func NewDetector(src FrameSource, cfg DetectorConfig) *Detector {
	return &Detector{src: src, cfg: cfg}
}

// Capture blocks until an utterance has been recorded. While waiting for voice
// it returns ctx.Err() once ctx is cancelled; after recording has started the
// utterance is always finished. A source returning io.EOF ends capture with
// whatever has been retained so far.
func (d *Detector) Capture(ctx context.Context) (Utterance, error) {
	var (
		state    = WaitingForVoice
		out      []float32
		recorded time.Duration
		silence  time.Duration
	)

	for state != Done {
		if state == WaitingForVoice {
			if err := ctx.Err(); err != nil {
				return Utterance{}, err
			}
		}

		frame, err := d.src.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Utterance{}, fmt.Errorf("read frame: %w", err)
		}

		level := RMS(frame.Samples)

		switch state {
		case WaitingForVoice:
			if level <= d.cfg.Threshold {
				continue
			}
			log.Debug("Voice detected", "rms", level)
			state = Recording

		case Recording:
			if level > d.cfg.Threshold {
				silence = 0
			} else {
				silence += frame.Duration
			}
		}

		out = append(out, frame.Samples...)
		recorded += frame.Duration

		if silence >= d.cfg.Silence {
			log.Debug("Pause detected, stopping", "recorded", recorded)
			state = Done
		} else if recorded+frame.Duration > d.cfg.MaxDuration {
			// frames are fixed size, so the next one would overrun the cap
			log.Debug("Max duration reached, stopping", "recorded", recorded)
			state = Done
		}
	}

	if len(out) == 0 {
		return Utterance{SampleRate: d.cfg.SampleRate}, nil
	}

	return Utterance{
		Samples:    out,
		Duration:   recorded,
		SampleRate: d.cfg.SampleRate,
	}, nil
}
