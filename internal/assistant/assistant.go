// Package assistant runs the voice loop: capture an utterance, recognize it,
// hand the text to the dialogue orchestrator and speak the reply.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"voxdialog/internal/audio"
	"voxdialog/internal/bus"
	"voxdialog/internal/dialogue"
	"voxdialog/internal/lang"
	"voxdialog/internal/observe"
	"voxdialog/pkg/stt"
)

type Capturer interface {
	Listen(ctx context.Context) (audio.Utterance, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, pcm []float32) (stt.Result, error)
}

type Handler interface {
	HandleTurn(ctx context.Context, text, language string) (dialogue.Reply, error)
}

type Synthesizer interface {
	Speak(ctx context.Context, text, language string) error
}

type Cue interface {
	Listening(ctx context.Context)
}

type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Publisher interface {
	PublishTurn(ctx context.Context, ev bus.TurnEvent) error
}

// Deps are the collaborators of one assistant. Cue, Ducker, Publisher and
// Metrics may be nil.
type Deps struct {
	Capturer    Capturer
	Recognizer  Recognizer
	Handler     Handler
	Synthesizer Synthesizer
	Cue         Cue
	Ducker      Ducker
	Publisher   Publisher
	Metrics     *observe.Metrics
	// Out receives the transcript block; os.Stdout when nil.
	Out io.Writer
}

// Outcome tells what a single turn ended with.
type Outcome int

const (
	Answered Outcome = iota
	Silent           // no voice was captured
	Unrecognized     // voice captured but no text came out
)

func (o Outcome) String() string {
	switch o {
	case Answered:
		return "answered"
	case Silent:
		return "silent"
	case Unrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

type Assistant struct {
	Deps
	now  func() time.Time
	busy atomic.Bool
}

func New(deps Deps) *Assistant {
	if deps.Metrics == nil {
		deps.Metrics = observe.Nop()
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	return &Assistant{Deps: deps, now: time.Now}
}

// RunOnce performs one full turn. Cancelling ctx interrupts capture; once an
// utterance is recorded the turn is finished regardless of ctx.
func (a *Assistant) RunOnce(ctx context.Context) (Outcome, error) {
	a.busy.Store(true)
	defer a.busy.Store(false)

	start := a.now()

	if a.Cue != nil {
		a.Cue.Listening(ctx)
	}
	log.Info("Listening")

	utt, err := a.capture(ctx)
	recorded := a.now()
	if err != nil {
		a.Metrics.Turn(ctx, observe.TurnFailed)
		return 0, fmt.Errorf("capture: %w", err)
	}
	a.Metrics.Stage(ctx, observe.StageRecord, recorded.Sub(start))
	log.Info("Recorded", "took", recorded.Sub(start).Round(10*time.Millisecond), "audio", utt.Duration)

	if utt.Empty() {
		log.Warn("No sound captured")
		a.Metrics.Turn(ctx, observe.TurnEmpty)
		return Silent, nil
	}

	ctx = context.WithoutCancel(ctx)

	res, err := a.Recognizer.Recognize(ctx, utt.Samples)
	recognized := a.now()
	a.Metrics.Stage(ctx, observe.StageRecognize, recognized.Sub(recorded))
	if err != nil {
		a.Metrics.Turn(ctx, observe.TurnFailed)
		return 0, fmt.Errorf("recognize: %w", err)
	}
	log.Info("Recognized", "took", recognized.Sub(recorded).Round(10*time.Millisecond), "text", res.Text, "language", res.Language)

	text := strings.TrimSpace(res.Text)
	if text == "" {
		log.Warn("Nothing recognized, try again")
		fmt.Fprintln(a.Out, "Nothing recognized, try again.")
		a.Metrics.Turn(ctx, observe.TurnEmpty)
		return Unrecognized, nil
	}

	language := lang.Normalize(text, res.Language)

	reply, err := a.Handler.HandleTurn(ctx, text, language)
	answered := a.now()
	a.Metrics.Stage(ctx, observe.StageDialogue, answered.Sub(recognized))
	if err != nil {
		a.Metrics.Turn(ctx, observe.TurnFailed)
		return 0, fmt.Errorf("dialogue: %w", err)
	}
	log.Info("Model answered", "took", answered.Sub(recognized).Round(10*time.Millisecond))
	if reply.Sources > 0 {
		a.Metrics.WebLookup(ctx)
	}

	a.transcript(text, reply)

	if err := a.Synthesizer.Speak(ctx, reply.Text, reply.Language); err != nil {
		log.Error("Failed to voice out", "err", err)
	}
	spoken := a.now()
	a.Metrics.Stage(ctx, observe.StageSpeech, spoken.Sub(answered))
	log.Info("Spoken", "took", spoken.Sub(answered).Round(10*time.Millisecond))

	total := spoken.Sub(start)
	if a.Publisher != nil {
		ev := bus.TurnEvent{
			ID:         reply.ID,
			Language:   reply.Language,
			UserText:   text,
			Reply:      reply.Text,
			WebQuery:   reply.WebQuery,
			DurationMS: total.Milliseconds(),
		}
		if err := a.Publisher.PublishTurn(ctx, ev); err != nil {
			log.Warn("Failed to publish turn", "err", err)
		}
	}

	a.Metrics.Stage(ctx, observe.StageTurn, total)
	a.Metrics.Turn(ctx, observe.TurnOK)
	log.Info("Full cycle done", "took", total.Round(10*time.Millisecond))

	return Answered, nil
}

// Busy reports whether a turn is in progress.
func (a *Assistant) Busy() bool {
	return a.busy.Load()
}

// capture listens with other applications turned down.
func (a *Assistant) capture(ctx context.Context) (audio.Utterance, error) {
	if a.Ducker != nil {
		if err := a.Ducker.Duck(ctx); err != nil {
			log.Warn("Failed to duck audio", "err", err)
		}
		defer func() {
			if err := a.Ducker.Restore(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to restore audio", "err", err)
			}
		}()
	}
	return a.Capturer.Listen(ctx)
}

func (a *Assistant) transcript(text string, r dialogue.Reply) {
	w := a.Out
	fmt.Fprintln(w, "\n=============================")
	fmt.Fprintln(w, "You said:")
	fmt.Fprintln(w, text)
	fmt.Fprintf(w, "(language: %s)\n", r.Language)
	if r.WebQuery != "" {
		fmt.Fprintf(w, "(web: %q, %d results)\n", r.WebQuery, r.Sources)
	}
	fmt.Fprintln(w, "\nAssistant:")
	fmt.Fprintln(w, r.Text)
	fmt.Fprintln(w, "=============================")
}

// Run performs turns until ctx is cancelled. With a nil triggers channel it
// listens continuously, otherwise one turn per received trigger. Turn errors
// are logged and the loop goes on.
func (a *Assistant) Run(ctx context.Context, triggers <-chan struct{}) error {
	for {
		if triggers != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-triggers:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		outcome, err := a.RunOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return nil
		case err != nil:
			log.Error("Turn failed", "err", err)
			if triggers == nil {
				pause(ctx, time.Second)
			}
		default:
			log.Debug("Turn finished", "outcome", outcome)
		}
	}
}

func pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
