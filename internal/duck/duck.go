// Package duck lowers the volume of other applications while the assistant
// listens, and restores it afterwards.
package duck

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"
)

const maxVolume = 150

type Stream struct {
	ID      int
	Volume  int // percent
	AppName string
}

// Mixer lists playback streams and sets their volume.
type Mixer interface {
	Streams(ctx context.Context) ([]Stream, error)
	SetVolume(ctx context.Context, id, percent int) error
}

type Config struct {
	Factor    float64       // target = current * Factor
	MinVolume int           // floor for ducked streams
	Fade      time.Duration // 0 = jump
	Ignore    []string      // application names left alone
}

type Ducker struct {
	mu       sync.Mutex
	mixer    Mixer
	cfg      Config
	active   bool
	original map[int]int // stream id -> volume before ducking
	sleep    func(time.Duration)
}

func New(mixer Mixer, cfg Config) *Ducker {
	cfg.MinVolume = min(max(cfg.MinVolume, 0), maxVolume)
	if cfg.Factor < 0 {
		cfg.Factor = 0
	}
	return &Ducker{
		mixer:    mixer,
		cfg:      cfg,
		original: make(map[int]int),
		sleep:    time.Sleep,
	}
}

type fade struct {
	id, from, to int
}

func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.mixer.Streams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	d.original = make(map[int]int)
	var fades []fade
	for _, s := range streams {
		if slices.Contains(d.cfg.Ignore, s.AppName) {
			continue
		}

		target := math.Max(float64(s.Volume)*d.cfg.Factor, float64(d.cfg.MinVolume))
		to := int(math.Round(math.Min(target, maxVolume)))
		if to >= s.Volume {
			continue
		}

		d.original[s.ID] = s.Volume
		fades = append(fades, fade{id: s.ID, from: s.Volume, to: to})
	}

	d.active = true
	return d.apply(ctx, fades)
}

// Restore brings ducked streams back to their volume before Duck. Streams
// that appeared in between are not touched.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.mixer.Streams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	var fades []fade
	for _, s := range streams {
		if orig, ok := d.original[s.ID]; ok {
			fades = append(fades, fade{id: s.ID, from: s.Volume, to: orig})
		}
	}

	d.original = make(map[int]int)
	d.active = false
	return d.apply(ctx, fades)
}

func (d *Ducker) apply(ctx context.Context, fades []fade) error {
	if len(fades) == 0 {
		return nil
	}

	const step = 10 * time.Millisecond
	steps := max(int(d.cfg.Fade/step), 1)
	pause := d.cfg.Fade / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			if err := d.mixer.SetVolume(ctx, f.id, v); err != nil {
				return fmt.Errorf("set volume of %d: %w", f.id, err)
			}
		}

		if i < steps && pause > 0 {
			d.sleep(pause)
		}
	}
	return nil
}
