// Package clip replays an audio file as if it were the microphone.
package clip

import (
	"fmt"
	"time"

	"voxdialog/internal/audio"
	"voxdialog/pkg/audioconv"
)

// Source opens the same file for every capture.
type Source struct {
	path       string
	sampleRate int
	frame      time.Duration
}

func New(path string, sampleRate int, frame time.Duration) *Source {
	return &Source{path: path, sampleRate: sampleRate, frame: frame}
}

func (s *Source) OpenStream() (audio.Stream, error) {
	pcm, err := audioconv.Load(s.path, audioconv.Options{SampleRate: s.sampleRate})
	if err != nil {
		return nil, fmt.Errorf("load clip: %w", err)
	}

	return audio.NewSliceSource(pcm, s.sampleRate, s.frame), nil
}
