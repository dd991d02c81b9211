package audio

import (
	"context"
	"io"
	"math"
	"time"
)

// Frame is one fixed-duration block of mono samples in [-1, 1].
type Frame struct {
	Samples  []float32
	Duration time.Duration
}

// Utterance is the concatenation of the frames judged to be one spoken turn.
type Utterance struct {
	Samples    []float32
	Duration   time.Duration
	SampleRate int
}

func (u Utterance) Empty() bool {
	return len(u.Samples) == 0
}

// FrameSource delivers frames in arrival order. A finite source returns io.EOF
// when it is exhausted.
type FrameSource interface {
	ReadFrame(ctx context.Context) (Frame, error)
}

// Stream is a FrameSource that owns a device or file handle.
type Stream interface {
	FrameSource
	io.Closer
}

// RMS returns the root-mean-square amplitude of the samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var s float64
	for _, x := range samples {
		v := float64(x)
		s += v * v
	}
	return math.Sqrt(s / float64(len(samples)))
}

// FrameSamples is the number of samples in one frame of the given duration.
func FrameSamples(sampleRate int, frame time.Duration) int {
	return int(int64(sampleRate) * int64(frame) / int64(time.Second))
}

// SliceSource replays an in-memory signal as fixed-size frames. The last frame
// may be shorter than the others.
type SliceSource struct {
	samples    []float32
	frameSize  int
	sampleRate int
	pos        int
}

func NewSliceSource(samples []float32, sampleRate int, frame time.Duration) *SliceSource {
	size := FrameSamples(sampleRate, frame)
	if size <= 0 {
		size = 1
	}
	return &SliceSource{
		samples:    samples,
		frameSize:  size,
		sampleRate: sampleRate,
	}
}

func (s *SliceSource) ReadFrame(_ context.Context) (Frame, error) {
	if s.pos >= len(s.samples) {
		return Frame{}, io.EOF
	}

	end := min(s.pos+s.frameSize, len(s.samples))
	chunk := make([]float32, end-s.pos)
	copy(chunk, s.samples[s.pos:end])
	s.pos = end

	return Frame{
		Samples:  chunk,
		Duration: time.Duration(len(chunk)) * time.Second / time.Duration(s.sampleRate),
	}, nil
}

func (s *SliceSource) Close() error { return nil }
