package mic

import (
	"context"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"voxdialog/internal/audio"
)

// Recorder owns the portaudio runtime and opens one input stream per capture.
type Recorder struct {
	sampleRate int
	frame      time.Duration
}

func NewRecorder(sampleRate int, frame time.Duration) *Recorder {
	return &Recorder{sampleRate: sampleRate, frame: frame}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// OpenStream opens the default input device as a mono float32 stream.
func (r *Recorder) OpenStream() (audio.Stream, error) {
	buf := make([]float32, audio.FrameSamples(r.sampleRate, r.frame))

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.sampleRate), len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open default stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}

	return &inputStream{stream: stream, buf: buf, frame: r.frame}, nil
}

type inputStream struct {
	stream *portaudio.Stream
	buf    []float32
	frame  time.Duration
}

// ReadFrame blocks for one frame period; portaudio reads are not cancellable,
// so ctx is only observed between frames by the caller.
func (s *inputStream) ReadFrame(_ context.Context) (audio.Frame, error) {
	// an overflow only means samples were lost while we were busy; the frame is still usable
	if err := s.stream.Read(); err != nil && err != portaudio.InputOverflowed {
		return audio.Frame{}, fmt.Errorf("read stream: %w", err)
	}

	samples := make([]float32, len(s.buf))
	copy(samples, s.buf)

	return audio.Frame{Samples: samples, Duration: s.frame}, nil
}

func (s *inputStream) Close() error {
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return fmt.Errorf("stop stream: %w", err)
	}
	return s.stream.Close()
}
