package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

const DefaultSampleRate = 16000

type Options struct {
	SampleRate int // target rate, DefaultSampleRate when zero
	MaxSamples int // 0 = no limit
}

// pcm is a decoded, still interleaved signal at its native rate.
type pcm struct {
	samples  []float32
	rate     int
	channels int
}

// Load decodes a wav/mp3/ogg file into mono float32 samples at opt.SampleRate.
func Load(path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := decode(f, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	return p.normalize(opt), nil
}

func decode(f *os.File, ext string) (pcm, error) {
	switch ext {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".ogg", ".oga", ".opus":
		return decodeOgg(f)
	}

	br := bufio.NewReader(f)
	magic, _ := br.Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return pcm{}, err
	}

	switch string(magic) {
	case "RIFF":
		return decodeWAV(f)
	case "OggS":
		return decodeOgg(f)
	default:
		return pcm{}, fmt.Errorf("unsupported format %q (supported: wav, mp3, ogg vorbis/opus)", ext)
	}
}

// decodeOgg tries Vorbis first and falls back to Opus on the same file.
func decodeOgg(f *os.File) (pcm, error) {
	p, vorbisErr := decodeVorbis(f)
	if vorbisErr == nil {
		return p, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return pcm{}, err
	}

	p, opusErr := decodeOpus(f)
	if opusErr != nil {
		return pcm{}, fmt.Errorf("not vorbis (%v) and not opus (%w)", vorbisErr, opusErr)
	}
	return p, nil
}

func decodeWAV(r io.ReadSeeker) (pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return pcm{}, errors.New("invalid wav")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm{}, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return pcm{}, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	p := pcm{
		samples:  intsToFloat32(buf.Data, depth),
		rate:     44100,
		channels: 1,
	}
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			p.channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			p.rate = buf.Format.SampleRate
		}
	}
	return p, nil
}

func decodeMP3(r io.Reader) (pcm, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return pcm{}, err
	}

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return pcm{}, err
	}

	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return pcm{}, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}

	// go-mp3 always produces interleaved stereo
	return pcm{samples: int16sToFloat32(ints), rate: rate, channels: 2}, nil
}

func decodeVorbis(r io.Reader) (pcm, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return pcm{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return pcm{}, errors.New("invalid ogg/vorbis stream")
	}
	return pcm{samples: samples, rate: format.SampleRate, channels: format.Channels}, nil
}

func (p pcm) normalize(opt Options) []float32 {
	rate := opt.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	x := downmix(p.samples, p.channels)
	x = resampleLinear(x, p.rate, rate)

	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}
