package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	ErrNoDevice          = errors.New("no output device available")
	ErrUnsupportedFormat = errors.New("unsupported sample format")
)

// SampleSource produces mono samples. Process is called on the audio
// goroutine and must not block.
type SampleSource interface {
	Process(dst []float32)
}

// StreamConfig describes the device stream a StreamReader feeds.
type StreamConfig struct {
	SampleRate int
	Channels   int
	Format     Format
}

func (c StreamConfig) frameSize() int {
	return c.Channels * c.Format.BytesPerSample()
}

func (c StreamConfig) validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	if c.Channels <= 0 {
		return errors.New("channel count must be positive")
	}
	if c.Format.BytesPerSample() == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, c.Format)
	}
	return nil
}

// StreamReader is the io.Reader the device pulls from. Each Read asks the
// source for one mono sample per whole frame that fits in p and writes it
// to every channel.
type StreamReader struct {
	mu     sync.Mutex
	cfg    StreamConfig
	source SampleSource
	buf    []float32
}

func NewStreamReader(cfg StreamConfig, source SampleSource) (*StreamReader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &StreamReader{cfg: cfg, source: source}, nil
}

func (r *StreamReader) Config() StreamConfig { return r.cfg }

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / r.cfg.frameSize()
	if frames == 0 {
		return 0, nil
	}
	if cap(r.buf) < frames {
		r.buf = make([]float32, frames)
	}
	r.buf = r.buf[:frames]
	r.source.Process(r.buf)
	return Encode(p, r.buf, r.cfg.Channels, r.cfg.Format), nil
}

func (r *StreamReader) Close() error { return nil }

// Stream is an open device stream.
type Stream interface {
	Play()
	Close() error
}

// Finisher is implemented by streams that can end on their own, e.g. when
// the underlying writer fails. Done is closed once the stream has ended.
type Finisher interface {
	Done() <-chan struct{}
}

// Output opens device streams. Config resolves FormatNative and any other
// settings the driver fixes, and is what the reader must be built with.
type Output interface {
	Config() StreamConfig
	Open(r io.Reader) (Stream, error)
}
