package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// WriterOutput streams raw interleaved PCM to an io.Writer, e.g. stdout piped
// into aplay or sox. It accepts every format. With Realtime set, each chunk
// is paced to its playback duration; otherwise the writer's own blocking
// paces the stream.
type WriterOutput struct {
	cfg      StreamConfig
	w        io.Writer
	Realtime bool
	// FramesPerChunk is the number of frames pulled per write. Zero means 512.
	FramesPerChunk int
	// OnError receives the write error that ends the stream, if any.
	OnError func(error)
	// CloseTimeout bounds how long Close waits for a write stuck on a
	// stalled writer. Zero means one second.
	CloseTimeout time.Duration
}

// ErrStalled is returned by Close when the pump is still blocked in Write
// after CloseTimeout. The pump exits once that Write returns.
var ErrStalled = errors.New("raw output stalled in write")

func NewWriterOutput(w io.Writer, sampleRate, channels int, format Format) (*WriterOutput, error) {
	if format == FormatNative {
		format = FormatInt16
	}
	if channels == 0 {
		channels = 1
	}
	cfg := StreamConfig{SampleRate: sampleRate, Channels: channels, Format: format}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: nil writer", ErrNoDevice)
	}
	return &WriterOutput{cfg: cfg, w: w}, nil
}

func (o *WriterOutput) Config() StreamConfig { return o.cfg }

func (o *WriterOutput) Open(r io.Reader) (Stream, error) {
	frames := o.FramesPerChunk
	if frames <= 0 {
		frames = 512
	}
	return &writerStream{
		out:   o,
		r:     r,
		buf:   make([]byte, frames*o.cfg.frameSize()),
		chunk: time.Duration(float64(frames) / float64(o.cfg.SampleRate) * float64(time.Second)),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}, nil
}

type writerStream struct {
	out   *WriterOutput
	r     io.Reader
	buf   []byte
	chunk time.Duration

	once    sync.Once
	started bool
	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
}

func (s *writerStream) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.pump()
}

func (s *writerStream) pump() {
	defer close(s.done)
	var tick *time.Ticker
	if s.out.Realtime {
		tick = time.NewTicker(s.chunk)
		defer tick.Stop()
	}
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		n, err := s.r.Read(s.buf)
		if n > 0 {
			if _, werr := s.out.w.Write(s.buf[:n]); werr != nil {
				s.fail(werr)
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.fail(err)
			}
			return
		}
		if tick != nil {
			select {
			case <-s.stop:
				return
			case <-tick.C:
			}
		}
	}
}

func (s *writerStream) fail(err error) {
	if s.out.OnError != nil {
		s.out.OnError(err)
	}
}

// Done is closed when the pump has exited, either after Close or because the
// writer or reader failed.
func (s *writerStream) Done() <-chan struct{} { return s.done }

func (s *writerStream) Close() error {
	s.once.Do(func() { close(s.stop) })
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}
	timeout := s.out.CloseTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-s.done:
		return nil
	case <-t.C:
		return ErrStalled
	}
}
