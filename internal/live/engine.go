// Package live runs the synth continuously on an audio output device.
package live

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cbegin/andromeda-go/internal/audio"
	"github.com/cbegin/andromeda-go/internal/dsp"
	"github.com/cbegin/andromeda-go/internal/params"
)

// fallbackFrame is used when the model lock is contended and no snapshot has
// been taken yet: a 220 Hz sine at default levels.
func fallbackFrame() dsp.Frame {
	st := params.Default()
	st.Oscillator.Waveform = dsp.Sine.String()
	st.Oscillator.Tune = 0
	return dsp.LiveFrame(st)
}

// source is the device-side half of a running stream. It owns the voice and
// is only touched from the audio goroutine.
type source struct {
	store    *params.Store
	voice    *dsp.Voice
	last     dsp.Frame
	haveLast bool
	misses   *atomic.Int64
	logger   *slog.Logger
}

func (s *source) frame() dsp.Frame {
	st, ok := s.store.TryGet()
	if ok {
		s.last = dsp.LiveFrame(st)
		s.haveLast = true
		return s.last
	}
	if s.misses.Add(1) == 1 {
		s.logger.Debug("model lock busy on audio callback; using fallback parameters", "have_last", s.haveLast)
	}
	if s.haveLast {
		return s.last
	}
	return fallbackFrame()
}

// Process takes one snapshot per callback and renders every frame from it.
func (s *source) Process(dst []float32) {
	f := s.frame()
	for i := range dst {
		dst[i] = float32(s.voice.Next(f))
	}
}

// Engine is the Stopped/Running state machine around one output stream.
type Engine struct {
	mu     sync.Mutex
	store  *params.Store
	output audio.Output
	stream audio.Stream
	misses atomic.Int64
	logger *slog.Logger
}

func NewEngine(store *params.Store, output audio.Output, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, output: output, logger: logger}
}

// Start opens the output and begins playback. It returns false, with no
// error, when the engine is already running.
func (e *Engine) Start() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reapLocked()
	if e.stream != nil {
		return false, nil
	}
	if e.output == nil {
		return false, audio.ErrNoDevice
	}
	cfg := e.output.Config()
	e.misses.Store(0)
	src := &source{
		store:  e.store,
		voice:  dsp.NewVoice(float64(cfg.SampleRate)),
		misses: &e.misses,
		logger: e.logger,
	}
	reader, err := audio.NewStreamReader(cfg, src)
	if err != nil {
		return false, err
	}
	stream, err := e.output.Open(reader)
	if err != nil {
		return false, err
	}
	stream.Play()
	e.stream = stream
	e.logger.Info("audio started", "sample_rate", cfg.SampleRate, "channels", cfg.Channels, "format", cfg.Format.String())
	return true, nil
}

// Stop releases the stream and reports whether the engine had been running.
func (e *Engine) Stop() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reapLocked()
	if e.stream == nil {
		return false, nil
	}
	err := e.stream.Close()
	e.stream = nil
	e.logger.Info("audio stopped", "fallback_callbacks", e.misses.Load())
	return true, err
}

func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reapLocked()
	return e.stream != nil
}

// reapLocked moves the engine back to Stopped when the stream has ended on
// its own. Caller holds e.mu.
func (e *Engine) reapLocked() {
	f, ok := e.stream.(audio.Finisher)
	if !ok {
		return
	}
	select {
	case <-f.Done():
	default:
		return
	}
	err := e.stream.Close()
	e.stream = nil
	e.logger.Warn("audio stream ended", "err", err, "fallback_callbacks", e.misses.Load())
}

// FallbackCount is the number of callbacks in the current or last run that
// could not read the model.
func (e *Engine) FallbackCount() int64 {
	return e.misses.Load()
}
