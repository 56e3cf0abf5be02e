// Package andromeda is a monophonic subtractive synthesizer: a shared
// parameter model played live on an audio device, and an offline renderer
// that bakes automation timelines into WAV files.
package andromeda

import (
	"context"
	"errors"
	"log/slog"

	intaudio "github.com/cbegin/andromeda-go/internal/audio"
	intauto "github.com/cbegin/andromeda-go/internal/automation"
	intgen "github.com/cbegin/andromeda-go/internal/generate"
	intlive "github.com/cbegin/andromeda-go/internal/live"
	intparams "github.com/cbegin/andromeda-go/internal/params"
	intrender "github.com/cbegin/andromeda-go/internal/render"
)

type (
	State           = intparams.State
	AutomationEvent = intauto.Event
	Timeline        = intauto.Timeline
	RenderRequest   = intrender.Request
)

// DefaultState is the model installed at startup and by ResetState.
func DefaultState() State { return intparams.Default() }

type Option func(*config)

type config struct {
	output    intaudio.Output
	outputDir string
	generator intgen.Generator
	logger    *slog.Logger
	initial   State
}

func defaultConfig() config {
	return config{initial: intparams.Default()}
}

// WithOutput selects the audio output used by StartAudio. Without it the
// ebiten output at 48 kHz in its native format is used.
func WithOutput(out intaudio.Output) Option {
	return func(cfg *config) {
		cfg.output = out
	}
}

// WithOutputDir overrides the render directory.
func WithOutputDir(dir string) Option {
	return func(cfg *config) {
		cfg.outputDir = dir
	}
}

// WithGenerator installs the automation generator used by GenerateAutomation.
func WithGenerator(g intgen.Generator) Option {
	return func(cfg *config) {
		cfg.generator = g
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// WithInitialState starts the model from st instead of the defaults.
func WithInitialState(st State) Option {
	return func(cfg *config) {
		cfg.initial = st
	}
}

// Synth is the control surface a front end drives.
type Synth struct {
	store     *intparams.Store
	engine    *intlive.Engine
	renderer  *intrender.Renderer
	generator intgen.Generator
	logger    *slog.Logger
}

func New(opts ...Option) (*Synth, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if err := cfg.initial.Validate(); err != nil {
		return nil, err
	}
	if cfg.output == nil {
		out, err := intaudio.NewEbitenOutput(48000, intaudio.FormatNative)
		if err != nil {
			return nil, err
		}
		cfg.output = out
	}
	store := intparams.NewStore(cfg.initial)
	return &Synth{
		store:     store,
		engine:    intlive.NewEngine(store, cfg.output, cfg.logger),
		renderer:  &intrender.Renderer{Dir: cfg.outputDir, Logger: cfg.logger},
		generator: cfg.generator,
		logger:    cfg.logger,
	}, nil
}

// Store exposes the shared model, e.g. for a preset watcher.
func (s *Synth) Store() *intparams.Store { return s.store }

func (s *Synth) GetState() State { return s.store.Get() }

func (s *Synth) SetState(next State) error { return s.store.Set(next) }

func (s *Synth) ResetState() State { return s.store.Reset() }

// UpdateState applies fn to the live model under its lock and returns the
// result.
func (s *Synth) UpdateState(fn func(*State)) State { return s.store.Update(fn) }

// StartAudio reports true if this call started playback, false if it was
// already running.
func (s *Synth) StartAudio() (bool, error) { return s.engine.Start() }

// StopAudio reports whether playback had been running.
func (s *Synth) StopAudio() (bool, error) { return s.engine.Stop() }

func (s *Synth) IsAudioRunning() bool { return s.engine.IsRunning() }

// Render snapshots the current model, replays req against the snapshot and
// returns the path of the written WAV file. Edits made while rendering do
// not affect the output.
func (s *Synth) Render(req RenderRequest) (string, error) {
	return s.renderer.Render(s.store.Get(), req)
}

var ErrNoGenerator = errors.New("no automation generator configured")

// GenerateAutomation asks the configured generator for an event list.
func (s *Synth) GenerateAutomation(ctx context.Context, prompt string, durationMS uint64) ([]AutomationEvent, error) {
	if s.generator == nil {
		return nil, ErrNoGenerator
	}
	return s.generator.Generate(ctx, intgen.Request{Prompt: prompt, DurationMS: durationMS})
}

// Close stops audio if it is running.
func (s *Synth) Close() error {
	_, err := s.engine.Stop()
	return err
}
