// Package params holds the synthesizer's adjustable state and the lock that
// serializes access to it.
package params

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrNonFinite is returned by Store.Set when a numeric field is NaN or Inf.
var ErrNonFinite = errors.New("non-finite parameter value")

// Envelope is carried for schema compatibility; the DSP kernel does not read it.
type Envelope struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
}

type Oscillator struct {
	Waveform string  `json:"waveform"`
	Tune     float64 `json:"tune"` // semitones relative to 220 Hz
	Level    float64 `json:"level"`
	Sync     bool    `json:"sync"`
}

type Filter struct {
	Cutoff    float64 `json:"cutoff"` // Hz
	Resonance float64 `json:"resonance"`
	EnvAmount float64 `json:"env_amount"`
	Drive     float64 `json:"drive"`
}

type Mixer struct {
	Noise  float64 `json:"noise"`
	Sub    float64 `json:"sub"`
	Master float64 `json:"master"`
}

type Global struct {
	Mono       bool    `json:"mono"`
	Glide      float64 `json:"glide"`
	ClipAmount float64 `json:"clip_amount"`
}

// State is the full parameter model. Values are stored unclamped; every
// consumer clamps its own inputs at read time.
type State struct {
	Envelope   Envelope   `json:"envelope"`
	Oscillator Oscillator `json:"oscillator"`
	Filter     Filter     `json:"filter"`
	Mixer      Mixer      `json:"mixer"`
	Global     Global     `json:"global"`
}

func Default() State {
	return State{
		Envelope: Envelope{
			Attack:  0.02,
			Decay:   0.25,
			Sustain: 0.7,
			Release: 0.4,
		},
		Oscillator: Oscillator{
			Waveform: "saw",
			Tune:     0,
			Level:    0.7,
			Sync:     true,
		},
		Filter: Filter{
			Cutoff:    1400,
			Resonance: 0.35,
			EnvAmount: 0.55,
			Drive:     0.2,
		},
		Mixer: Mixer{
			Noise:  0.12,
			Sub:    0.3,
			Master: 0.72,
		},
		Global: Global{
			Mono:       false,
			Glide:      0.05,
			ClipAmount: 0.35,
		},
	}
}

// Validate reports the first numeric field that is NaN or infinite.
func (s State) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"envelope.attack", s.Envelope.Attack},
		{"envelope.decay", s.Envelope.Decay},
		{"envelope.sustain", s.Envelope.Sustain},
		{"envelope.release", s.Envelope.Release},
		{"oscillator.tune", s.Oscillator.Tune},
		{"oscillator.level", s.Oscillator.Level},
		{"filter.cutoff", s.Filter.Cutoff},
		{"filter.resonance", s.Filter.Resonance},
		{"filter.env_amount", s.Filter.EnvAmount},
		{"filter.drive", s.Filter.Drive},
		{"mixer.noise", s.Mixer.Noise},
		{"mixer.sub", s.Mixer.Sub},
		{"mixer.master", s.Mixer.Master},
		{"global.glide", s.Global.Glide},
		{"global.clip_amount", s.Global.ClipAmount},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s: %w", f.name, ErrNonFinite)
		}
	}
	return nil
}

// Store is the single shared model instance. A coarse mutex guards the whole
// state; there is no per-field locking.
type Store struct {
	mu    sync.Mutex
	state State
}

func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TryGet is the real-time read: it never blocks, and reports false when the
// lock is held by another goroutine.
func (s *Store) TryGet() (State, bool) {
	if !s.mu.TryLock() {
		return State{}, false
	}
	st := s.state
	s.mu.Unlock()
	return st, true
}

// Set replaces the entire state.
func (s *Store) Set(next State) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	return nil
}

// Reset installs and returns the default state.
func (s *Store) Reset() State {
	def := Default()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = def
	return def
}

// Update applies fn to the state under the lock.
func (s *Store) Update(fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	return s.state
}
