// Package dsp contains the per-sample signal functions shared by the live
// engine and the offline renderer. Both call sites must go through Voice.Next
// so their output stays identical for identical inputs.
package dsp

import (
	"math"

	"github.com/cbegin/andromeda-go/internal/params"
)

const twoPi = math.Pi * 2

const (
	// RootHz is the pitch at tune = 0.
	RootHz = 220.0
	// LiveScale is the fixed soft-clip input scale used by the live path.
	LiveScale = 0.35

	minCutoff    = 20.0
	maxCutoff    = 20000.0
	minClip      = 0.05
	maxClip      = 1.0
	maxFeedback  = 3.5
	feedbackGain = 3.0
)

type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Saw
	Square
)

// ParseWaveform maps a stored tag to a waveform. Unrecognized tags are sine.
func ParseWaveform(tag string) Waveform {
	switch tag {
	case "triangle":
		return Triangle
	case "saw":
		return Saw
	case "square":
		return Square
	default:
		return Sine
	}
}

func (w Waveform) String() string {
	switch w {
	case Triangle:
		return "triangle"
	case Saw:
		return "saw"
	case Square:
		return "square"
	default:
		return "sine"
	}
}

// Wave returns the waveform value in [-1, 1] at phase in [0, 1).
func Wave(w Waveform, phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Saw:
		return 2*phase - 1
	case Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(twoPi * phase)
	}
}

// Pitch converts a semitone offset to Hz.
func Pitch(tune float64) float64 {
	return RootHz * math.Pow(2, tune/12)
}

func AdvancePhase(phase, freq, sampleRate float64) float64 {
	return math.Mod(phase+freq/sampleRate, 1.0)
}

// Coefficient is the one-pole smoothing coefficient for cutoff at sampleRate.
func Coefficient(cutoff, sampleRate float64) float64 {
	return math.Exp(-twoPi * cutoff / sampleRate)
}

// Feedback is the resonance pre-emphasis factor, capped at 3.5.
func Feedback(resonance float64) float64 {
	return math.Min(1+resonance*feedbackGain, maxFeedback)
}

// FilterStep runs one step of the resonant one-pole low-pass and returns the
// new filter state, which is also the filtered output.
func FilterStep(input, zPrev, a, feedback float64) float64 {
	in := input - zPrev*(feedback-1)
	return (1-a)*in + a*zPrev
}

// SoftClip is x / (1 + |x|).
func SoftClip(x float64) float64 {
	return x / (1 + math.Abs(x))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Frame is the DSP-relevant part of the model with read-time clamps applied.
type Frame struct {
	Waveform  Waveform
	Freq      float64
	Level     float64
	Cutoff    float64
	Resonance float64
	Master    float64
	Scale     float64
}

// NewFrame reads the fields the kernel uses out of st. scale is the soft-clip
// input scale and is passed through unchanged.
func NewFrame(st params.State, scale float64) Frame {
	return Frame{
		Waveform:  ParseWaveform(st.Oscillator.Waveform),
		Freq:      Pitch(st.Oscillator.Tune),
		Level:     clamp(st.Oscillator.Level, 0, 1),
		Cutoff:    clamp(st.Filter.Cutoff, minCutoff, maxCutoff),
		Resonance: clamp(st.Filter.Resonance, 0, 1),
		Master:    clamp(st.Mixer.Master, 0, 1),
		Scale:     scale,
	}
}

// LiveFrame uses the fixed live scale.
func LiveFrame(st params.State) Frame {
	return NewFrame(st, LiveScale)
}

// OfflineFrame scales the soft clip by the clamped clip_amount.
func OfflineFrame(st params.State) Frame {
	return NewFrame(st, clamp(st.Global.ClipAmount, minClip, maxClip))
}

// Voice carries the phase accumulator and filter state between samples. The
// owner (a live stream or a render) keeps one Voice for its lifetime.
type Voice struct {
	SampleRate float64
	Phase      float64
	Z          float64
}

func NewVoice(sampleRate float64) *Voice {
	return &Voice{SampleRate: sampleRate}
}

// Next advances the voice one sample and returns the clipped output.
func (v *Voice) Next(f Frame) float64 {
	v.Phase = AdvancePhase(v.Phase, f.Freq, v.SampleRate)
	raw := Wave(f.Waveform, v.Phase) * f.Level
	v.Z = FilterStep(raw, v.Z, Coefficient(f.Cutoff, v.SampleRate), Feedback(f.Resonance))
	return SoftClip(v.Z * f.Master * f.Scale)
}

// Reset zeros phase and filter state.
func (v *Voice) Reset() {
	v.Phase = 0
	v.Z = 0
}
