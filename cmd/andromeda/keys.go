package main

import (
	"fmt"

	"github.com/cbegin/andromeda-go"
)

const keyHelp = "keys: 1-4 waveform  t/T tune  c/C cutoff  r/R resonance  l/L level  m/M master  k/K clip  0 reset  q quit"

var waveforms = map[byte]string{'1': "sine", '2': "triangle", '3': "saw", '4': "square"}

func nudge(v *float64, delta float64) { *v += delta }

// applyKey edits st for one keystroke and reports whether the key asks to
// quit. Values are left unclamped like any other model edit.
func applyKey(st *andromeda.State, k byte) bool {
	if w, ok := waveforms[k]; ok {
		st.Oscillator.Waveform = w
		return false
	}
	switch k {
	case 'q', 0x03:
		return true
	case 't':
		nudge(&st.Oscillator.Tune, -1)
	case 'T':
		nudge(&st.Oscillator.Tune, 1)
	case 'c':
		st.Filter.Cutoff /= 1.1
	case 'C':
		st.Filter.Cutoff *= 1.1
	case 'r':
		nudge(&st.Filter.Resonance, -0.05)
	case 'R':
		nudge(&st.Filter.Resonance, 0.05)
	case 'l':
		nudge(&st.Oscillator.Level, -0.05)
	case 'L':
		nudge(&st.Oscillator.Level, 0.05)
	case 'm':
		nudge(&st.Mixer.Master, -0.05)
	case 'M':
		nudge(&st.Mixer.Master, 0.05)
	case 'k':
		nudge(&st.Global.ClipAmount, -0.05)
	case 'K':
		nudge(&st.Global.ClipAmount, 0.05)
	case '0':
		*st = andromeda.DefaultState()
	}
	return false
}

func describe(st andromeda.State) string {
	return fmt.Sprintf("wave=%s tune=%+.0f level=%.2f cutoff=%.0fHz res=%.2f master=%.2f clip=%.2f",
		st.Oscillator.Waveform, st.Oscillator.Tune, st.Oscillator.Level,
		st.Filter.Cutoff, st.Filter.Resonance, st.Mixer.Master, st.Global.ClipAmount)
}
