// Package automation applies timed parameter changes to the synth model.
//
// Every event is a step change at its time. Malformed events never fail: a
// path the model does not know, or a value of the wrong kind for a known
// path, leaves the model untouched.
package automation

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/cbegin/andromeda-go/internal/params"
)

// Event changes one model field at TimeMS. Curve is accepted for
// compatibility with timeline editors and is not interpreted.
type Event struct {
	TimeMS uint64 `json:"time_ms"`
	Path   string `json:"path"`
	Value  Value  `json:"value"`
	Curve  string `json:"curve,omitempty"`
}

type setter func(*params.State, Value)

func number(field func(*params.State) *float64) setter {
	return func(st *params.State, v Value) {
		if f, ok := v.AsNumber(); ok {
			*field(st) = f
		}
	}
}

func boolean(field func(*params.State) *bool) setter {
	return func(st *params.State, v Value) {
		if b, ok := v.AsBool(); ok {
			*field(st) = b
		}
	}
}

var setters = map[string]setter{
	"oscillator.waveform": func(st *params.State, v Value) {
		if s, ok := v.AsString(); ok {
			st.Oscillator.Waveform = s
		}
	},
	"oscillator.tune":    number(func(st *params.State) *float64 { return &st.Oscillator.Tune }),
	"oscillator.level":   number(func(st *params.State) *float64 { return &st.Oscillator.Level }),
	"oscillator.sync":    boolean(func(st *params.State) *bool { return &st.Oscillator.Sync }),
	"filter.cutoff":      number(func(st *params.State) *float64 { return &st.Filter.Cutoff }),
	"filter.resonance":   number(func(st *params.State) *float64 { return &st.Filter.Resonance }),
	"filter.env_amount":  number(func(st *params.State) *float64 { return &st.Filter.EnvAmount }),
	"filter.drive":       number(func(st *params.State) *float64 { return &st.Filter.Drive }),
	"mixer.noise":        number(func(st *params.State) *float64 { return &st.Mixer.Noise }),
	"mixer.sub":          number(func(st *params.State) *float64 { return &st.Mixer.Sub }),
	"mixer.master":       number(func(st *params.State) *float64 { return &st.Mixer.Master }),
	"global.mono":        boolean(func(st *params.State) *bool { return &st.Global.Mono }),
	"global.glide":       number(func(st *params.State) *float64 { return &st.Global.Glide }),
	"global.clip_amount": number(func(st *params.State) *float64 { return &st.Global.ClipAmount }),
}

// Apply mutates the single field named by ev.Path. It reports whether the
// event changed anything it was allowed to change; callers may ignore it.
func Apply(st *params.State, ev Event) bool {
	set, ok := setters[ev.Path]
	if !ok {
		return false
	}
	before := *st
	set(st, ev.Value)
	return before != *st
}

// Paths lists the recognized paths in sorted order.
func Paths() []string {
	out := make([]string, 0, len(setters))
	for p := range setters {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Known reports whether path names a model field.
func Known(path string) bool {
	_, ok := setters[path]
	return ok
}

// Sort returns a copy of events ordered by TimeMS. Events with equal times
// keep their input order.
func Sort(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeMS < out[j].TimeMS })
	return out
}

// Cursor replays a sorted event list against a model as time advances.
type Cursor struct {
	events []Event
	next   int
}

// NewCursor sorts events and positions the cursor before the first one.
func NewCursor(events []Event) *Cursor {
	return &Cursor{events: Sort(events)}
}

// Advance applies, in order, every pending event with TimeMS <= nowMS and
// returns how many were consumed.
func (c *Cursor) Advance(st *params.State, nowMS uint64) int {
	n := 0
	for c.next < len(c.events) && c.events[c.next].TimeMS <= nowMS {
		Apply(st, c.events[c.next])
		c.next++
		n++
	}
	return n
}

// Remaining is the number of events not yet applied.
func (c *Cursor) Remaining() int {
	return len(c.events) - c.next
}

// Decode reads a JSON array of events.
func Decode(r io.Reader) ([]Event, error) {
	var events []Event
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode automation events: %w", err)
	}
	return events, nil
}
