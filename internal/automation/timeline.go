package automation

import (
	"encoding/json"
	"fmt"
	"io"
)

type Keyframe struct {
	TimeMS uint64 `json:"time_ms"`
	Value  Value  `json:"value"`
	Curve  string `json:"curve,omitempty"`
}

type Track struct {
	Path      string     `json:"path"`
	Keyframes []Keyframe `json:"keyframes"`
}

// Timeline is the editor-side representation: one track of keyframes per
// parameter path.
type Timeline struct {
	DurationMS uint64  `json:"duration_ms"`
	Tracks     []Track `json:"tracks"`
}

// Events flattens the timeline into a time-ordered event list. Keyframes at
// the same time keep track order.
func (t Timeline) Events() []Event {
	var events []Event
	for _, tr := range t.Tracks {
		for _, kf := range tr.Keyframes {
			events = append(events, Event{
				TimeMS: kf.TimeMS,
				Path:   tr.Path,
				Value:  kf.Value,
				Curve:  kf.Curve,
			})
		}
	}
	return Sort(events)
}

func DecodeTimeline(r io.Reader) (Timeline, error) {
	var t Timeline
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return Timeline{}, fmt.Errorf("decode timeline: %w", err)
	}
	return t, nil
}
