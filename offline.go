package andromeda

import (
	"io"

	intrender "github.com/cbegin/andromeda-go/internal/render"
)

// RenderSamples renders req against st into memory as 16-bit PCM. It does
// not touch any Synth; st is used as the starting model.
func RenderSamples(st State, req RenderRequest) ([]int16, error) {
	return intrender.Samples(st, req)
}

// RenderWAV writes the render of req against st to w as a mono 16-bit WAV.
func RenderWAV(w io.WriteSeeker, st State, req RenderRequest) error {
	return intrender.WriteWAV(w, st, req)
}

// RenderTimeline renders a timeline over its own duration.
func RenderTimeline(st State, tl Timeline, sampleRate uint32) ([]int16, error) {
	return intrender.Samples(st, RenderRequest{
		DurationMS: tl.DurationMS,
		SampleRate: sampleRate,
		Events:     tl.Events(),
	})
}
