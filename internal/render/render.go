// Package render bakes an automation timeline into a mono 16-bit WAV file.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cbegin/andromeda-go/internal/automation"
	"github.com/cbegin/andromeda-go/internal/dsp"
	"github.com/cbegin/andromeda-go/internal/params"
)

const (
	bitDepth     = 16
	pcmFormat    = 1
	chunkSamples = 4096
)

// Request describes one offline render.
type Request struct {
	DurationMS uint64             `json:"duration_ms"`
	SampleRate uint32             `json:"sample_rate"`
	Events     []automation.Event `json:"events"`
}

func (r Request) validate() error {
	if r.SampleRate == 0 {
		return errors.New("sample rate must be positive")
	}
	return nil
}

// TotalSamples is floor(durationMS * sampleRate / 1000).
func TotalSamples(durationMS uint64, sampleRate uint32) int {
	return int(float64(durationMS) * float64(sampleRate) / 1000)
}

// ToPCM16 converts a clipped sample to a signed 16-bit value.
func ToPCM16(s float64) int16 {
	v := math.Round(s * math.MaxInt16)
	if v > math.MaxInt16 {
		v = math.MaxInt16
	} else if v < -math.MaxInt16 {
		v = -math.MaxInt16
	}
	return int16(v)
}

// Stream replays req against a private copy of st and hands each chunk of
// PCM samples to emit in order. It is deterministic: the same state and
// request always produce the same samples.
func Stream(st params.State, req Request, emit func([]int) error) error {
	if err := req.validate(); err != nil {
		return err
	}
	state := st
	cursor := automation.NewCursor(req.Events)
	sr := float64(req.SampleRate)
	voice := dsp.NewVoice(sr)
	total := TotalSamples(req.DurationMS, req.SampleRate)

	chunk := make([]int, 0, chunkSamples)
	for i := 0; i < total; i++ {
		tMS := uint64(float64(i) * 1000 / sr)
		cursor.Advance(&state, tMS)
		s := voice.Next(dsp.OfflineFrame(state))
		chunk = append(chunk, int(ToPCM16(s)))
		if len(chunk) == cap(chunk) {
			if err := emit(chunk); err != nil {
				return err
			}
			chunk = chunk[:0]
		}
	}
	if len(chunk) > 0 {
		return emit(chunk)
	}
	return nil
}

// Samples renders req fully into memory.
func Samples(st params.State, req Request) ([]int16, error) {
	out := make([]int16, 0, TotalSamples(req.DurationMS, req.SampleRate))
	err := Stream(st, req, func(chunk []int) error {
		for _, v := range chunk {
			out = append(out, int16(v))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WriteWAV renders req into w as a mono 16-bit PCM WAV and finalizes the
// header.
func WriteWAV(w io.WriteSeeker, st params.State, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}
	enc := wav.NewEncoder(w, int(req.SampleRate), bitDepth, 1, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: int(req.SampleRate)},
		SourceBitDepth: bitDepth,
	}
	wrote := false
	write := func(chunk []int) error {
		buf.Data = chunk
		wrote = true
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("wav write error: %w", err)
		}
		return nil
	}
	if err := Stream(st, req, write); err != nil {
		return err
	}
	// The encoder only emits its header on the first Write.
	if !wrote {
		if err := write([]int{}); err != nil {
			return err
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav finalize error: %w", err)
	}
	return nil
}
