package audio

import (
	"fmt"
	"io"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioContext == nil {
		return nil, ErrNoDevice
	}
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// EbitenOutput plays through the ebiten audio context: always stereo, float32
// or signed 16-bit.
type EbitenOutput struct {
	cfg StreamConfig
}

func NewEbitenOutput(sampleRate int, format Format) (*EbitenOutput, error) {
	switch format {
	case FormatNative:
		format = FormatFloat32
	case FormatFloat32, FormatInt16:
	default:
		return nil, fmt.Errorf("%w: ebiten output cannot play %s", ErrUnsupportedFormat, format)
	}
	cfg := StreamConfig{SampleRate: sampleRate, Channels: 2, Format: format}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &EbitenOutput{cfg: cfg}, nil
}

func (o *EbitenOutput) Config() StreamConfig { return o.cfg }

func (o *EbitenOutput) Open(r io.Reader) (Stream, error) {
	ctx, err := sharedAudioContext(o.cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	var pl *ebitaudio.Player
	if o.cfg.Format == FormatFloat32 {
		pl, err = ctx.NewPlayerF32(r)
	} else {
		pl, err = ctx.NewPlayer(r)
	}
	if err != nil {
		return nil, fmt.Errorf("open ebiten player: %w", err)
	}
	return &ebitenStream{player: pl}, nil
}

type ebitenStream struct {
	player *ebitaudio.Player
}

func (s *ebitenStream) Play() { s.player.Play() }

func (s *ebitenStream) Close() error {
	s.player.Pause()
	return s.player.Close()
}
