package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	otoCtx      *oto.Context
	otoInitOnce sync.Once
	otoInitErr  error
	otoConfig   StreamConfig
)

func ensureOtoContext(cfg StreamConfig) (*oto.Context, error) {
	otoInitOnce.Do(func() {
		format := oto.FormatFloat32LE
		if cfg.Format == FormatInt16 {
			format = oto.FormatSignedInt16LE
		}
		op := &oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: cfg.Channels,
			Format:       format,
			BufferSize:   50 * time.Millisecond,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		<-ready
		otoConfig = cfg
	})
	if otoInitErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, otoInitErr)
	}
	if otoConfig != cfg {
		return nil, fmt.Errorf("oto context already initialized as %d Hz/%dch/%s", otoConfig.SampleRate, otoConfig.Channels, otoConfig.Format)
	}
	return otoCtx, nil
}

// OtoOutput plays through an oto context with a configurable channel count.
type OtoOutput struct {
	cfg StreamConfig
}

func NewOtoOutput(sampleRate, channels int, format Format) (*OtoOutput, error) {
	switch format {
	case FormatNative:
		format = FormatFloat32
	case FormatFloat32, FormatInt16:
	default:
		return nil, fmt.Errorf("%w: oto output cannot play %s", ErrUnsupportedFormat, format)
	}
	if channels == 0 {
		channels = 2
	}
	cfg := StreamConfig{SampleRate: sampleRate, Channels: channels, Format: format}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &OtoOutput{cfg: cfg}, nil
}

func (o *OtoOutput) Config() StreamConfig { return o.cfg }

func (o *OtoOutput) Open(r io.Reader) (Stream, error) {
	ctx, err := ensureOtoContext(o.cfg)
	if err != nil {
		return nil, err
	}
	return &otoStream{player: ctx.NewPlayer(r)}, nil
}

type otoStream struct {
	player *oto.Player
}

func (s *otoStream) Play() { s.player.Play() }

func (s *otoStream) Close() error {
	s.player.Pause()
	return s.player.Close()
}
