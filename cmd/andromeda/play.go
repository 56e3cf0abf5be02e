package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/cbegin/andromeda-go"
	intaudio "github.com/cbegin/andromeda-go/internal/audio"
	intpreset "github.com/cbegin/andromeda-go/internal/preset"
)

func runPlay(args []string) error {
	fs, verbose := newFlagSet("play")
	var (
		backend     = fs.String("backend", "ebiten", "audio output: ebiten|oto|raw (raw writes PCM to stdout)")
		formatName  = fs.String("format", "native", "sample format: native|f32|s16|u16")
		sampleRate  = fs.Int("sample-rate", 48000, "output sample rate")
		channels    = fs.Int("channels", 2, "channel count (oto, raw)")
		presetPath  = fs.String("preset", "", "preset JSON to load")
		watch       = fs.Bool("watch", false, "reload -preset when the file changes")
		interactive = fs.Bool("interactive", false, "edit parameters from the keyboard")
	)
	fs.Parse(args)
	logger := setupLogging(*verbose)

	format, err := intaudio.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	out, err := newOutput(*backend, *sampleRate, *channels, format, logger)
	if err != nil {
		return err
	}

	opts := []andromeda.Option{andromeda.WithOutput(out), andromeda.WithLogger(logger)}
	if *presetPath != "" {
		st, err := intpreset.Load(*presetPath)
		if err != nil {
			return err
		}
		opts = append(opts, andromeda.WithInitialState(st))
	}
	synth, err := andromeda.New(opts...)
	if err != nil {
		return err
	}
	defer synth.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		if *presetPath == "" {
			return fmt.Errorf("-watch requires -preset")
		}
		go func() {
			if err := intpreset.Watch(ctx, *presetPath, synth.Store(), logger); err != nil && ctx.Err() == nil {
				logger.Error("preset watcher stopped", "err", err)
			}
		}()
	}

	if _, err := synth.StartAudio(); err != nil {
		return err
	}
	if *interactive {
		return runKeyboard(ctx, synth, stop)
	}
	<-ctx.Done()
	return nil
}

func newOutput(backend string, sampleRate, channels int, format intaudio.Format, logger *slog.Logger) (intaudio.Output, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "ebiten":
		return intaudio.NewEbitenOutput(sampleRate, format)
	case "oto":
		return intaudio.NewOtoOutput(sampleRate, channels, format)
	case "raw":
		out, err := intaudio.NewWriterOutput(os.Stdout, sampleRate, channels, format)
		if err != nil {
			return nil, err
		}
		out.OnError = func(err error) { logger.Error("raw output stopped", "err", err) }
		return out, nil
	default:
		return nil, fmt.Errorf("invalid -backend %q (expected ebiten|oto|raw)", backend)
	}
}

// runKeyboard reads single keys from a raw terminal and applies them to the
// live model until q or ctrl-c.
func runKeyboard(ctx context.Context, synth *andromeda.Synth, cancel context.CancelFunc) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("-interactive needs a terminal on stdin")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	defer term.Restore(fd, old)

	fmt.Fprint(os.Stderr, keyHelp+"\r\n")
	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				cancel()
				return
			}
			if n == 1 {
				select {
				case keys <- buf[0]:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case k := <-keys:
			var quit bool
			st := synth.UpdateState(func(st *andromeda.State) {
				quit = applyKey(st, k)
			})
			if quit {
				return nil
			}
			fmt.Fprintf(os.Stderr, "\r%s\x1b[K", describe(st))
		}
	}
}
