package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/cbegin/andromeda-go"
	intgen "github.com/cbegin/andromeda-go/internal/generate"
	intpreset "github.com/cbegin/andromeda-go/internal/preset"
)

func runGenerate(args []string) error {
	fs, verbose := newFlagSet("generate")
	var (
		prompt     = fs.String("prompt", "", "description of the sound to automate")
		duration   = fs.Uint64("duration", 4000, "timeline length in ms")
		luaPath    = fs.String("lua", "", "Lua script generator (default: OpenAI, configured from OPENAI_* env)")
		render     = fs.Bool("render", false, "render the generated events to a WAV file")
		sampleRate = fs.Uint("sample-rate", 44100, "sample rate for -render")
		presetPath = fs.String("preset", "", "preset JSON used as the starting model for -render")
		outDir     = fs.String("out-dir", "", "output directory for -render")
		timeout    = fs.Duration("timeout", 60*time.Second, "generation timeout")
	)
	fs.Parse(args)
	logger := setupLogging(*verbose)
	sr, err := sampleRate32(*sampleRate)
	if err != nil {
		return err
	}

	var gen intgen.Generator
	if *luaPath != "" {
		g, err := intgen.LoadLua(*luaPath)
		if err != nil {
			return err
		}
		gen = g
	} else {
		g, err := intgen.NewOpenAIFromEnv(logger)
		if err != nil {
			return err
		}
		gen = g
	}

	opts := []andromeda.Option{
		andromeda.WithGenerator(gen),
		andromeda.WithLogger(logger),
		andromeda.WithOutputDir(*outDir),
	}
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	events, err := synth.GenerateAutomation(ctx, *prompt, *duration)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return err
	}

	if !*render {
		return nil
	}
	path, err := synth.Render(andromeda.RenderRequest{
		DurationMS: *duration,
		SampleRate: sr,
		Events:     events,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, path)
	return nil
}
