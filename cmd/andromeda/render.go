package main

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cbegin/andromeda-go"
	intauto "github.com/cbegin/andromeda-go/internal/automation"
	intpreset "github.com/cbegin/andromeda-go/internal/preset"
)

func runRender(args []string) error {
	fs, verbose := newFlagSet("render")
	var (
		sampleRate = fs.Uint("sample-rate", 44100, "output sample rate")
		duration   = fs.Uint64("duration", 3000, "duration in ms for -events (timelines carry their own)")
		eventsPath = fs.String("events", "", "JSON event array to render (- for stdin)")
		presetPath = fs.String("preset", "", "preset JSON used as the starting model")
		outDir     = fs.String("out-dir", "", "output directory (default: desktop/Andromeda Samples)")
	)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: andromeda render [flags] [timeline.json ...]")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	logger := setupLogging(*verbose)
	sr, err := sampleRate32(*sampleRate)
	if err != nil {
		return err
	}

	opts := []andromeda.Option{andromeda.WithLogger(logger), andromeda.WithOutputDir(*outDir)}
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

	var reqs []andromeda.RenderRequest
	if *eventsPath != "" {
		f, err := readInput(*eventsPath)
		if err != nil {
			return err
		}
		events, err := intauto.Decode(f)
		f.Close()
		if err != nil {
			return err
		}
		reqs = append(reqs, andromeda.RenderRequest{DurationMS: *duration, SampleRate: sr, Events: events})
	}
	for _, path := range fs.Args() {
		f, err := readInput(path)
		if err != nil {
			return err
		}
		tl, err := intauto.DecodeTimeline(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		reqs = append(reqs, andromeda.RenderRequest{DurationMS: tl.DurationMS, SampleRate: sr, Events: tl.Events()})
	}
	if len(reqs) == 0 {
		reqs = append(reqs, andromeda.RenderRequest{DurationMS: *duration, SampleRate: sr})
	}

	paths := make([]string, len(reqs))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, req := range reqs {
		g.Go(func() error {
			p, err := synth.Render(req)
			if err != nil {
				return err
			}
			paths[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
