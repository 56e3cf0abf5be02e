package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"strings"
)

const usage = `usage: andromeda <command> [flags]

commands:
  play      run the synth live on the audio device
  render    render automation to WAV files
  generate  generate automation from a prompt
  preset    print or write a preset
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "play":
		err = runPlay(args)
	case "render":
		err = runRender(args)
	case "generate":
		err = runGenerate(args)
	case "preset":
		err = runPreset(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// setupLogging installs a text slog handler on stderr and routes the
// standard logger through it.
func setupLogging(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func newFlagSet(name string) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	verbose := fs.Bool("v", false, "debug logging")
	return fs, verbose
}

func readInput(path string) (*os.File, error) {
	if strings.TrimSpace(path) == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

// sampleRate32 checks a -sample-rate flag value before narrowing it.
func sampleRate32(v uint) (uint32, error) {
	if v == 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("invalid -sample-rate %d (expected 1..%d)", v, uint64(math.MaxUint32))
	}
	return uint32(v), nil
}
