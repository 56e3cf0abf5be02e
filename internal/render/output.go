package render

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cbegin/andromeda-go/internal/params"
)

// OutputDirName is created under the desktop directory for renders.
const OutputDirName = "Andromeda Samples"

var ErrNoDesktop = errors.New("desktop directory not found")

// DesktopDir resolves the user's desktop: XDG_DESKTOP_DIR when set, else
// $HOME/Desktop.
func DesktopDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("XDG_DESKTOP_DIR")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", ErrNoDesktop
	}
	return filepath.Join(home, "Desktop"), nil
}

// DefaultOutputDir is ANDROMEDA_OUTPUT_DIR, or the samples folder on the
// desktop.
func DefaultOutputDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("ANDROMEDA_OUTPUT_DIR")); dir != "" {
		return dir, nil
	}
	desk, err := DesktopDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(desk, OutputDirName), nil
}

// FileName is andromeda-render-<unix millis>.wav.
func FileName(t time.Time) (string, error) {
	millis := t.UnixMilli()
	if millis < 0 {
		return "", errors.New("system time before unix epoch")
	}
	return fmt.Sprintf("andromeda-render-%d.wav", millis), nil
}

// Renderer writes renders into Dir.
type Renderer struct {
	// Dir is the output directory. Empty means DefaultOutputDir.
	Dir    string
	Now    func() time.Time
	Logger *slog.Logger
}

func (r *Renderer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// create opens a new file exclusively. When the timestamped name is taken the
// stamp is bumped by a millisecond until a free name is found.
func (r *Renderer) create(dir string) (*os.File, string, error) {
	t := r.now()
	for attempt := 0; attempt < 1000; attempt++ {
		name, err := FileName(t)
		if err != nil {
			return nil, "", err
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("wav writer error: %w", err)
		}
		t = t.Add(time.Millisecond)
	}
	return nil, "", fmt.Errorf("wav writer error: no free file name in %s", dir)
}

// Render writes st replayed through req to a new WAV file and returns its
// path. The file is synced and closed before Render returns.
func (r *Renderer) Render(st params.State, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	dir := r.Dir
	if dir == "" {
		var err error
		if dir, err = DefaultOutputDir(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	f, path, err := r.create(dir)
	if err != nil {
		return "", err
	}
	start := time.Now()
	if err := WriteWAV(f, st, req); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", fmt.Errorf("wav finalize error: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("wav finalize error: %w", err)
	}
	r.logger().Info("render complete",
		"path", path,
		"samples", TotalSamples(req.DurationMS, req.SampleRate),
		"events", len(req.Events),
		"elapsed", time.Since(start))
	return path, nil
}
