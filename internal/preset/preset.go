// Package preset stores the parameter model as JSON and keeps a store in
// sync with a preset file while it is being edited.
package preset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cbegin/andromeda-go/internal/params"
)

// Decode reads a preset. Fields missing from the document keep their
// default values, so a partial preset is always a complete model.
func Decode(data []byte) (params.State, error) {
	st := params.Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&st); err != nil {
		return params.State{}, fmt.Errorf("decode preset: %w", err)
	}
	return st, nil
}

func Load(path string) (params.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return params.State{}, fmt.Errorf("load preset: %w", err)
	}
	return Decode(data)
}

// Save writes st atomically: a temp file in the same directory is renamed
// over path.
func Save(path string, st params.State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preset-*.json")
	if err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save preset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save preset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save preset: %w", err)
	}
	return nil
}

// Setter receives reloaded models. *params.Store satisfies it.
type Setter interface {
	Set(params.State) error
}

// settle coalesces the burst of events a single editor save produces.
const settle = 50 * time.Millisecond

// Watch reloads path into dst whenever it changes, until ctx is done. The
// parent directory is watched so editors that replace the file by rename are
// followed. A preset that fails to parse is logged and skipped; the store
// keeps its previous state.
func Watch(ctx context.Context, path string, dst Setter, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch preset: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch preset: %w", err)
	}

	reload := func() {
		st, err := Load(abs)
		if err != nil {
			logger.Warn("preset reload skipped", "path", abs, "err", err)
			return
		}
		if err := dst.Set(st); err != nil {
			logger.Warn("preset rejected", "path", abs, "err", err)
			return
		}
		logger.Info("preset reloaded", "path", abs)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			reload()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("preset watcher error", "err", err)
		}
	}
}
