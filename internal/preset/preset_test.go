package preset

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cbegin/andromeda-go/internal/params"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lead.json")
	st := params.Default()
	st.Oscillator.Waveform = "square"
	st.Filter.Cutoff = 3200
	st.Global.Mono = true
	if err := Save(path, st); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != st {
		t.Fatalf("loaded %+v, want %+v", got, st)
	}
}

func TestDecodePartialKeepsDefaults(t *testing.T) {
	got, err := Decode([]byte(`{"filter": {"cutoff": 900}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := params.Default()
	want.Filter.Cutoff = 900
	if got != want {
		t.Fatalf("decoded %+v, want %+v", got, want)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	if _, err := Decode([]byte(`{"filter": {"cutof": 900}}`)); err == nil {
		t.Fatal("expected error for misspelled field")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

type recordingSetter struct {
	mu   sync.Mutex
	sets []params.State
}

func (r *recordingSetter) Set(st params.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets = append(r.sets, st)
	return nil
}

func (r *recordingSetter) last() (params.State, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sets) == 0 {
		return params.State{}, 0
	}
	return r.sets[len(r.sets)-1], len(r.sets)
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patch.json")
	if err := Save(path, params.Default()); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec := &recordingSetter{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, rec, nil) }()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644)
	next := params.Default()
	next.Oscillator.Tune = 7
	if err := Save(path, next); err != nil {
		t.Fatalf("save: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if st, n := rec.last(); n > 0 && st.Oscillator.Tune == 7 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	st, n := rec.last()
	if n == 0 {
		t.Fatal("watcher never reloaded the preset")
	}
	if st.Oscillator.Tune != 7 {
		t.Fatalf("reloaded tune = %v, want 7", st.Oscillator.Tune)
	}
}

func TestWatchSkipsBrokenPreset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patch.json")
	if err := Save(path, params.Default()); err != nil {
		t.Fatalf("save: %v", err)
	}
	store := params.NewStore(params.Default())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, store, nil) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"filter": `), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	cancel()
	<-done
	if store.Get() != params.Default() {
		t.Fatal("broken preset changed the store")
	}
}
