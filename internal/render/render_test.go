package render

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"github.com/cbegin/andromeda-go/internal/automation"
	"github.com/cbegin/andromeda-go/internal/dsp"
	"github.com/cbegin/andromeda-go/internal/params"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestTotalSamples(t *testing.T) {
	cases := []struct {
		ms   uint64
		sr   uint32
		want int
	}{
		{1000, 8000, 8000},
		{3000, 44100, 132300},
		{1, 44100, 44},
		{0, 48000, 0},
	}
	for _, tc := range cases {
		if got := TotalSamples(tc.ms, tc.sr); got != tc.want {
			t.Fatalf("TotalSamples(%d, %d) = %d, want %d", tc.ms, tc.sr, got, tc.want)
		}
	}
}

func TestToPCM16Rounds(t *testing.T) {
	cases := map[float64]int16{0: 0, 1: 32767, -1: -32767, 0.5: 16384, -0.5: -16384, 2: 32767}
	for in, want := range cases {
		if got := ToPCM16(in); got != want {
			t.Fatalf("ToPCM16(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestRenderEndToEnd(t *testing.T) {
	dir := t.TempDir()
	r := &Renderer{Dir: dir, Now: fixedClock(1700000000123)}
	path, err := r.Render(params.Default(), Request{DurationMS: 1000, SampleRate: 8000})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if filepath.Base(path) != "andromeda-render-1700000000123.wav" {
		t.Fatalf("file name = %s", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.SampleRate != 8000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Fatalf("wav format = %d Hz, %d ch, %d bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != 8000 {
		t.Fatalf("samples = %d, want 8000", len(buf.Data))
	}

	phase := 220.0 / 8000
	raw := (2*phase - 1) * 0.7
	a := math.Exp(-2 * math.Pi * 1400 / 8000)
	z := (1 - a) * raw
	want := dsp.SoftClip(z * 0.72 * 0.35)
	first := buf.Data[0]
	if (first < 0) != (want < 0) {
		t.Fatalf("first sample sign = %d, want sign of %v", first, want)
	}
	if d := math.Abs(float64(first) - want*32767); d > 1 {
		t.Fatalf("first sample = %d, want ~%v", first, want*32767)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	events := []automation.Event{
		{TimeMS: 250, Path: "filter.cutoff", Value: automation.Number(6000)},
		{TimeMS: 0, Path: "oscillator.waveform", Value: automation.String("square")},
		{TimeMS: 500, Path: "global.clip_amount", Value: automation.Number(1)},
	}
	req := Request{DurationMS: 800, SampleRate: 22050, Events: events}
	var a, b bytes.Buffer
	wa := &seekBuffer{buf: &a}
	wb := &seekBuffer{buf: &b}
	if err := WriteWAV(wa, params.Default(), req); err != nil {
		t.Fatalf("first render: %v", err)
	}
	if err := WriteWAV(wb, params.Default(), req); err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(wa.Bytes(), wb.Bytes()) {
		t.Fatal("renders differ")
	}
}

func TestRenderAppliesEventsInTimeOrder(t *testing.T) {
	// Silence from 100 ms on. Input order is reversed on purpose.
	events := []automation.Event{
		{TimeMS: 100, Path: "mixer.master", Value: automation.Number(0)},
		{TimeMS: 0, Path: "mixer.master", Value: automation.Number(1)},
	}
	samples, err := Samples(params.Default(), Request{DurationMS: 200, SampleRate: 1000, Events: events})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	loud := false
	for _, s := range samples[:100] {
		if s != 0 {
			loud = true
		}
	}
	if !loud {
		t.Fatal("expected signal before 100 ms")
	}
	for i, s := range samples[100:] {
		if s != 0 {
			t.Fatalf("sample %d = %d after master=0", 100+i, s)
		}
	}
}

func TestRenderIgnoresMalformedEvents(t *testing.T) {
	clean, err := Samples(params.Default(), Request{DurationMS: 100, SampleRate: 8000})
	if err != nil {
		t.Fatalf("clean render: %v", err)
	}
	noisy, err := Samples(params.Default(), Request{DurationMS: 100, SampleRate: 8000, Events: []automation.Event{
		{TimeMS: 0, Path: "oscillator.level", Value: automation.String("loud")},
		{TimeMS: 10, Path: "nonexistent.field", Value: automation.Number(1)},
		{TimeMS: 20, Path: "global.mono", Value: automation.Number(1)},
	}})
	if err != nil {
		t.Fatalf("noisy render: %v", err)
	}
	if len(clean) != len(noisy) {
		t.Fatalf("lengths differ: %d vs %d", len(clean), len(noisy))
	}
	for i := range clean {
		if clean[i] != noisy[i] {
			t.Fatalf("sample %d differs: %d vs %d", i, clean[i], noisy[i])
		}
	}
}

func TestRenderDoesNotMutateInput(t *testing.T) {
	st := params.Default()
	_, err := Samples(st, Request{DurationMS: 10, SampleRate: 8000, Events: []automation.Event{
		{TimeMS: 0, Path: "filter.cutoff", Value: automation.Number(100)},
	}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if st != params.Default() {
		t.Fatal("render mutated the caller's state")
	}
}

func TestRenderUsesClipAmountScale(t *testing.T) {
	st := params.Default()
	st.Global.ClipAmount = 1
	samples, err := Samples(st, Request{DurationMS: 1, SampleRate: 8000})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	v := dsp.NewVoice(8000)
	want := ToPCM16(v.Next(dsp.OfflineFrame(st)))
	if samples[0] != want {
		t.Fatalf("first sample = %d, want %d", samples[0], want)
	}
	lv := dsp.NewVoice(8000)
	if live := ToPCM16(lv.Next(dsp.LiveFrame(st))); live == want {
		t.Fatal("live and offline scales should differ when clip_amount != 0.35")
	}
}

func TestRenderZeroDuration(t *testing.T) {
	r := &Renderer{Dir: t.TempDir(), Now: fixedClock(1)}
	path, err := r.Render(params.Default(), Request{DurationMS: 0, SampleRate: 8000})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(raw) != 44 {
		t.Fatalf("empty render is %d bytes, want a bare 44-byte header", len(raw))
	}
	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" || string(raw[36:40]) != "data" {
		t.Fatalf("bad header % x", raw[:44])
	}
}

func TestRenderRejectsZeroSampleRate(t *testing.T) {
	r := &Renderer{Dir: t.TempDir()}
	if _, err := r.Render(params.Default(), Request{DurationMS: 10}); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestRenderNameCollisionBumpsStamp(t *testing.T) {
	dir := t.TempDir()
	r := &Renderer{Dir: dir, Now: fixedClock(5000)}
	p1, err := r.Render(params.Default(), Request{DurationMS: 5, SampleRate: 8000})
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	p2, err := r.Render(params.Default(), Request{DurationMS: 5, SampleRate: 8000})
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if p1 == p2 {
		t.Fatal("second render overwrote the first")
	}
	if !strings.HasSuffix(p2, "andromeda-render-5001.wav") {
		t.Fatalf("second path = %s", p2)
	}
}

func TestRenderCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", OutputDirName)
	r := &Renderer{Dir: dir, Now: fixedClock(42)}
	if _, err := r.Render(params.Default(), Request{DurationMS: 5, SampleRate: 8000}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestDefaultOutputDirEnv(t *testing.T) {
	t.Setenv("ANDROMEDA_OUTPUT_DIR", "/tmp/andromeda-out")
	dir, err := DefaultOutputDir()
	if err != nil || dir != "/tmp/andromeda-out" {
		t.Fatalf("DefaultOutputDir = %q, %v", dir, err)
	}
	t.Setenv("ANDROMEDA_OUTPUT_DIR", "")
	t.Setenv("XDG_DESKTOP_DIR", "/tmp/desk")
	dir, err = DefaultOutputDir()
	if err != nil || dir != filepath.Join("/tmp/desk", OutputDirName) {
		t.Fatalf("DefaultOutputDir = %q, %v", dir, err)
	}
}

// seekBuffer is an in-memory io.WriteSeeker.
type seekBuffer struct {
	buf *bytes.Buffer
	pos int
	b   []byte
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end > len(s.b) {
		s.b = append(s.b, make([]byte, end-len(s.b))...)
	}
	copy(s.b[s.pos:], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		s.pos = int(offset)
	case 1:
		s.pos += int(offset)
	case 2:
		s.pos = len(s.b) + int(offset)
	}
	return int64(s.pos), nil
}

func (s *seekBuffer) Bytes() []byte {
	s.buf.Reset()
	s.buf.Write(s.b)
	return s.buf.Bytes()
}
