package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

type rampSource struct {
	next  float32
	calls int
}

func (s *rampSource) Process(dst []float32) {
	s.calls++
	for i := range dst {
		dst[i] = s.next
		s.next += 0.25
		if s.next > 1 {
			s.next = -1
		}
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":        FormatNative,
		"native":  FormatNative,
		"f32":     FormatFloat32,
		"FLOAT32": FormatFloat32,
		"s16":     FormatInt16,
		"i16":     FormatInt16,
		"u16":     FormatUint16,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseFormat("u8"); err == nil {
		t.Fatal("ParseFormat(u8) should fail")
	}
}

func TestEncodeDuplicatesAcrossChannels(t *testing.T) {
	mono := []float32{0.5, -0.25}
	cases := []struct {
		format Format
		check  func(t *testing.T, b []byte, i int, want float32)
	}{
		{FormatFloat32, func(t *testing.T, b []byte, i int, want float32) {
			got := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
			if got != want {
				t.Fatalf("f32 sample %d = %v, want %v", i, got, want)
			}
		}},
		{FormatInt16, func(t *testing.T, b []byte, i int, want float32) {
			got := int16(binary.LittleEndian.Uint16(b[i*2:]))
			exp := int16(math.Round(float64(want) * 32767))
			if got != exp {
				t.Fatalf("s16 sample %d = %v, want %v", i, got, exp)
			}
		}},
		{FormatUint16, func(t *testing.T, b []byte, i int, want float32) {
			got := binary.LittleEndian.Uint16(b[i*2:])
			exp := uint16(int32(math.Round(float64(want)*32767)) + 32768)
			if got != exp {
				t.Fatalf("u16 sample %d = %v, want %v", i, got, exp)
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.format.String(), func(t *testing.T) {
			const channels = 3
			buf := make([]byte, len(mono)*channels*tc.format.BytesPerSample())
			n := Encode(buf, mono, channels, tc.format)
			if n != len(buf) {
				t.Fatalf("wrote %d bytes, want %d", n, len(buf))
			}
			for f, v := range mono {
				for c := 0; c < channels; c++ {
					tc.check(t, buf, f*channels+c, v)
				}
			}
		})
	}
}

func TestEncodeClampsIntegerFormats(t *testing.T) {
	buf := make([]byte, 4)
	Encode(buf, []float32{2, -2}, 1, FormatInt16)
	if hi := int16(binary.LittleEndian.Uint16(buf)); hi != 32767 {
		t.Fatalf("clamped high = %d, want 32767", hi)
	}
	if lo := int16(binary.LittleEndian.Uint16(buf[2:])); lo != -32767 {
		t.Fatalf("clamped low = %d, want -32767", lo)
	}
	Encode(buf, []float32{0}, 1, FormatUint16)
	if mid := binary.LittleEndian.Uint16(buf); mid != 32768 {
		t.Fatalf("u16 silence = %d, want 32768", mid)
	}
}

func TestStreamReaderWholeFramesOnly(t *testing.T) {
	src := &rampSource{}
	r, err := NewStreamReader(StreamConfig{SampleRate: 48000, Channels: 2, Format: FormatInt16}, src)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	p := make([]byte, 4*10+3)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 40 {
		t.Fatalf("n = %d, want 40", n)
	}
	if src.calls != 1 {
		t.Fatalf("source calls = %d, want one per read", src.calls)
	}
	n, _ = r.Read(make([]byte, 3))
	if n != 0 {
		t.Fatalf("short buffer read n = %d, want 0", n)
	}
}

func TestStreamReaderRejectsBadConfig(t *testing.T) {
	_, err := NewStreamReader(StreamConfig{SampleRate: 48000, Channels: 2, Format: FormatNative}, &rampSource{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := NewStreamReader(StreamConfig{SampleRate: 0, Channels: 2, Format: FormatInt16}, &rampSource{}); err == nil {
		t.Fatal("zero sample rate should fail")
	}
}

func TestDriverFormatSupport(t *testing.T) {
	if _, err := NewEbitenOutput(48000, FormatUint16); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("ebiten u16 err = %v, want ErrUnsupportedFormat", err)
	}
	eo, err := NewEbitenOutput(48000, FormatNative)
	if err != nil {
		t.Fatalf("ebiten native: %v", err)
	}
	if cfg := eo.Config(); cfg.Format != FormatFloat32 || cfg.Channels != 2 {
		t.Fatalf("ebiten config = %+v", cfg)
	}
	if _, err := NewOtoOutput(48000, 2, FormatUint16); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("oto u16 err = %v, want ErrUnsupportedFormat", err)
	}
	oo, err := NewOtoOutput(44100, 1, FormatInt16)
	if err != nil {
		t.Fatalf("oto s16: %v", err)
	}
	if cfg := oo.Config(); cfg.Channels != 1 || cfg.Format != FormatInt16 || cfg.SampleRate != 44100 {
		t.Fatalf("oto config = %+v", cfg)
	}
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Len()
}

func TestWriterOutputStreamsAndStops(t *testing.T) {
	sink := &syncBuffer{}
	out, err := NewWriterOutput(sink, 8000, 2, FormatUint16)
	if err != nil {
		t.Fatalf("new writer output: %v", err)
	}
	out.Realtime = true
	out.FramesPerChunk = 80
	r, err := NewStreamReader(out.Config(), &rampSource{})
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	st, err := out.Open(r)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	st.Play()
	deadline := time.Now().Add(2 * time.Second)
	for sink.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	n := sink.Len()
	if n == 0 {
		t.Fatal("no audio written")
	}
	if n%(80*2*2) != 0 {
		t.Fatalf("wrote %d bytes, not a whole number of chunks", n)
	}
	time.Sleep(30 * time.Millisecond)
	if sink.Len() != n {
		t.Fatal("stream kept writing after Close")
	}
}

func TestWriterOutputCloseWithoutPlay(t *testing.T) {
	out, err := NewWriterOutput(&bytes.Buffer{}, 8000, 1, FormatNative)
	if err != nil {
		t.Fatalf("new writer output: %v", err)
	}
	if out.Config().Format != FormatInt16 {
		t.Fatalf("native writer format = %v, want s16", out.Config().Format)
	}
	st, err := out.Open(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

type stalledWriter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (w *stalledWriter) Write(p []byte) (int, error) {
	w.once.Do(func() { close(w.entered) })
	<-w.release
	return len(p), nil
}

func TestWriterOutputCloseIsBounded(t *testing.T) {
	sink := &stalledWriter{entered: make(chan struct{}), release: make(chan struct{})}
	out, err := NewWriterOutput(sink, 8000, 1, FormatInt16)
	if err != nil {
		t.Fatalf("new writer output: %v", err)
	}
	out.CloseTimeout = 20 * time.Millisecond
	r, err := NewStreamReader(out.Config(), &rampSource{})
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	st, err := out.Open(r)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	st.Play()
	<-sink.entered

	start := time.Now()
	if err := st.Close(); !errors.Is(err, ErrStalled) {
		t.Fatalf("close err = %v, want ErrStalled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("close took %v", elapsed)
	}
	close(sink.release)
	select {
	case <-st.(Finisher).Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not exit after the write returned")
	}
}
