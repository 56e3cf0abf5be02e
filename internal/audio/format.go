package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Format is an output sample encoding. All encodings are little-endian.
type Format int

const (
	// FormatNative lets the output driver pick its preferred encoding.
	FormatNative Format = iota
	FormatFloat32
	FormatInt16
	FormatUint16
)

func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "native":
		return FormatNative, nil
	case "f32", "float32":
		return FormatFloat32, nil
	case "s16", "i16", "int16":
		return FormatInt16, nil
	case "u16", "uint16":
		return FormatUint16, nil
	default:
		return FormatNative, fmt.Errorf("invalid sample format %q (expected native|f32|s16|u16)", name)
	}
}

func (f Format) String() string {
	switch f {
	case FormatFloat32:
		return "f32"
	case FormatInt16:
		return "s16"
	case FormatUint16:
		return "u16"
	default:
		return "native"
	}
}

// BytesPerSample is the size of one channel sample.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatFloat32:
		return 4
	case FormatInt16, FormatUint16:
		return 2
	default:
		return 0
	}
}

type sample interface {
	~float32 | ~int16 | ~uint16
}

// writeFrames duplicates each mono value to every channel of a frame,
// converting and packing it into dst. This is the only place samples are
// encoded, for every format.
func writeFrames[T sample](dst []byte, mono []float32, channels, size int, convert func(float32) T, put func([]byte, T)) int {
	off := 0
	for _, v := range mono {
		s := convert(v)
		for c := 0; c < channels; c++ {
			put(dst[off:], s)
			off += size
		}
	}
	return off
}

func clampUnit(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func toFloat32(v float32) float32 { return v }

func toInt16(v float32) int16 {
	return int16(math.Round(float64(clampUnit(v)) * math.MaxInt16))
}

func toUint16(v float32) uint16 {
	return uint16(int32(toInt16(v)) + 32768)
}

func putFloat32(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) }
func putInt16(b []byte, v int16)     { binary.LittleEndian.PutUint16(b, uint16(v)) }
func putUint16(b []byte, v uint16)   { binary.LittleEndian.PutUint16(b, v) }

// Encode packs mono samples into dst as interleaved frames of the given
// format and channel count, and returns the number of bytes written.
func Encode(dst []byte, mono []float32, channels int, f Format) int {
	size := f.BytesPerSample()
	switch f {
	case FormatFloat32:
		return writeFrames(dst, mono, channels, size, toFloat32, putFloat32)
	case FormatInt16:
		return writeFrames(dst, mono, channels, size, toInt16, putInt16)
	case FormatUint16:
		return writeFrames(dst, mono, channels, size, toUint16, putUint16)
	default:
		return 0
	}
}
