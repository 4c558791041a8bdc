package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Buffer is interleaved 16-bit PCM audio.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Validate reports whether the buffer carries a usable format.
func (b Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("pcm: invalid sample rate %d", b.SampleRate)
	}
	if b.Channels <= 0 {
		return fmt.Errorf("pcm: invalid channel count %d", b.Channels)
	}
	if len(b.Samples)%b.Channels != 0 {
		return fmt.Errorf("pcm: %d samples do not divide into %d channels", len(b.Samples), b.Channels)
	}
	return nil
}

// Frames returns the number of sample frames (one sample per channel).
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the buffer length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Empty reports whether the buffer holds no frames.
func (b Buffer) Empty() bool {
	return b.Frames() == 0
}

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	out := b
	out.Samples = append([]int16(nil), b.Samples...)
	return out
}

// FramesFor converts a duration in seconds to a frame count at rate.
func FramesFor(seconds float64, rate int) int {
	if seconds <= 0 || rate <= 0 {
		return 0
	}
	return int(math.Round(seconds * float64(rate)))
}

// Silence returns a zeroed buffer lasting seconds.
func Silence(seconds float64, rate, channels int) Buffer {
	if channels <= 0 {
		channels = 1
	}
	frames := FramesFor(seconds, rate)
	return Buffer{
		Samples:    make([]int16, frames*channels),
		SampleRate: rate,
		Channels:   channels,
	}
}

// Fit returns a copy padded with silence or truncated to exactly frames.
func (b Buffer) Fit(frames int) Buffer {
	if frames < 0 {
		frames = 0
	}
	out := Buffer{SampleRate: b.SampleRate, Channels: b.Channels}
	out.Samples = make([]int16, frames*b.Channels)
	copy(out.Samples, b.Samples)
	return out
}

// FromLittleEndian decodes raw little-endian 16-bit PCM bytes.
func FromLittleEndian(data []byte, rate, channels int) (Buffer, error) {
	if len(data)%2 != 0 {
		return Buffer{}, errors.New("pcm: odd byte count in 16-bit stream")
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	buf := Buffer{Samples: samples, SampleRate: rate, Channels: channels}
	if err := buf.Validate(); err != nil {
		return Buffer{}, err
	}
	return buf, nil
}

// Clamp saturates v to the int16 range.
func Clamp(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(math.Round(v))
	}
}
