package testsupport

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"revoice/internal/pcm"
)

// WriteFile writes size filler bytes to path, creating parent directories.
// Upload and download tests only care about length, so a size <= 0 writes
// a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	mkdirParent(t, path)
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteWAV encodes buf as a PCM WAV file at path.
func WriteWAV(t testing.TB, path string, buf pcm.Buffer) {
	t.Helper()
	mkdirParent(t, path)
	if err := pcm.WriteWAV(path, buf); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}

// WAVBytes returns buf encoded as a PCM WAV file, for request bodies.
func WAVBytes(t testing.TB, buf pcm.Buffer) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	WriteWAV(t, path, buf)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav %s: %v", path, err)
	}
	return data
}

// Tone returns a mono sine wave at freq Hz, useful where silence would be
// indistinguishable from a dropped clip.
func Tone(seconds float64, rate int, freq float64) pcm.Buffer {
	frames := pcm.FramesFor(seconds, rate)
	samples := make([]int16, frames)
	for i := range samples {
		samples[i] = int16(math.Sin(2*math.Pi*freq*float64(i)/float64(rate)) * 8000)
	}
	return pcm.Buffer{Samples: samples, SampleRate: rate, Channels: 1}
}

func mkdirParent(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
}
