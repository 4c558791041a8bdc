package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"revoice/internal/pcm"
)

const (
	minTempo = 0.5
	maxTempo = 2.0
)

// TempoChain splits factor into atempo stages that each stay within the
// filter's supported [0.5, 2.0] range.
func TempoChain(factor float64) ([]float64, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("invalid tempo factor %v", factor)
	}
	var chain []float64
	for factor > maxTempo {
		chain = append(chain, maxTempo)
		factor /= maxTempo
	}
	for factor < minTempo {
		chain = append(chain, minTempo)
		factor /= minTempo
	}
	return append(chain, factor), nil
}

func tempoFilter(chain []float64) string {
	parts := make([]string, len(chain))
	for i, f := range chain {
		parts[i] = "atempo=" + strconv.FormatFloat(f, 'f', 6, 64)
	}
	return strings.Join(parts, ",")
}

// Stretch time-scales audio by factor (current/target duration) while
// preserving pitch. The result keeps the input's sample rate and channels.
func (t *Transcoder) Stretch(ctx context.Context, audio pcm.Buffer, factor float64) (pcm.Buffer, error) {
	chain, err := TempoChain(factor)
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("stretch: %w", err)
	}
	dir, err := os.MkdirTemp("", "revoice-stretch-")
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("stretch: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")
	if err := pcm.WriteWAV(in, audio); err != nil {
		return pcm.Buffer{}, fmt.Errorf("stretch: %w", err)
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", in,
		"-filter:a", tempoFilter(chain),
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-y", out,
	}
	if err := t.exec(ctx, "stretch", out, args); err != nil {
		return pcm.Buffer{}, err
	}
	stretched, err := pcm.ReadWAV(out)
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("stretch: %w", err)
	}
	return stretched, nil
}
