// Package crossfade concatenates placed clips into one buffer, blending every
// junction with a linear crossfade.
package crossfade

import (
	"errors"
	"fmt"

	"revoice/internal/pcm"
	"revoice/internal/timeline"
)

var (
	ErrNoClipsToMerge     = errors.New("no clips to merge")
	ErrSampleRateMismatch = errors.New("sample rate mismatch")
	ErrChannelMismatch    = errors.New("channel count mismatch")
)

// DefaultWindow is the crossfade length in seconds.
const DefaultWindow = 0.05

// Result is the merged buffer plus each clip's final position in it.
type Result struct {
	Audio      pcm.Buffer
	Placements []timeline.PlacedClip
	Duration   float64
}

// Merge joins clips in order. Each junction overlaps the last window seconds
// of the accumulated output with the first window seconds of the next clip,
// clamped to the shorter side, so the output is sum(duration) - (n-1)*window
// when every clip is at least window long. Placements are recomputed in one
// forward pass; the input slice is not modified.
func Merge(clips []timeline.PlacedClip, window float64) (Result, error) {
	if len(clips) == 0 {
		return Result{}, ErrNoClipsToMerge
	}
	rate := clips[0].Audio.SampleRate
	channels := clips[0].Audio.Channels
	for i, clip := range clips {
		if clip.Audio.SampleRate != rate {
			return Result{}, fmt.Errorf("%w: clip %d is %d Hz, expected %d Hz", ErrSampleRateMismatch, i, clip.Audio.SampleRate, rate)
		}
		if clip.Audio.Channels != channels {
			return Result{}, fmt.Errorf("%w: clip %d has %d channels, expected %d", ErrChannelMismatch, i, clip.Audio.Channels, channels)
		}
	}
	if err := clips[0].Audio.Validate(); err != nil {
		return Result{}, err
	}

	if len(clips) == 1 {
		audio := clips[0].Audio.Clone()
		only := clips[0]
		only.Audio = audio
		only.Start = 0
		only.Duration = audio.Duration()
		only.End = only.Duration
		return Result{Audio: audio, Placements: []timeline.PlacedClip{only}, Duration: only.Duration}, nil
	}

	fadeFrames := pcm.FramesFor(window, rate)
	total := 0
	for _, clip := range clips {
		total += clip.Audio.Frames()
	}
	out := make([]int16, 0, total*channels)
	placements := make([]timeline.PlacedClip, len(clips))

	for i, clip := range clips {
		frames := clip.Audio.Frames()
		outFrames := len(out) / channels
		overlap := 0
		if i > 0 {
			overlap = min(fadeFrames, outFrames, frames)
		}
		startFrame := outFrames - overlap

		if overlap > 0 {
			fadeOut, fadeIn := ramps(overlap)
			base := startFrame * channels
			for f := 0; f < overlap; f++ {
				for c := 0; c < channels; c++ {
					j := f*channels + c
					mixed := float64(out[base+j])*fadeOut[f] + float64(clip.Audio.Samples[j])*fadeIn[f]
					out[base+j] = pcm.Clamp(mixed)
				}
			}
		}
		out = append(out, clip.Audio.Samples[overlap*channels:]...)

		placed := clip
		placed.Audio = pcm.Buffer{}
		placed.Start = float64(startFrame) / float64(rate)
		placed.Duration = float64(frames) / float64(rate)
		placed.End = float64(startFrame+frames) / float64(rate)
		placements[i] = placed
	}

	audio := pcm.Buffer{Samples: out, SampleRate: rate, Channels: channels}
	return Result{Audio: audio, Placements: placements, Duration: audio.Duration()}, nil
}

// ramps returns linspace(1, 0, n) and linspace(0, 1, n).
func ramps(n int) ([]float64, []float64) {
	fadeOut := make([]float64, n)
	fadeIn := make([]float64, n)
	if n == 1 {
		fadeOut[0] = 1
		return fadeOut, fadeIn
	}
	step := 1 / float64(n-1)
	for i := 0; i < n; i++ {
		fadeIn[i] = float64(i) * step
		fadeOut[i] = 1 - fadeIn[i]
	}
	return fadeOut, fadeIn
}
