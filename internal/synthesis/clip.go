package synthesis

import "revoice/internal/pcm"

// Clip is the synthesized audio for one segment.
type Clip struct {
	SegmentIndex int
	Audio        pcm.Buffer
}

// Duration returns len(samples)/sample_rate in seconds.
func (c Clip) Duration() float64 {
	return c.Audio.Duration()
}

// Clips is the sparse segment-index to clip map produced by a synthesis run.
// Missing entries denote segments whose synthesis failed.
type Clips map[int]Clip
