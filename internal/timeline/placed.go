package timeline

import (
	"fmt"

	"revoice/internal/pcm"
)

// Kind distinguishes silence fillers from speech.
type Kind int

const (
	KindSilence Kind = iota
	KindSpeech
)

func (k Kind) String() string {
	switch k {
	case KindSilence:
		return "silence"
	case KindSpeech:
		return "speech"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PlacedClip is audio assigned a position on the output timeline.
type PlacedClip struct {
	Kind Kind
	// SegmentIndex is the source segment, or -1 for gap silence.
	SegmentIndex int
	Audio        pcm.Buffer
	Start        float64
	Duration     float64
	End          float64
	// Stretched reports that the clip was time-adjusted to its slot.
	Stretched bool
}

func place(kind Kind, segment int, audio pcm.Buffer, startFrame int) PlacedClip {
	rate := float64(audio.SampleRate)
	frames := audio.Frames()
	return PlacedClip{
		Kind:         kind,
		SegmentIndex: segment,
		Audio:        audio,
		Start:        float64(startFrame) / rate,
		Duration:     float64(frames) / rate,
		End:          float64(startFrame+frames) / rate,
	}
}
