package timeline

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"revoice/internal/logging"
	"revoice/internal/pcm"
	"revoice/internal/synthesis"
	"revoice/internal/transcript"
)

// ErrNoClips reports that no synthesized audio exists to derive a format from.
var ErrNoClips = errors.New("no synthesized clips to reconcile")

// DefaultTolerance is the duration difference accepted without stretching.
const DefaultTolerance = 0.1

// Stretcher changes a buffer's duration while preserving pitch. factor is
// current/target duration, so factor > 1 shortens the clip.
type Stretcher interface {
	Stretch(ctx context.Context, audio pcm.Buffer, factor float64) (pcm.Buffer, error)
}

// Reconciler places synthesized clips onto the original timeline.
type Reconciler struct {
	Tolerance float64
	// Stretcher is optional; nil places mismatched clips at natural length.
	Stretcher Stretcher
	Logger    *slog.Logger
}

// Reconcile produces a gapless, ordered clip sequence covering
// [0, max(segment.end)). Segments must already be ordered by start.
func (r *Reconciler) Reconcile(ctx context.Context, segments []transcript.Segment, clips synthesis.Clips) ([]PlacedClip, error) {
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	rate, channels, ok := referenceFormat(segments, clips)
	if !ok {
		return nil, ErrNoClips
	}

	placed := make([]PlacedClip, 0, len(segments)*2)
	cursor := 0
	for idx, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		startFrame := pcm.FramesFor(seg.Start, rate)
		if startFrame > cursor {
			gap := pcm.Buffer{Samples: make([]int16, (startFrame-cursor)*channels), SampleRate: rate, Channels: channels}
			placed = append(placed, place(KindSilence, -1, gap, cursor))
			cursor = startFrame
		} else if startFrame < cursor {
			logger.Debug("segment overlaps previous placement",
				logging.Int(logging.FieldSegmentIndex, idx),
				logging.Float64("overlap_seconds", float64(cursor-startFrame)/float64(rate)),
			)
		}

		slotFrames := pcm.FramesFor(seg.End, rate) - startFrame
		clip, ok := clips[idx]
		if !ok || clip.Audio.Empty() {
			filler := pcm.Buffer{Samples: make([]int16, slotFrames*channels), SampleRate: rate, Channels: channels}
			placed = append(placed, place(KindSilence, idx, filler, cursor))
			cursor += slotFrames
			continue
		}

		item := r.fit(ctx, logger, idx, seg, clip, slotFrames)
		item.Start = float64(cursor) / float64(rate)
		cursor += pcm.FramesFor(item.Duration, rate)
		item.End = float64(cursor) / float64(rate)
		placed = append(placed, item)
	}
	return placed, nil
}

func (r *Reconciler) fit(ctx context.Context, logger *slog.Logger, idx int, seg transcript.Segment, clip synthesis.Clip, slotFrames int) PlacedClip {
	natural := PlacedClip{Kind: KindSpeech, SegmentIndex: idx, Audio: clip.Audio, Duration: clip.Duration()}
	original := seg.Duration()
	if math.Abs(clip.Duration()-original) <= r.Tolerance || slotFrames <= 0 {
		return natural
	}
	if r.Stretcher == nil {
		return natural
	}

	factor := clip.Duration() / original
	stretched, err := r.Stretcher.Stretch(ctx, clip.Audio, factor)
	if err != nil || stretched.Empty() {
		if err == nil {
			err = errors.New("stretch returned no audio")
		}
		logging.WarnWithContext(logger, "time-stretch failed; placing clip at natural length", "stretch_failed",
			logging.Int(logging.FieldSegmentIndex, idx),
			logging.Float64("factor", factor),
			logging.Error(err),
			logging.String(logging.FieldImpact, "segment audio drifts from the original timing"),
			logging.String(logging.FieldErrorHint, "check that ffmpeg supports the atempo filter"),
		)
		return natural
	}

	fitted := stretched.Fit(pcm.FramesFor(original, stretched.SampleRate))
	return PlacedClip{
		Kind:         KindSpeech,
		SegmentIndex: idx,
		Audio:        fitted,
		Duration:     fitted.Duration(),
		Stretched:    true,
	}
}

func referenceFormat(segments []transcript.Segment, clips synthesis.Clips) (int, int, bool) {
	for idx := range segments {
		clip, ok := clips[idx]
		if !ok || clip.Audio.Validate() != nil || clip.Audio.Empty() {
			continue
		}
		return clip.Audio.SampleRate, clip.Audio.Channels, true
	}
	return 0, 0, false
}
