package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/logging"
	"revoice/internal/pcm"
	"revoice/internal/textutil"
	"revoice/internal/transcript"
)

// ErrNoAudioGenerated indicates that no segment produced audio.
var ErrNoAudioGenerated = errors.New("no audio generated")

// progressEvery is the segment interval between progress callbacks.
const progressEvery = 5

// Synthesizer renders text in a voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice) (pcm.Buffer, error)
}

// ProgressFunc receives the number of processed segments and the total.
type ProgressFunc func(done, total int)

// Result summarizes a synthesis run.
type Result struct {
	Clips   Clips
	Failed  []int
	Skipped []int
}

// Orchestrator synthesizes segments one at a time.
type Orchestrator struct {
	Synthesizer Synthesizer
	// ChunkRunes bounds the text submitted in one engine call. Longer
	// segment text is split on punctuation and the pieces concatenated.
	ChunkRunes int
	// SegmentDir, when set, receives segment_NNNN.wav for every clip.
	SegmentDir string
	Logger     *slog.Logger
}

// Run synthesizes every non-empty segment. It fails only when the context
// is cancelled or no segment produced audio.
func (o *Orchestrator) Run(ctx context.Context, segments []transcript.Segment, voice Voice, progress ProgressFunc) (Result, error) {
	logger := o.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	result := Result{Clips: make(Clips, len(segments))}
	total := len(segments)

	if o.SegmentDir != "" {
		if err := os.MkdirAll(o.SegmentDir, 0o755); err != nil {
			return result, fmt.Errorf("create segment audio dir: %w", err)
		}
	}

	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := o.runSegment(ctx, logger, i, seg, voice, &result); err != nil {
			return result, err
		}
		if done := i + 1; progress != nil && (done%progressEvery == 0 || done == total) {
			progress(done, total)
		}
	}

	if len(result.Clips) == 0 {
		return result, ErrNoAudioGenerated
	}
	return result, nil
}

// runSegment synthesizes one segment into result. Only cancellation is
// returned as an error; provider failures are recorded and logged.
func (o *Orchestrator) runSegment(ctx context.Context, logger *slog.Logger, i int, seg transcript.Segment, voice Voice, result *Result) error {
	text := strings.TrimSpace(seg.Text)
	if text == "" {
		result.Skipped = append(result.Skipped, i)
		return nil
	}

	audio, err := o.SynthesizeText(ctx, text, voice)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result.Failed = append(result.Failed, i)
		logging.WarnWithContext(logger, "segment synthesis failed", "segment_failed",
			logging.Int(logging.FieldSegmentIndex, i),
			logging.String("text", textutil.Snippet(text, 30)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the synthesis provider logs"),
			logging.String(logging.FieldImpact, "segment will be silent in the output"),
		)
		return nil
	}
	result.Clips[i] = Clip{SegmentIndex: i, Audio: audio}
	logger.Debug("segment synthesized",
		logging.Int(logging.FieldSegmentIndex, i),
		logging.Float64("original_seconds", seg.Duration()),
		logging.Float64("synthesized_seconds", audio.Duration()),
	)
	o.writeSegment(logger, i, audio)
	return nil
}

// SynthesizeText renders text in chunks of at most ChunkRunes runes and
// concatenates the audio. Every chunk must share one sample format.
func (o *Orchestrator) SynthesizeText(ctx context.Context, text string, voice Voice) (pcm.Buffer, error) {
	if o.Synthesizer == nil {
		return pcm.Buffer{}, errors.New("synthesizer not configured")
	}
	chunks := textutil.ChunkText(text, o.ChunkRunes)
	var combined pcm.Buffer
	for n, chunk := range chunks {
		audio, err := o.Synthesizer.Synthesize(ctx, chunk, voice)
		if err != nil {
			return pcm.Buffer{}, fmt.Errorf("chunk %d/%d: %w", n+1, len(chunks), err)
		}
		if err := audio.Validate(); err != nil {
			return pcm.Buffer{}, fmt.Errorf("chunk %d/%d: %w", n+1, len(chunks), err)
		}
		if audio.Empty() {
			return pcm.Buffer{}, fmt.Errorf("chunk %d/%d: empty audio", n+1, len(chunks))
		}
		if n == 0 {
			combined = audio
			continue
		}
		if audio.SampleRate != combined.SampleRate || audio.Channels != combined.Channels {
			return pcm.Buffer{}, fmt.Errorf("chunk %d/%d: format %d Hz/%d ch differs from %d Hz/%d ch",
				n+1, len(chunks), audio.SampleRate, audio.Channels, combined.SampleRate, combined.Channels)
		}
		combined.Samples = append(combined.Samples, audio.Samples...)
	}
	return combined, nil
}

func (o *Orchestrator) writeSegment(logger *slog.Logger, index int, audio pcm.Buffer) {
	if o.SegmentDir == "" {
		return
	}
	path := filepath.Join(o.SegmentDir, fmt.Sprintf("segment_%04d.wav", index))
	if err := pcm.WriteWAV(path, audio); err != nil {
		logging.WarnWithContext(logger, "write segment audio failed", "segment_audio_write_failed",
			logging.Int(logging.FieldSegmentIndex, index),
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "segment audio not kept for inspection"),
		)
	}
}
