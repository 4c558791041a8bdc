package synthesis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"revoice/internal/pcm"
	"revoice/internal/transcript"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
	rate  int
}

func (f *fakeSynth) Synthesize(_ context.Context, text string, _ Voice) (pcm.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.fail[text] {
		return pcm.Buffer{}, errors.New("engine error")
	}
	rate := f.rate
	if rate == 0 {
		rate = 1000
	}
	// 100 frames per rune keeps durations proportional to text length.
	return pcm.Silence(float64(len([]rune(text)))*0.1, rate, 1), nil
}

func segs(texts ...string) []transcript.Segment {
	out := make([]transcript.Segment, len(texts))
	for i, text := range texts {
		out[i] = transcript.Segment{Start: float64(i), End: float64(i) + 1, Text: text}
	}
	return out
}

func TestRunProducesSparseClips(t *testing.T) {
	synth := &fakeSynth{fail: map[string]bool{"bad": true}}
	o := &Orchestrator{Synthesizer: synth}

	result, err := o.Run(context.Background(), segs("ab", "bad", "  ", "c"), Voice{Name: "v", Preset: true}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(result.Clips))
	}
	if _, ok := result.Clips[1]; ok {
		t.Fatal("failed segment should be absent")
	}
	if result.Clips[0].SegmentIndex != 0 || result.Clips[3].SegmentIndex != 3 {
		t.Fatalf("unexpected clip indices %+v", result.Clips)
	}
	if !slices.Equal(result.Failed, []int{1}) || !slices.Equal(result.Skipped, []int{2}) {
		t.Fatalf("unexpected failed=%v skipped=%v", result.Failed, result.Skipped)
	}
	if got := result.Clips[0].Duration(); got != 0.2 {
		t.Fatalf("unexpected clip duration %v", got)
	}
	if slices.Contains(synth.calls, "  ") || slices.Contains(synth.calls, "") {
		t.Fatalf("blank text should not reach the engine: %q", synth.calls)
	}
}

func TestRunAllFailedIsError(t *testing.T) {
	synth := &fakeSynth{fail: map[string]bool{"x": true, "y": true}}
	_, err := (&Orchestrator{Synthesizer: synth}).Run(context.Background(), segs("x", "y"), Voice{}, nil)
	if !errors.Is(err, ErrNoAudioGenerated) {
		t.Fatalf("expected ErrNoAudioGenerated, got %v", err)
	}
}

func TestRunProgressEveryFiveSegments(t *testing.T) {
	texts := make([]string, 12)
	for i := range texts {
		texts[i] = "t"
	}
	var calls []int
	_, err := (&Orchestrator{Synthesizer: &fakeSynth{}}).Run(context.Background(), segs(texts...), Voice{}, func(done, total int) {
		if total != 12 {
			t.Fatalf("unexpected total %d", total)
		}
		calls = append(calls, done)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(calls, []int{5, 10, 12}) {
		t.Fatalf("unexpected progress calls %v", calls)
	}
}

func TestRunChunksLongText(t *testing.T) {
	synth := &fakeSynth{}
	long := strings.Repeat("句子很长很长，", 15)
	result, err := (&Orchestrator{Synthesizer: synth, ChunkRunes: 20}).Run(context.Background(), segs(long), Voice{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(synth.calls) < 2 {
		t.Fatalf("expected chunked engine calls, got %d", len(synth.calls))
	}
	var want int
	for _, call := range synth.calls {
		want += len([]rune(call)) * 100
	}
	if got := result.Clips[0].Audio.Frames(); got != want {
		t.Fatalf("expected concatenated %d frames, got %d", want, got)
	}
}

func TestRunWritesSegmentAudio(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "segments_audio")
	_, err := (&Orchestrator{Synthesizer: &fakeSynth{}, SegmentDir: dir}).Run(context.Background(), segs("a", "b"), Voice{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range []string{"segment_0000.wav", "segment_0001.wav"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Orchestrator{Synthesizer: &fakeSynth{}}).Run(ctx, segs("a"), Voice{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
