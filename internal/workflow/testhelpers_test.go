package workflow_test

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"sync"
	"testing"

	"revoice/internal/catalog"
	"revoice/internal/config"
	"revoice/internal/media/ffprobe"
	"revoice/internal/pcm"
	"revoice/internal/services"
	"revoice/internal/synthesis"
	"revoice/internal/task"
	"revoice/internal/testsupport"
	"revoice/internal/transcript"
	"revoice/internal/workflow"
)

const testRate = 1000

var owner = services.Principal{UserID: 7}

func tone(seconds float64) pcm.Buffer {
	samples := make([]int16, pcm.FramesFor(seconds, testRate))
	for i := range samples {
		samples[i] = 1000
	}
	return pcm.Buffer{Samples: samples, SampleRate: testRate, Channels: 1}
}

type fakeRecognizer struct {
	segments []transcript.Segment
	err      error
}

func (f *fakeRecognizer) Recognize(_ context.Context, audioPath string) ([]transcript.Segment, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]transcript.Segment(nil), f.segments...), nil
}

type blockingRecognizer struct {
	release  chan struct{}
	segments []transcript.Segment
}

func (b *blockingRecognizer) Recognize(ctx context.Context, _ string) ([]transcript.Segment, error) {
	select {
	case <-b.release:
		return b.segments, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fakeEngine returns a tone whose length is looked up by text.
type fakeEngine struct {
	mu        sync.Mutex
	durations map[string]float64
	fail      map[string]bool
	presets   []string
	voices    []synthesis.Voice
}

func (f *fakeEngine) Synthesize(_ context.Context, text string, voice synthesis.Voice) (pcm.Buffer, error) {
	f.mu.Lock()
	f.voices = append(f.voices, voice)
	f.mu.Unlock()
	if f.fail[text] {
		return pcm.Buffer{}, errors.New("engine rejected text")
	}
	seconds, ok := f.durations[text]
	if !ok {
		seconds = 1
	}
	return tone(seconds), nil
}

func (f *fakeEngine) PresetVoices(context.Context) ([]string, error) {
	return f.presets, nil
}

type fitStretcher struct{}

func (fitStretcher) Stretch(_ context.Context, audio pcm.Buffer, factor float64) (pcm.Buffer, error) {
	frames := int(math.Round(float64(audio.Frames()) / factor))
	return audio.Fit(frames), nil
}

type fakeTranscoder struct {
	mu         sync.Mutex
	extractErr error
	extracted  *pcm.Buffer
	burnCalls  int
	styles     []string
}

func (f *fakeTranscoder) ExtractAudio(_ context.Context, source, dest string) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	if _, err := os.Stat(source); err != nil {
		return err
	}
	if f.extracted != nil {
		return pcm.WriteWAV(dest, *f.extracted)
	}
	return os.WriteFile(dest, []byte("extracted"), 0o644)
}

func (f *fakeTranscoder) ReplaceAudio(_ context.Context, video, audio, dest string) error {
	for _, p := range []string{video, audio} {
		if _, err := os.Stat(p); err != nil {
			return err
		}
	}
	return os.WriteFile(dest, []byte("muxed"), 0o644)
}

func (f *fakeTranscoder) BurnSubtitles(_ context.Context, video, srt, forceStyle, dest string) error {
	f.mu.Lock()
	f.burnCalls++
	f.styles = append(f.styles, forceStyle)
	f.mu.Unlock()
	for _, p := range []string{video, srt} {
		if _, err := os.Stat(p); err != nil {
			return err
		}
	}
	return os.WriteFile(dest, []byte("burned"), 0o644)
}

type fakeProber struct {
	audioStreams int
}

func (f fakeProber) Inspect(context.Context, string) (ffprobe.Result, error) {
	result := ffprobe.Result{Format: ffprobe.Format{Duration: "4.5"}}
	result.Streams = append(result.Streams, ffprobe.Stream{CodecType: "video"})
	for range f.audioStreams {
		result.Streams = append(result.Streams, ffprobe.Stream{CodecType: "audio"})
	}
	return result, nil
}

type fakeCatalog struct {
	mu      sync.Mutex
	logs    []catalog.SynthesisLog
	records map[string]catalog.TaskRecord
	deleted []string
}

func (f *fakeCatalog) AddSynthesisLog(_ context.Context, entry catalog.SynthesisLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, entry)
	return nil
}

func (f *fakeCatalog) PutTaskRecord(_ context.Context, rec catalog.TaskRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records == nil {
		f.records = make(map[string]catalog.TaskRecord)
	}
	f.records[rec.TaskID] = rec
	return nil
}

func (f *fakeCatalog) DeleteTaskRecord(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.records, id)
	return nil
}

type harness struct {
	cfg        *config.Config
	manager    *workflow.Manager
	recognizer *fakeRecognizer
	engine     *fakeEngine
	transcoder *fakeTranscoder
	catalog    *fakeCatalog
}

// exampleSegments synthesize to 2.0s and 1.0s against 2.0s and 1.5s slots.
func exampleSegments() []transcript.Segment {
	return []transcript.Segment{{Start: 0, End: 2, Text: "a"}, {Start: 2.5, End: 4, Text: "b"}}
}

func newHarness(t *testing.T, mutate func(*workflow.Dependencies), opts ...workflow.ManagerOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		cfg:        cfg,
		recognizer: &fakeRecognizer{segments: exampleSegments()},
		engine: &fakeEngine{
			durations: map[string]float64{"a": 2.0, "b": 1.0},
			presets:   []string{"alice", "bob"},
		},
		transcoder: &fakeTranscoder{},
		catalog:    &fakeCatalog{},
	}
	deps := workflow.Dependencies{
		Recognizer:  h.recognizer,
		Synthesizer: h.engine,
		Presets:     h.engine,
		Transcoder:  h.transcoder,
		Stretcher:   fitStretcher{},
		Prober:      fakeProber{audioStreams: 1},
		Catalog:     h.catalog,
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.manager = workflow.NewManager(cfg, deps, nil, opts...)
	t.Cleanup(h.manager.Close)
	return h
}

func (h *harness) upload(t *testing.T) task.Task {
	t.Helper()
	created, err := h.manager.Upload(context.Background(), owner, "My Clip.mp4", strings.NewReader("video-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return created
}

func (h *harness) analyze(t *testing.T, id string) task.Task {
	t.Helper()
	if _, err := h.manager.Analyze(context.Background(), owner, id); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	h.manager.Wait()
	return h.status(t, id)
}

func (h *harness) synthesize(t *testing.T, id string, req workflow.SynthesizeRequest) task.Task {
	t.Helper()
	if _, err := h.manager.Synthesize(context.Background(), owner, id, req); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	h.manager.Wait()
	return h.status(t, id)
}

func (h *harness) status(t *testing.T, id string) task.Task {
	t.Helper()
	got, err := h.manager.Status(context.Background(), owner, id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	return got
}
