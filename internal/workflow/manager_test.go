package workflow_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"revoice/internal/pcm"
	"revoice/internal/services"
	"revoice/internal/task"
	"revoice/internal/testsupport"
	"revoice/internal/transcript"
	"revoice/internal/workflow"
)

func TestAcceptedExtension(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"clip.mp4", true},
		{"CLIP.MKV", true},
		{"a.b.webm", true},
		{"movie.mov", true},
		{"old.avi", true},
		{"song.mp3", false},
		{"noext", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := workflow.AcceptedExtension(tc.name); got != tc.want {
			t.Errorf("AcceptedExtension(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.manager.Upload(context.Background(), owner, "track.mp3", strings.NewReader("x"))
	if !errors.Is(err, workflow.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if h.manager.Tasks().Len() != 0 {
		t.Fatal("rejected upload must not register a task")
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	h := newHarness(t, nil)
	h.cfg.Workflow.MaxUploadMiB = 1
	_, err := h.manager.Upload(context.Background(), owner, "big.mp4", strings.NewReader(strings.Repeat("x", 1<<20+1)))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	entries, _ := os.ReadDir(h.cfg.Paths.WorkDir)
	if len(entries) != 0 {
		t.Fatalf("expected task directory removed, found %d entries", len(entries))
	}
}

func TestUploadCreatesProcessingTask(t *testing.T) {
	h := newHarness(t, nil)
	created := h.upload(t)
	if created.Status != task.StatusProcessing || created.Progress != 10 {
		t.Fatalf("unexpected task %+v", created)
	}
	if created.OwnerID != owner.UserID {
		t.Fatalf("expected owner %d, got %d", owner.UserID, created.OwnerID)
	}
	if filepath.Dir(created.VideoPath) != filepath.Join(h.cfg.Paths.WorkDir, created.ID) {
		t.Fatalf("video stored outside task dir: %s", created.VideoPath)
	}
	data, err := os.ReadFile(created.VideoPath)
	if err != nil || string(data) != "video-bytes" {
		t.Fatalf("unexpected stored video %q (%v)", data, err)
	}
}

func TestEndToEndVoiceReplacement(t *testing.T) {
	h := newHarness(t, nil)
	created := h.upload(t)

	analyzed := h.analyze(t, created.ID)
	if analyzed.Status != task.StatusAnalyzed || analyzed.Progress != 60 {
		t.Fatalf("unexpected analyzed task %+v", analyzed)
	}
	if len(analyzed.Segments) != 2 || analyzed.SourceDuration != 4.5 {
		t.Fatalf("unexpected analysis result %+v", analyzed)
	}
	saved, err := transcript.Load(analyzed.Dir)
	if err != nil || len(saved) != 2 {
		t.Fatalf("expected persisted segments, got %v (%v)", saved, err)
	}

	done := h.synthesize(t, created.ID, workflow.SynthesizeRequest{VoiceID: "1", IsPreset: true, AddSubtitles: true})
	if done.Status != task.StatusCompleted || done.Progress != 100 {
		t.Fatalf("expected completed task, got %+v", done)
	}
	if math.Abs(done.MergedDuration-3.9) > 1e-9 {
		t.Fatalf("expected merged duration 3.9, got %v", done.MergedDuration)
	}
	if done.SynthesizedSegments != 2 || len(done.FailedSegments) != 0 || !done.HasSubtitles {
		t.Fatalf("unexpected completion summary %+v", done)
	}
	if filepath.Base(done.OutputPath) != "output_video_with_subtitles.mp4" {
		t.Fatalf("unexpected output %s", done.OutputPath)
	}
	if h.engine.voices[0].Name != "alice" || !h.engine.voices[0].Preset {
		t.Fatalf("expected preset alice, got %+v", h.engine.voices[0])
	}

	merged, err := pcm.ReadWAV(filepath.Join(done.Dir, "synthesized_audio.wav"))
	if err != nil {
		t.Fatalf("read merged audio: %v", err)
	}
	if merged.Frames() != 3900 {
		t.Fatalf("expected 3900 merged frames, got %d", merged.Frames())
	}
	for _, name := range []string{"segments_audio/segment_0000.wav", "segments_audio/segment_0001.wav", "subtitles.srt", "output_video_no_subtitles.mp4"} {
		if _, err := os.Stat(filepath.Join(done.Dir, name)); err != nil {
			t.Fatalf("expected artifact %s: %v", name, err)
		}
	}

	video, err := h.manager.Download(context.Background(), owner, created.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if video.Name != "My Clip_replaced.mp4" {
		t.Fatalf("unexpected download name %q", video.Name)
	}
	subs, err := h.manager.DownloadSubtitles(context.Background(), owner, created.ID)
	if err != nil {
		t.Fatalf("DownloadSubtitles: %v", err)
	}
	if subs.Name != "My Clip_subtitles.srt" {
		t.Fatalf("unexpected subtitle name %q", subs.Name)
	}

	if len(h.catalog.logs) != 1 {
		t.Fatalf("expected one synthesis log, got %d", len(h.catalog.logs))
	}
	entry := h.catalog.logs[0]
	if entry.VoiceID != nil || entry.UserID != owner.UserID || entry.TextLength != 2 || entry.Duration != 3.5 {
		t.Fatalf("unexpected synthesis log %+v", entry)
	}
	if rec, ok := h.catalog.records[created.ID]; !ok || rec.Status != "completed" {
		t.Fatalf("expected completed task record, got %+v", rec)
	}
}

func TestSynthesizeWithoutSubtitlesSkipsBurnIn(t *testing.T) {
	h := newHarness(t, nil)
	created := h.upload(t)
	h.analyze(t, created.ID)
	done := h.synthesize(t, created.ID, workflow.SynthesizeRequest{VoiceID: "bob", IsPreset: true})
	if done.Status != task.StatusCompleted {
		t.Fatalf("expected completed, got %+v", done)
	}
	if h.transcoder.burnCalls != 0 {
		t.Fatalf("expected no burn-in, got %d calls", h.transcoder.burnCalls)
	}
	if filepath.Base(done.OutputPath) != "output_video_no_subtitles.mp4" {
		t.Fatalf("unexpected output %s", done.OutputPath)
	}
	if _, err := os.Stat(filepath.Join(done.Dir, "subtitles.srt")); err != nil {
		t.Fatalf("subtitles must be written even without burn-in: %v", err)
	}
}

func TestPartialSynthesisFailureStillCompletes(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.fail = map[string]bool{"b": true}
	created := h.upload(t)
	h.analyze(t, created.ID)
	done := h.synthesize(t, created.ID, workflow.SynthesizeRequest{VoiceID: "1", IsPreset: true})
	if done.Status != task.StatusCompleted {
		t.Fatalf("expected completed, got %+v", done)
	}
	if len(done.FailedSegments) != 1 || done.FailedSegments[0] != 1 || done.SynthesizedSegments != 1 {
		t.Fatalf("unexpected failure summary %+v", done)
	}
	// a(2.0) + gap(0.5) + silent slot(1.5) - 2 junctions.
	if math.Abs(done.MergedDuration-3.9) > 1e-9 {
		t.Fatalf("expected merged duration 3.9, got %v", done.MergedDuration)
	}
}

func TestAllSegmentsFailingMarksTaskFailed(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.fail = map[string]bool{"a": true, "b": true}
	created := h.upload(t)
	h.analyze(t, created.ID)
	done := h.synthesize(t, created.ID, workflow.SynthesizeRequest{VoiceID: "1", IsPreset: true})
	if done.Status != task.StatusFailed || done.Progress != 0 {
		t.Fatalf("expected failed task with progress 0, got %+v", done)
	}
	if !strings.Contains(done.Message, "no audio generated") {
		t.Fatalf("expected message to explain failure, got %q", done.Message)
	}
	if rec, ok := h.catalog.records[created.ID]; !ok || rec.Status != "failed" {
		t.Fatalf("expected failed task record, got %+v", rec)
	}
}

func TestAnalyzeExtractionFailureResetsProgress(t *testing.T) {
	h := newHarness(t, nil)
	h.transcoder.extractErr = errors.New("ffmpeg exploded")
	created := h.upload(t)
	got := h.analyze(t, created.ID)
	if got.Status != task.StatusFailed || got.Progress != 0 {
		t.Fatalf("expected failed with progress 0, got %+v", got)
	}
	if !strings.Contains(got.Message, "audio extraction failed") || !strings.Contains(got.Message, "ffmpeg exploded") {
		t.Fatalf("unexpected message %q", got.Message)
	}
}

func TestAnalyzeRejectsVideoWithoutAudio(t *testing.T) {
	h := newHarness(t, func(d *workflow.Dependencies) { d.Prober = fakeProber{} })
	created := h.upload(t)
	got := h.analyze(t, created.ID)
	if got.Status != task.StatusFailed || !strings.Contains(got.Message, "no audio stream") {
		t.Fatalf("expected no-audio failure, got %+v", got)
	}
}

func TestAnalyzeRecognitionUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	h.recognizer.err = services.Wrap(services.ErrTransient, "recognize", "post audio", "", errors.New("connection refused"))
	created := h.upload(t)
	got := h.analyze(t, created.ID)
	if got.Status != task.StatusFailed || !strings.Contains(got.Message, "speech recognition unavailable") {
		t.Fatalf("expected recognition failure, got %+v", got)
	}
}

func TestAnalyzeWithoutRecognizerFailsSynchronously(t *testing.T) {
	h := newHarness(t, func(d *workflow.Dependencies) { d.Recognizer = nil })
	created := h.upload(t)
	_, err := h.manager.Analyze(context.Background(), owner, created.ID)
	if !errors.Is(err, workflow.ErrRecognitionUnavailable) {
		t.Fatalf("expected ErrRecognitionUnavailable, got %v", err)
	}
	if got := h.status(t, created.ID); got.Status != task.StatusProcessing {
		t.Fatalf("status must be unchanged, got %s", got.Status)
	}
}

func TestSynthesizeWithEmptySegmentsLeavesStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.recognizer.segments = nil
	created := h.upload(t)
	analyzed := h.analyze(t, created.ID)
	if analyzed.Status != task.StatusAnalyzed {
		t.Fatalf("expected analyzed, got %s", analyzed.Status)
	}
	_, err := h.manager.Synthesize(context.Background(), owner, created.ID, workflow.SynthesizeRequest{VoiceID: "1", IsPreset: true})
	if !errors.Is(err, workflow.ErrSegmentsMissing) {
		t.Fatalf("expected ErrSegmentsMissing, got %v", err)
	}
	if got := h.status(t, created.ID); got.Status != task.StatusAnalyzed || got.Progress != 60 {
		t.Fatalf("status must be unchanged, got %+v", got)
	}
}

func TestSynthesizeRequiresVoice(t *testing.T) {
	h := newHarness(t, nil)
	created := h.upload(t)
	h.analyze(t, created.ID)
	_, err := h.manager.Synthesize(context.Background(), owner, created.ID, workflow.SynthesizeRequest{IsPreset: true})
	if !errors.Is(err, workflow.ErrNoVoiceSelected) {
		t.Fatalf("expected ErrNoVoiceSelected, got %v", err)
	}
}

func TestSynthesizeRejectsUnknownPresetIndex(t *testing.T) {
	h := newHarness(t, nil)
	created := h.upload(t)
	h.analyze(t, created.ID)
	_, err := h.manager.Synthesize(context.Background(), owner, created.ID, workflow.SynthesizeRequest{VoiceID: "99", IsPreset: true})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := h.status(t, created.ID); got.Status != task.StatusAnalyzed {
		t.Fatalf("status must be unchanged, got %s", got.Status)
	}
	if len(h.engine.voices) != 0 {
		t.Fatalf("engine must not be called, got %d calls", len(h.engine.voices))
	}
}

func TestSynthesizeRejectsCompletedTask(t *testing.T) {
	h := newHarness(t, nil)
	created := h.upload(t)
	h.analyze(t, created.ID)
	h.synthesize(t, created.ID, workflow.SynthesizeRequest{VoiceID: "1", IsPreset: true})
	_, err := h.manager.Synthesize(context.Background(), owner, created.ID, workflow.SynthesizeRequest{VoiceID: "1", IsPreset: true})
	if !errors.Is(err, workflow.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := h.manager.Analyze(context.Background(), owner, created.ID); !errors.Is(err, workflow.ErrInvalidState) {
		t.Fatalf("expected re-analysis to be rejected, got %v", err)
	}
}

func TestFailedTaskCanBeResynthesized(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.fail = map[string]bool{"a": true, "b": true}
	created := h.upload(t)
	h.analyze(t, created.ID)
	if got := h.synthesize(t, created.ID, workflow.SynthesizeRequest{VoiceID: "1", IsPreset: true}); got.Status != task.StatusFailed {
		t.Fatalf("expected failure, got %s", got.Status)
	}
	h.engine.fail = nil
	if got := h.synthesize(t, created.ID, workflow.SynthesizeRequest{VoiceID: "1", IsPreset: true}); got.Status != task.StatusCompleted {
		t.Fatalf("expected retry to complete, got %+v", got)
	}
}

func TestRunningStageRejectsNewRequests(t *testing.T) {
	blocker := &blockingRecognizer{release: make(chan struct{}), segments: exampleSegments()}
	h := newHarness(t, func(d *workflow.Dependencies) { d.Recognizer = blocker })
	created := h.upload(t)

	if _, err := h.manager.Analyze(context.Background(), owner, created.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := h.manager.Analyze(context.Background(), owner, created.ID); !errors.Is(err, workflow.ErrTaskBusy) {
		t.Fatalf("expected ErrTaskBusy, got %v", err)
	}
	_, err := h.manager.Synthesize(context.Background(), owner, created.ID, workflow.SynthesizeRequest{VoiceID: "1", IsPreset: true})
	if !errors.Is(err, workflow.ErrTaskBusy) {
		t.Fatalf("expected ErrTaskBusy for synthesize, got %v", err)
	}
	close(blocker.release)
	h.manager.Wait()
	if got := h.status(t, created.ID); got.Status != task.StatusAnalyzed {
		t.Fatalf("expected analyzed after release, got %s", got.Status)
	}
}

func TestAccessControl(t *testing.T) {
	h := newHarness(t, nil)
	created := h.upload(t)
	stranger := services.Principal{UserID: 99}
	admin := services.Principal{UserID: 1, Admin: true}

	if _, err := h.manager.Status(context.Background(), stranger, created.ID); !errors.Is(err, workflow.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := h.manager.Status(context.Background(), admin, created.ID); err != nil {
		t.Fatalf("admin should see every task: %v", err)
	}
	if _, err := h.manager.Status(context.Background(), owner, "missing"); !errors.Is(err, workflow.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if err := h.manager.Cleanup(context.Background(), stranger, created.ID); !errors.Is(err, workflow.ErrForbidden) {
		t.Fatalf("expected cleanup to be forbidden, got %v", err)
	}
	if got := h.manager.List(stranger); len(got) != 0 {
		t.Fatalf("stranger should see no tasks, got %d", len(got))
	}
	if got := h.manager.List(admin); len(got) != 1 {
		t.Fatalf("admin should see one task, got %d", len(got))
	}
}

func TestAnalyzeAllowsOwnerOrAdmin(t *testing.T) {
	h := newHarness(t, nil)
	created := h.upload(t)
	stranger := services.Principal{UserID: 99}
	admin := services.Principal{UserID: 1, Admin: true}

	if _, err := h.manager.Analyze(context.Background(), stranger, created.ID); !errors.Is(err, workflow.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}
	if got := h.status(t, created.ID); got.Status != task.StatusProcessing {
		t.Fatalf("status must be unchanged, got %s", got.Status)
	}
	if _, err := h.manager.Analyze(context.Background(), admin, created.ID); err != nil {
		t.Fatalf("admin analyze: %v", err)
	}
	h.manager.Wait()
	if got := h.status(t, created.ID); got.Status != task.StatusAnalyzed {
		t.Fatalf("expected analyzed, got %s", got.Status)
	}
}

func TestDownloadBeforeCompletion(t *testing.T) {
	h := newHarness(t, nil)
	created := h.upload(t)
	if _, err := h.manager.Download(context.Background(), owner, created.ID); !errors.Is(err, workflow.ErrNotCompleted) {
		t.Fatalf("expected ErrNotCompleted, got %v", err)
	}
	if _, err := h.manager.DownloadSubtitles(context.Background(), owner, created.ID); !errors.Is(err, workflow.ErrNotCompleted) {
		t.Fatalf("expected ErrNotCompleted for subtitles, got %v", err)
	}
}

func TestDownloadSubtitlesRegeneratesMissingFile(t *testing.T) {
	h := newHarness(t, nil)
	created := h.upload(t)
	h.analyze(t, created.ID)
	done := h.synthesize(t, created.ID, workflow.SynthesizeRequest{VoiceID: "1", IsPreset: true})
	if err := os.Remove(done.SubtitlesPath); err != nil {
		t.Fatalf("remove subtitles: %v", err)
	}
	subs, err := h.manager.DownloadSubtitles(context.Background(), owner, created.ID)
	if err != nil {
		t.Fatalf("DownloadSubtitles: %v", err)
	}
	data, err := os.ReadFile(subs.Path)
	if err != nil || !strings.HasPrefix(string(data), "1\n00:00:00,000 --> 00:00:02,000\na\n") {
		t.Fatalf("unexpected regenerated subtitles %q (%v)", data, err)
	}
}

func TestCleanupToleratesMissingDirectory(t *testing.T) {
	h := newHarness(t, nil)
	created := h.upload(t)
	if err := os.RemoveAll(created.Dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if err := h.manager.Cleanup(context.Background(), owner, created.ID); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, ok := h.manager.Tasks().Get(created.ID); ok {
		t.Fatal("expected task removed from registry")
	}
	if len(h.catalog.deleted) != 1 || h.catalog.deleted[0] != created.ID {
		t.Fatalf("expected task record deletion, got %v", h.catalog.deleted)
	}
	if err := h.manager.Cleanup(context.Background(), owner, created.ID); !errors.Is(err, workflow.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound after cleanup, got %v", err)
	}
}

func TestCleanupCancelsRunningStage(t *testing.T) {
	blocker := &blockingRecognizer{release: make(chan struct{}), segments: exampleSegments()}
	h := newHarness(t, func(d *workflow.Dependencies) { d.Recognizer = blocker })
	created := h.upload(t)

	if _, err := h.manager.Analyze(context.Background(), owner, created.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := h.manager.Cleanup(context.Background(), owner, created.ID); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	h.manager.Wait()

	if _, ok := h.manager.Tasks().Get(created.ID); ok {
		t.Fatal("expected task removed from registry")
	}
	if _, err := os.Stat(created.Dir); !os.IsNotExist(err) {
		t.Fatalf("expected task directory removed, stat err=%v", err)
	}
	if _, ok := h.catalog.records[created.ID]; ok {
		t.Fatal("expected no task record left behind by the cancelled stage")
	}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestReapRemovesExpiredTerminalTasks(t *testing.T) {
	c := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	registry := task.NewRegistry().WithClock(c.Now)
	h := newHarness(t, nil, workflow.WithRegistry(registry))
	h.cfg.Workflow.TaskTTLMinutes = 30

	doneDir := filepath.Join(h.cfg.Paths.WorkDir, "done")
	testsupport.WriteFile(t, filepath.Join(doneDir, "audio.wav"), 16)
	if _, err := registry.Insert(task.Task{ID: "done", Status: task.StatusCompleted, Dir: doneDir}); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.Insert(task.Task{ID: "busy", Status: task.StatusSynthesizing}); err != nil {
		t.Fatal(err)
	}

	if n := h.manager.Reap(context.Background()); n != 0 {
		t.Fatalf("nothing should expire yet, reaped %d", n)
	}
	c.now = c.now.Add(time.Hour)
	if n := h.manager.Reap(context.Background()); n != 1 {
		t.Fatalf("expected one reaped task, got %d", n)
	}
	if _, err := os.Stat(doneDir); !os.IsNotExist(err) {
		t.Fatalf("expected task dir removed, got %v", err)
	}
	if _, ok := registry.Get("busy"); !ok {
		t.Fatal("running task must survive the reaper")
	}
}

func TestReapDisabledWithoutTTL(t *testing.T) {
	h := newHarness(t, nil)
	if n := h.manager.Reap(context.Background()); n != 0 {
		t.Fatalf("expected no reaping, got %d", n)
	}
	if res := h.manager.SweepOrphans(context.Background()); len(res.Removed) != 0 {
		t.Fatalf("expected no sweep, got %v", res.Removed)
	}
}

func TestNewDependenciesRejectsUnknownProvider(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Synthesis.Provider = "espeak"
	if _, err := workflow.NewDependencies(cfg, nil); err == nil {
		t.Fatal("expected error for unknown synthesis provider")
	}
	cfg = testsupport.NewConfig(t)
	deps, err := workflow.NewDependencies(cfg, nil)
	if err != nil {
		t.Fatalf("NewDependencies: %v", err)
	}
	if deps.Recognizer == nil || deps.Synthesizer == nil || deps.Transcoder == nil || deps.Catalog != nil {
		t.Fatalf("unexpected dependency wiring %+v", deps)
	}
}
