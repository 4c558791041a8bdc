package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"unicode/utf8"

	"revoice/internal/catalog"
	"revoice/internal/crossfade"
	"revoice/internal/fileutil"
	"revoice/internal/logging"
	"revoice/internal/pcm"
	"revoice/internal/services"
	"revoice/internal/subtitles"
	"revoice/internal/synthesis"
	"revoice/internal/task"
	"revoice/internal/textutil"
	"revoice/internal/timeline"
	"revoice/internal/transcript"
)

// synthesizeFrom lists the statuses synthesis may start from. Completed
// tasks are final.
var synthesizeFrom = []task.Status{task.StatusAnalyzed, task.StatusProcessing, task.StatusFailed}

// SynthesizeRequest selects the replacement voice.
type SynthesizeRequest struct {
	VoiceID      string
	IsPreset     bool
	AddSubtitles bool
}

// Synthesize validates the request and starts voice replacement in the
// background. Every validation failure is returned before the task status
// changes.
func (m *Manager) Synthesize(ctx context.Context, principal services.Principal, id string, req SynthesizeRequest) (task.Task, error) {
	current, err := m.authorize(id, principal)
	if err != nil {
		return task.Task{}, err
	}
	ref, err := synthesis.ParseVoiceRef(req.VoiceID, req.IsPreset)
	if err != nil {
		return task.Task{}, err
	}
	if err := checkTransition(current.Status, synthesizeFrom); err != nil {
		return task.Task{}, err
	}
	if len(current.Segments) == 0 {
		return task.Task{}, fmt.Errorf("%w: analyze the task before synthesizing", ErrSegmentsMissing)
	}
	if !fileutil.NonEmpty(current.VideoPath) {
		return task.Task{}, services.Wrap(services.ErrNotFound, "synthesize", "open video", "uploaded video missing", nil)
	}
	if m.deps.Synthesizer == nil {
		return task.Task{}, services.Wrap(services.ErrConfiguration, "synthesize", "", "no synthesis provider configured", nil)
	}
	voice, err := m.resolver.Resolve(ctx, ref, principal)
	if err != nil {
		return task.Task{}, err
	}

	started, err := m.tasks.Update(current.ID, func(t *task.Task) error {
		if err := checkTransition(t.Status, synthesizeFrom); err != nil {
			return err
		}
		if len(t.Segments) == 0 {
			return ErrSegmentsMissing
		}
		t.Status = task.StatusSynthesizing
		t.Progress = 45
		t.Message = "preparing speech synthesis"
		t.SynthesizedSegments = 0
		t.FailedSegments = nil
		t.OutputPath = ""
		t.HasSubtitles = false
		return nil
	})
	if err != nil {
		return task.Task{}, err
	}

	m.goStage(started.ID, "synthesize", func(ctx context.Context, logger *slog.Logger) error {
		logger.Info("voice selected",
			logging.String("ref", ref.String()),
			logging.String("voice", voice.Name),
			logging.Bool("preset", voice.Preset),
		)
		if err := m.runSynthesize(ctx, logger, started, voice, req.AddSubtitles); err != nil {
			return fmt.Errorf("%w: %w", ErrSynthesisPipelineFailed, err)
		}
		return nil
	})
	return started, nil
}

func (m *Manager) runSynthesize(ctx context.Context, logger *slog.Logger, t task.Task, voice synthesis.Voice, addSubtitles bool) error {
	if m.deps.Transcoder == nil {
		return errors.New("transcoder not configured")
	}
	segments := t.Segments

	m.progress(logger, t.ID, task.StatusSynthesizing, 50, "synthesizing segments")
	orchestrator := &synthesis.Orchestrator{
		Synthesizer: m.deps.Synthesizer,
		ChunkRunes:  textutil.DefaultChunkRunes,
		SegmentDir:  filepath.Join(t.Dir, segmentsAudioDir),
		Logger:      logger,
	}
	sampler := logging.NewProgressSampler(10)
	result, err := orchestrator.Run(ctx, segments, voice, func(done, total int) {
		percent := 50 + int(float64(done)/float64(total)*20)
		m.progress(logger, t.ID, task.StatusSynthesizing, percent, fmt.Sprintf("synthesized %d/%d segments", done, total))
		if sampler.ShouldLog(float64(done)/float64(total)*100, "synthesize") {
			logger.Info("synthesis progress", logging.Int("done", done), logging.Int("total", total))
		}
	})
	if err != nil {
		return err
	}

	m.progress(logger, t.ID, task.StatusSynthesizing, 70, "aligning audio to the original timeline")
	reconciler := &timeline.Reconciler{
		Tolerance: m.cfg.Timeline.StretchToleranceSeconds,
		Logger:    logger,
	}
	if m.cfg.Timeline.StretchEnabled {
		reconciler.Stretcher = m.deps.Stretcher
	}
	placed, err := reconciler.Reconcile(ctx, segments, result.Clips)
	if err != nil {
		return fmt.Errorf("align timeline: %w", err)
	}

	m.progress(logger, t.ID, task.StatusSynthesizing, 80, "merging audio clips")
	merged, err := crossfade.Merge(placed, m.cfg.Timeline.CrossfadeSeconds)
	if err != nil {
		return fmt.Errorf("merge clips: %w", err)
	}
	audioPath := filepath.Join(t.Dir, synthesizedAudioFile)
	if err := pcm.WriteWAV(audioPath, merged.Audio); err != nil {
		return fmt.Errorf("write merged audio: %w", err)
	}
	logger.Info("audio merged",
		logging.Int("clips", len(placed)),
		logging.Int("stretched", countStretched(placed)),
		logging.Float64("merged_seconds", merged.Duration),
		logging.Float64("timeline_seconds", transcript.End(segments)),
	)

	m.progress(logger, t.ID, task.StatusSynthesizing, 85, "replacing video audio")
	output := filepath.Join(t.Dir, outputNoSubtitles)
	if err := m.deps.Transcoder.ReplaceAudio(ctx, t.VideoPath, audioPath, output); err != nil {
		return fmt.Errorf("replace audio: %w", err)
	}

	srtPath := filepath.Join(t.Dir, subtitlesFile)
	if err := subtitles.Write(srtPath, segments); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}
	if issues := subtitles.ValidateFile(srtPath); len(issues) > 0 {
		logging.WarnWithContext(logger, "subtitle file has issues", "subtitle_validation_failed",
			logging.Any("issues", issues),
			logging.String(logging.FieldErrorHint, "check recognized segment timings"),
		)
	}
	if addSubtitles {
		m.progress(logger, t.ID, task.StatusSynthesizing, 90, "burning in subtitles")
		burned := filepath.Join(t.Dir, outputWithSubtitles)
		style := subtitles.StyleFromConfig(m.cfg.Subtitles)
		if err := m.deps.Transcoder.BurnSubtitles(ctx, output, srtPath, style.ForceStyle(), burned); err != nil {
			return fmt.Errorf("burn subtitles: %w", err)
		}
		output = burned
	}

	completed, err := m.tasks.Update(t.ID, func(cur *task.Task) error {
		cur.Status = task.StatusCompleted
		cur.Progress = 100
		cur.Message = completionMessage(len(result.Clips), len(segments))
		cur.SynthesizedSegments = len(result.Clips)
		cur.FailedSegments = result.Failed
		cur.MergedDuration = merged.Duration
		cur.OutputPath = output
		cur.SubtitlesPath = srtPath
		cur.HasSubtitles = addSubtitles
		return nil
	})
	if err != nil {
		logger.Debug("task removed before synthesis finished", logging.Error(err))
		return nil
	}
	logger.Info("voice replacement complete",
		logging.String("output", output),
		logging.Int("synthesized", len(result.Clips)),
		logging.Int("failed", len(result.Failed)),
		logging.String(logging.FieldEventType, "task_completed"),
	)
	m.persistRecord(ctx, logger, completed)
	m.logSynthesis(ctx, logger, completed, voice, result.Clips)
	return nil
}

func completionMessage(synthesized, total int) string {
	if synthesized == total {
		return "voice replacement complete"
	}
	return fmt.Sprintf("voice replacement complete (%d of %d segments voiced)", synthesized, total)
}

func countStretched(placed []timeline.PlacedClip) int {
	n := 0
	for _, p := range placed {
		if p.Stretched {
			n++
		}
	}
	return n
}

// logSynthesis appends a history row. Failure is a warning only.
func (m *Manager) logSynthesis(ctx context.Context, logger *slog.Logger, t task.Task, voice synthesis.Voice, clips synthesis.Clips) {
	if m.deps.Catalog == nil {
		return
	}
	textLength := 0
	for _, seg := range t.Segments {
		textLength += utf8.RuneCountInString(seg.Text)
	}
	var voiced float64
	for idx := range clips {
		if idx >= 0 && idx < len(t.Segments) {
			voiced += t.Segments[idx].Duration()
		}
	}
	entry := catalog.SynthesisLog{
		Type:       catalog.LogTypeVoiceReplace,
		UserID:     t.OwnerID,
		VoiceID:    voice.StoredID,
		TaskID:     t.ID,
		TextLength: textLength,
		Duration:   voiced,
	}
	if err := m.deps.Catalog.AddSynthesisLog(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logger, "record synthesis log failed", "synthesis_log_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog database access"),
			logging.String(logging.FieldImpact, "history omits this job"),
		)
	}
}
