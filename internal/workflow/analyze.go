package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"revoice/internal/fileutil"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/task"
	"revoice/internal/transcript"
)

// analyzeFrom lists the statuses analysis may start from. A task that has
// already been analyzed must be re-uploaded to be recognized again.
var analyzeFrom = []task.Status{task.StatusProcessing, task.StatusFailed}

// Analyze starts audio extraction and speech recognition in the background.
func (m *Manager) Analyze(ctx context.Context, principal services.Principal, id string) (task.Task, error) {
	current, err := m.authorize(id, principal)
	if err != nil {
		return task.Task{}, err
	}
	if m.deps.Recognizer == nil {
		return task.Task{}, fmt.Errorf("%w: no recognition provider configured", ErrRecognitionUnavailable)
	}
	if !fileutil.NonEmpty(current.VideoPath) {
		return task.Task{}, services.Wrap(services.ErrNotFound, "analyze", "open video", "uploaded video missing", nil)
	}

	started, err := m.tasks.Update(current.ID, func(t *task.Task) error {
		if err := checkTransition(t.Status, analyzeFrom); err != nil {
			return err
		}
		t.Status = task.StatusAnalyzing
		t.Progress = 20
		t.Message = "extracting audio and recognizing speech"
		t.Segments = nil
		return nil
	})
	if err != nil {
		return task.Task{}, err
	}

	m.goStage(started.ID, "analyze", func(ctx context.Context, logger *slog.Logger) error {
		return m.runAnalyze(ctx, logger, started)
	})
	return started, nil
}

func (m *Manager) runAnalyze(ctx context.Context, logger *slog.Logger, t task.Task) error {
	if m.deps.Transcoder == nil {
		return fmt.Errorf("%w: transcoder not configured", ErrExtractionFailed)
	}

	var sourceDuration float64
	if m.deps.Prober != nil {
		probe, err := m.deps.Prober.Inspect(ctx, t.VideoPath)
		if err != nil {
			return fmt.Errorf("%w: inspect video: %w", ErrExtractionFailed, err)
		}
		audio, ok := probe.PrimaryAudio()
		if !ok {
			return fmt.Errorf("%w: video has no audio stream", ErrExtractionFailed)
		}
		sourceDuration = probe.DurationSeconds()
		logger.Debug("video inspected",
			logging.Int("audio_streams", probe.AudioStreamCount()),
			logging.Int("video_streams", probe.VideoStreamCount()),
			logging.String("audio_codec", audio.CodecName),
			logging.Int("sample_rate", audio.SampleRateHz()),
			logging.Int("channels", audio.Channels),
			logging.Float64("duration_seconds", sourceDuration),
		)
	}

	m.progress(logger, t.ID, task.StatusAnalyzing, 25, "extracting audio from video")
	audioPath := filepath.Join(t.Dir, audioFile)
	if err := m.deps.Transcoder.ExtractAudio(ctx, t.VideoPath, audioPath); err != nil {
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	m.progress(logger, t.ID, task.StatusAnalyzing, 40, "recognizing speech")
	segments, err := m.deps.Recognizer.Recognize(ctx, audioPath)
	if err != nil {
		return recognitionError(err)
	}
	segments, dropped := transcript.Sanitize(segments)
	if dropped > 0 {
		logging.WarnWithContext(logger, "dropped segments with invalid timing", "segments_dropped",
			logging.Int("dropped", dropped),
			logging.String(logging.FieldImpact, "dropped utterances keep their original audio slot silent"),
		)
	}
	if err := transcript.Save(t.Dir, segments); err != nil {
		return err
	}

	analyzed, err := m.tasks.Update(t.ID, func(cur *task.Task) error {
		cur.Status = task.StatusAnalyzed
		cur.Progress = 60
		cur.Message = fmt.Sprintf("analysis complete: %d segments", len(segments))
		cur.AudioPath = audioPath
		cur.Segments = segments
		cur.SourceDuration = sourceDuration
		return nil
	})
	if err != nil {
		logger.Debug("task removed before analysis finished", logging.Error(err))
		return nil
	}
	logger.Info("speech recognized",
		logging.Int("segments", len(analyzed.Segments)),
		logging.Float64("speech_seconds", transcript.TotalDuration(segments)),
	)
	return nil
}

func recognitionError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	switch services.Classify(err) {
	case services.ErrTransient, services.ErrConfiguration:
		return fmt.Errorf("%w: %w", ErrRecognitionUnavailable, err)
	default:
		return fmt.Errorf("speech recognition failed: %w", err)
	}
}

// checkTransition reports ErrTaskBusy while a stage runs and ErrInvalidState
// for any other status outside allowed.
func checkTransition(current task.Status, allowed []task.Status) error {
	for _, s := range allowed {
		if current == s {
			return nil
		}
	}
	if current.Running() {
		return fmt.Errorf("%w: status is %s", ErrTaskBusy, current)
	}
	return fmt.Errorf("%w: status is %s", ErrInvalidState, current)
}
