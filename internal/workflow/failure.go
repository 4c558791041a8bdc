package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"revoice/internal/catalog"
	"revoice/internal/crossfade"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/synthesis"
	"revoice/internal/task"
)

func failureHint(err error) string {
	switch {
	case errors.Is(err, ErrExtractionFailed):
		return "confirm the upload has an audio track and ffmpeg is installed"
	case errors.Is(err, ErrRecognitionUnavailable):
		return "check the recognition provider url and that the service is running"
	case errors.Is(err, synthesis.ErrNoAudioGenerated):
		return "every segment failed; check the synthesis provider logs"
	case errors.Is(err, crossfade.ErrSampleRateMismatch), errors.Is(err, crossfade.ErrChannelMismatch):
		return "the synthesis provider returned clips in different formats"
	case errors.Is(err, services.ErrConfiguration):
		return "review the revoice configuration"
	case errors.Is(err, context.Canceled):
		return "the server shut down or the task was removed while the stage was running"
	default:
		return "check logs for details"
	}
}

// persistRecord writes a terminal snapshot. Failures are logged only.
func (m *Manager) persistRecord(ctx context.Context, logger *slog.Logger, t task.Task) {
	if m.deps.Catalog == nil {
		return
	}
	snapshot, err := json.Marshal(t)
	if err != nil {
		logger.Debug("encode task snapshot failed", logging.Error(err))
		return
	}
	rec := catalog.TaskRecord{
		TaskID:   t.ID,
		UserID:   t.OwnerID,
		Status:   string(t.Status),
		Snapshot: string(snapshot),
	}
	if err := m.deps.Catalog.PutTaskRecord(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(logger, "persist task record failed", "task_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog database access"),
			logging.String(logging.FieldImpact, "task history missing this task"),
		)
	}
}
