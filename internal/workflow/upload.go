package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"revoice/internal/fileutil"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/staging"
	"revoice/internal/task"
)

var acceptedExtensions = map[string]struct{}{
	"mp4":  {},
	"avi":  {},
	"mov":  {},
	"mkv":  {},
	"webm": {},
}

// AcceptedExtension reports whether name ends in an accepted video container extension.
func AcceptedExtension(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(name)), "."))
	_, ok := acceptedExtensions[ext]
	return ok
}

// Upload stores body as a new task's source video.
func (m *Manager) Upload(ctx context.Context, principal services.Principal, filename string, body io.Reader) (task.Task, error) {
	if strings.TrimSpace(filename) == "" {
		return task.Task{}, services.Wrap(services.ErrValidation, "upload", "validate", "no file uploaded", nil)
	}
	if !AcceptedExtension(filename) {
		return task.Task{}, fmt.Errorf("%w: %q (accepted: mp4, avi, mov, mkv, webm)", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	id := m.newID()
	logger := logging.WithContext(services.WithTaskID(ctx, id), m.logger)
	dir, err := staging.Create(m.cfg.Paths.WorkDir, id)
	if err != nil {
		return task.Task{}, services.Wrap(services.ErrConfiguration, "upload", "create task directory", "", err)
	}

	name := fileutil.SanitizeFileName(filename)
	videoPath := filepath.Join(dir, name)
	written, err := fileutil.WriteStream(videoPath, body, m.cfg.MaxUploadBytes())
	if err != nil {
		_ = staging.Remove(dir)
		if errors.Is(err, fileutil.ErrTooLarge) {
			return task.Task{}, services.Wrap(services.ErrValidation, "upload", "store video", "", err)
		}
		return task.Task{}, fmt.Errorf("store upload: %w", err)
	}

	created, err := m.tasks.Insert(task.Task{
		ID:           id,
		OwnerID:      principal.UserID,
		Status:       task.StatusProcessing,
		Progress:     10,
		Message:      "upload complete, ready for analysis",
		OriginalName: name,
		Dir:          dir,
		VideoPath:    videoPath,
	})
	if err != nil {
		_ = staging.Remove(dir)
		return task.Task{}, err
	}
	logger.Info("video uploaded",
		logging.String("file", name),
		logging.Int64("bytes", written),
		logging.Int64("user_id", principal.UserID),
		logging.String(logging.FieldEventType, "task_created"),
	)
	return created, nil
}
