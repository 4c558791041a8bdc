package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/fileutil"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/staging"
	"revoice/internal/subtitles"
	"revoice/internal/task"
)

// Artifact is a downloadable task file.
type Artifact struct {
	Path string
	// Name is the suggested download filename.
	Name string
}

func (m *Manager) authorize(id string, principal services.Principal) (task.Task, error) {
	t, ok := m.tasks.Get(strings.TrimSpace(id))
	if !ok {
		return task.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if !principal.CanAccess(t.OwnerID) {
		return task.Task{}, fmt.Errorf("%w: %s", ErrForbidden, id)
	}
	return t, nil
}

// Status returns the current task snapshot.
func (m *Manager) Status(_ context.Context, principal services.Principal, id string) (task.Task, error) {
	return m.authorize(id, principal)
}

// List returns the tasks principal may see, oldest first.
func (m *Manager) List(principal services.Principal) []task.Task {
	all := m.tasks.List()
	visible := all[:0]
	for _, t := range all {
		if principal.CanAccess(t.OwnerID) {
			visible = append(visible, t)
		}
	}
	return visible
}

func baseName(t task.Task) string {
	name := strings.TrimSuffix(t.OriginalName, filepath.Ext(t.OriginalName))
	if name == "" {
		return t.ID
	}
	return name
}

func (m *Manager) completed(id string, principal services.Principal) (task.Task, error) {
	t, err := m.authorize(id, principal)
	if err != nil {
		return task.Task{}, err
	}
	if t.Status != task.StatusCompleted {
		return task.Task{}, fmt.Errorf("%w: status is %s", ErrNotCompleted, t.Status)
	}
	return t, nil
}

// Download returns the final video of a completed task.
func (m *Manager) Download(_ context.Context, principal services.Principal, id string) (Artifact, error) {
	t, err := m.completed(id, principal)
	if err != nil {
		return Artifact{}, err
	}
	if !fileutil.NonEmpty(t.OutputPath) {
		return Artifact{}, services.Wrap(services.ErrNotFound, "download", "open output", "output file missing", nil)
	}
	return Artifact{Path: t.OutputPath, Name: baseName(t) + "_replaced.mp4"}, nil
}

// DownloadSubtitles returns the caption file of a completed task, rewriting
// it from the stored segments when the file has gone missing.
func (m *Manager) DownloadSubtitles(ctx context.Context, principal services.Principal, id string) (Artifact, error) {
	t, err := m.completed(id, principal)
	if err != nil {
		return Artifact{}, err
	}
	path := t.SubtitlesPath
	if path == "" {
		path = filepath.Join(t.Dir, subtitlesFile)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		if len(t.Segments) == 0 {
			return Artifact{}, services.Wrap(services.ErrNotFound, "download", "open subtitles", "subtitle file missing", statErr)
		}
		if err := subtitles.Write(path, t.Segments); err != nil {
			return Artifact{}, fmt.Errorf("regenerate subtitles: %w", err)
		}
		logging.WithContext(services.WithTaskID(ctx, t.ID), m.logger).Info("regenerated missing subtitle file",
			logging.String("path", path),
			logging.String(logging.FieldEventType, "subtitles_regenerated"),
		)
	}
	return Artifact{Path: path, Name: baseName(t) + "_subtitles.srt"}, nil
}

// Cleanup cancels any running stage, then deletes the task directory, its
// registry entry, and its catalog record. A directory that no longer exists
// is not an error.
func (m *Manager) Cleanup(ctx context.Context, principal services.Principal, id string) error {
	t, err := m.authorize(id, principal)
	if err != nil {
		return err
	}
	m.remove(ctx, t, "cleanup requested")
	return nil
}

func (m *Manager) remove(ctx context.Context, t task.Task, reason string) {
	logger := logging.WithContext(services.WithTaskID(ctx, t.ID), m.logger)
	if m.stopStage(t.ID, stageStopTimeout) {
		logger.Info("cancelled running stage before removal", logging.String("status", string(t.Status)))
	}
	dir := t.Dir
	if dir == "" {
		dir = staging.TaskDir(m.cfg.Paths.WorkDir, t.ID)
	}
	if err := staging.Remove(dir); err != nil {
		logging.WarnWithContext(logger, "remove task directory failed", "task_cleanup_failed",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check work_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
	m.tasks.Remove(t.ID)
	if m.deps.Catalog != nil {
		if err := m.deps.Catalog.DeleteTaskRecord(context.WithoutCancel(ctx), t.ID); err != nil {
			logger.Debug("delete task record failed", logging.Error(err))
		}
	}
	logger.Info("task removed",
		logging.String("reason", reason),
		logging.String("status", string(t.Status)),
		logging.String(logging.FieldEventType, "task_removed"),
	)
}
