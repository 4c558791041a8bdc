package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"revoice/internal/catalog"
	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/media/ffprobe"
	"revoice/internal/services"
	"revoice/internal/synthesis"
	"revoice/internal/task"
	"revoice/internal/timeline"
	"revoice/internal/transcript"
)

// Recognizer turns an audio file into ordered timed segments.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath string) ([]transcript.Segment, error)
}

// Transcoder performs the container-level media operations.
type Transcoder interface {
	ExtractAudio(ctx context.Context, video, dest string) error
	ReplaceAudio(ctx context.Context, video, audio, dest string) error
	BurnSubtitles(ctx context.Context, video, srt, forceStyle, dest string) error
}

// Prober inspects uploads before extraction.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Catalog persists synthesis history and terminal task snapshots.
type Catalog interface {
	AddSynthesisLog(ctx context.Context, entry catalog.SynthesisLog) error
	PutTaskRecord(ctx context.Context, rec catalog.TaskRecord) error
	DeleteTaskRecord(ctx context.Context, taskID string) error
}

// VoiceStore looks up, registers, and removes catalog voices.
type VoiceStore interface {
	synthesis.VoiceLookup
	AddVoice(ctx context.Context, v catalog.Voice) (*catalog.Voice, error)
	DeleteVoice(ctx context.Context, id int64) error
}

// Dependencies are the collaborators a Manager drives. Only Transcoder,
// Recognizer, and Synthesizer are required for a full run; the rest degrade
// gracefully when nil.
type Dependencies struct {
	Recognizer  Recognizer
	Synthesizer synthesis.Synthesizer
	Presets     synthesis.PresetLister
	Voices      VoiceStore
	Transcoder  Transcoder
	Stretcher   timeline.Stretcher
	Prober      Prober
	Catalog     Catalog
}

// stageStopTimeout bounds how long removal waits for a cancelled stage.
const stageStopTimeout = 10 * time.Second

// Manager coordinates task stages.
type Manager struct {
	cfg      *config.Config
	deps     Dependencies
	tasks    *task.Registry
	resolver *synthesis.Resolver
	logger   *slog.Logger
	newID    func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stagesMu sync.Mutex
	stages   map[string]runningStage
}

type runningStage struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithRegistry replaces the task registry (for testing).
func WithRegistry(registry *task.Registry) ManagerOption {
	return func(m *Manager) {
		if registry != nil {
			m.tasks = registry
		}
	}
}

// WithIDGenerator replaces uuid task ids (for testing).
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, deps Dependencies, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:    cfg,
		deps:   deps,
		tasks:  task.NewRegistry(),
		logger: logger,
		newID:  uuid.NewString,
		ctx:    ctx,
		cancel: cancel,
		stages: make(map[string]runningStage),
	}
	m.resolver = &synthesis.Resolver{
		Voices:            deps.Voices,
		Presets:           deps.Presets,
		VoiceDir:          cfg.Paths.VoiceDir,
		DefaultPromptText: cfg.Synthesis.DefaultPromptText,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tasks exposes the registry for read-only inspection.
func (m *Manager) Tasks() *task.Registry {
	return m.tasks
}

// PresetVoices lists the synthesis engine's built-in speakers.
func (m *Manager) PresetVoices(ctx context.Context) ([]string, error) {
	if m.deps.Presets == nil {
		return nil, nil
	}
	return m.deps.Presets.PresetVoices(ctx)
}

// Wait blocks until every running stage has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels running stages and waits for them to exit.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

type stageFunc func(ctx context.Context, logger *slog.Logger) error

// goStage runs fn on its own goroutine. Errors and panics mark the task failed.
// At most one stage runs per task; the registry transition guards enforce it.
func (m *Manager) goStage(taskID, stage string, fn stageFunc) {
	stageCtx, cancel := context.WithCancel(m.ctx)
	running := runningStage{cancel: cancel, done: make(chan struct{})}
	m.stagesMu.Lock()
	m.stages[taskID] = running
	m.stagesMu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.stagesMu.Lock()
			if current, ok := m.stages[taskID]; ok && current.done == running.done {
				delete(m.stages, taskID)
			}
			m.stagesMu.Unlock()
			cancel()
			close(running.done)
		}()
		ctx := services.WithStage(services.WithTaskID(stageCtx, taskID), stage)
		logger := logging.WithContext(ctx, m.logger)
		started := time.Now()

		defer func() {
			if r := recover(); r != nil {
				m.failTask(ctx, logger, taskID, stage, fmt.Errorf("%s panicked: %v", stage, r))
			}
		}()

		logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
		if err := fn(ctx, logger); err != nil {
			m.failTask(ctx, logger, taskID, stage, err)
			return
		}
		logger.Info("stage completed",
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldEventType, "stage_complete"),
		)
	}()
}

// stopStage cancels the task's running stage and waits up to timeout for it
// to return. It reports whether a stage was running.
func (m *Manager) stopStage(taskID string, timeout time.Duration) bool {
	m.stagesMu.Lock()
	running, ok := m.stages[taskID]
	m.stagesMu.Unlock()
	if !ok {
		return false
	}
	running.cancel()
	select {
	case <-running.done:
	case <-time.After(timeout):
	}
	return true
}

// progress records a checkpoint, ignoring tasks removed mid-stage.
func (m *Manager) progress(logger *slog.Logger, taskID string, status task.Status, percent int, message string) {
	if _, err := m.tasks.SetProgress(taskID, status, percent, message); err != nil {
		logger.Debug("progress update skipped", logging.Error(err))
		return
	}
	logger.Debug("task progress",
		logging.String("status", string(status)),
		logging.Int("progress", percent),
		logging.String("message", message),
	)
}

func (m *Manager) failTask(ctx context.Context, logger *slog.Logger, taskID, stage string, stageErr error) {
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = stage + " failed"
	}
	failed, err := m.tasks.Fail(taskID, message)
	if err != nil {
		logger.Debug("task removed before failure could be recorded", logging.Error(err))
		return
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.Error(stageErr),
		logging.String(logging.FieldErrorHint, failureHint(stageErr)),
	)
	m.persistRecord(ctx, logger, failed)
}
