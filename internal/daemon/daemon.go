package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"revoice/internal/catalog"
	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/workflow"
)

// Daemon coordinates the API server and background reaper and enforces
// single-instance execution per work directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	workflow *workflow.Manager
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	loops   sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running     bool
	APIAddress  string
	CatalogPath string
	LockPath    string
	Tasks       int
	ActiveTasks int
}

// New constructs a daemon with initialized dependencies. The store may be nil
// when history and catalog voices are not needed.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, logger, and workflow manager")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		api:      newAPIServer(cfg, wf, store, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, starts the API server, and launches the
// reaper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another revoice server is already running on this work directory")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.loops.Add(1)
	go func() {
		defer d.loops.Done()
		d.workflow.RunReaper(d.ctx)
	}()

	d.running.Store(true)
	d.logger.Info("revoice daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.addr()),
	)
	return nil
}

// Stop cancels running stages, stops the API server, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.loops.Wait()
	d.workflow.Close()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no server is running"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("revoice daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	tasks := d.workflow.Tasks().List()
	status := Status{
		Running:     d.running.Load(),
		APIAddress:  d.api.addr(),
		LockPath:    d.lockPath,
		Tasks:       len(tasks),
		ActiveTasks: activeTasks(tasks),
	}
	if d.store != nil {
		status.CatalogPath = d.store.Path()
	}
	return status
}
