package workflow

import (
	"context"
	"time"

	"revoice/internal/logging"
	"revoice/internal/staging"
)

// Reap removes terminal tasks idle for longer than the configured TTL and
// returns how many were removed. It is a no-op when the TTL is zero.
func (m *Manager) Reap(ctx context.Context) int {
	ttl := m.cfg.TaskTTL()
	if ttl <= 0 {
		return 0
	}
	expired := m.tasks.Expired(ttl)
	for _, t := range expired {
		m.remove(ctx, t, "expired")
	}
	return len(expired)
}

// SweepOrphans removes task directories under work_dir that no registered
// task owns, such as those left by a previous process. Directories younger
// than the TTL are kept; with no TTL configured nothing is swept.
func (m *Manager) SweepOrphans(ctx context.Context) staging.CleanResult {
	ttl := m.cfg.TaskTTL()
	if ttl <= 0 {
		return staging.CleanResult{}
	}
	active := make(map[string]struct{})
	for _, t := range m.tasks.List() {
		active[t.ID] = struct{}{}
	}
	return staging.CleanOrphaned(ctx, m.cfg.Paths.WorkDir, active, ttl, m.logger)
}

// RunReaper sweeps orphans once and then reaps expired tasks on every
// interval until ctx is done. It returns immediately when the TTL is zero.
func (m *Manager) RunReaper(ctx context.Context) {
	if m.cfg.TaskTTL() <= 0 {
		return
	}
	interval := time.Duration(m.cfg.Workflow.ReapIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	logger := m.logger.With(logging.String("loop", "reaper"))
	if swept := m.SweepOrphans(ctx); len(swept.Removed) > 0 {
		logger.Info("swept orphaned task directories", logging.Int("removed", len(swept.Removed)))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Reap(ctx); n > 0 {
				logger.Info("reaped expired tasks",
					logging.Int("removed", n),
					logging.String(logging.FieldEventType, "tasks_reaped"),
				)
			}
		}
	}
}
