package task

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound indicates an unknown task id.
	ErrNotFound = errors.New("task not found")
	// ErrExists indicates an id collision on insert.
	ErrExists = errors.New("task already exists")
)

// Registry is a concurrency-safe keyed store of tasks.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	now   func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task), now: time.Now}
}

// WithClock overrides the time source (for testing).
func (r *Registry) WithClock(now func() time.Time) *Registry {
	if now != nil {
		r.now = now
	}
	return r
}

// Insert adds t. CreatedAt and UpdatedAt default to the current time.
func (r *Registry) Insert(t Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; ok {
		return Task{}, fmt.Errorf("%w: %s", ErrExists, t.ID)
	}
	now := r.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	stored := t.Clone()
	r.tasks[t.ID] = &stored
	return stored.Clone(), nil
}

// Get returns a copy of the task.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return t.Clone(), true
}

// Update applies fn to the stored task under the registry lock. If fn
// returns an error the task is left unchanged.
func (r *Registry) Update(id string, fn func(*Task) error) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	working := t.Clone()
	if err := fn(&working); err != nil {
		return t.Clone(), err
	}
	working.UpdatedAt = r.now()
	*t = working
	return working.Clone(), nil
}

// SetProgress records a stage checkpoint. Within an unchanged status the
// progress never decreases.
func (r *Registry) SetProgress(id string, status Status, progress int, message string) (Task, error) {
	return r.Update(id, func(t *Task) error {
		progress = min(max(progress, 0), 100)
		if t.Status == status && progress < t.Progress {
			progress = t.Progress
		}
		t.Status = status
		t.Progress = progress
		t.Message = message
		return nil
	})
}

// Fail moves the task to failed with progress reset to zero.
func (r *Registry) Fail(id, message string) (Task, error) {
	return r.Update(id, func(t *Task) error {
		t.Status = StatusFailed
		t.Progress = 0
		t.Message = message
		return nil
	})
}

// Remove deletes the task and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[id]
	delete(r.tasks, id)
	return ok
}

// List returns copies of every task ordered by creation time.
func (r *Registry) List() []Task {
	r.mu.RLock()
	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Expired returns terminal tasks not updated within ttl.
func (r *Registry) Expired(ttl time.Duration) []Task {
	if ttl <= 0 {
		return nil
	}
	cutoff := r.now().Add(-ttl)
	var out []Task
	for _, t := range r.List() {
		if t.Status.Terminal() && t.UpdatedAt.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
