package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TaskRecord is an opaque snapshot of a task written when it reaches a
// terminal state. Records are informational and never reloaded into the
// in-memory registry.
type TaskRecord struct {
	TaskID    string    `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Status    string    `json:"status"`
	Snapshot  string    `json:"snapshot"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PutTaskRecord inserts or replaces the record for rec.TaskID.
func (s *Store) PutTaskRecord(ctx context.Context, rec TaskRecord) error {
	if rec.TaskID == "" {
		return errors.New("put task record: task id required")
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO task_records (task_id, user_id, status, snapshot_json, updated_at) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(task_id) DO UPDATE SET user_id = excluded.user_id, status = excluded.status,
             snapshot_json = excluded.snapshot_json, updated_at = excluded.updated_at`,
		rec.TaskID, rec.UserID, rec.Status, rec.Snapshot, formatTime(updated),
	); err != nil {
		return fmt.Errorf("put task record: %w", err)
	}
	return nil
}

// GetTaskRecord fetches the record for taskID.
func (s *Store) GetTaskRecord(ctx context.Context, taskID string) (*TaskRecord, error) {
	var (
		rec     TaskRecord
		updated string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT task_id, user_id, status, snapshot_json, updated_at FROM task_records WHERE task_id = ?", taskID,
	).Scan(&rec.TaskID, &rec.UserID, &rec.Status, &rec.Snapshot, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("task record", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("get task record: %w", err)
	}
	rec.UpdatedAt = parseTime(updated)
	return &rec, nil
}

// DeleteTaskRecord removes the record for taskID. Missing records are not an error.
func (s *Store) DeleteTaskRecord(ctx context.Context, taskID string) error {
	if _, err := s.execWithRetry(ctx, "DELETE FROM task_records WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("delete task record: %w", err)
	}
	return nil
}
