package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// LogTypeVoiceReplace tags synthesis log rows written by the voice
// replacement pipeline.
const LogTypeVoiceReplace = "voice_replace"

// LogTypeSynthesize tags rows written by one-off text-to-speech requests.
const LogTypeSynthesize = "synthesize"

// SynthesisLog records one completed synthesis job.
type SynthesisLog struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	VoiceID    *int64    `json:"voice_id,omitempty"`
	TaskID     string    `json:"task_id,omitempty"`
	TextLength int       `json:"text_length"`
	Duration   float64   `json:"duration"`
	CreatedAt  time.Time `json:"created_at"`
}

// AddSynthesisLog appends a history row.
func (s *Store) AddSynthesisLog(ctx context.Context, entry SynthesisLog) error {
	entryType := strings.TrimSpace(entry.Type)
	if entryType == "" {
		entryType = LogTypeVoiceReplace
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var voiceID any
	if entry.VoiceID != nil {
		voiceID = *entry.VoiceID
	}
	var taskID any
	if entry.TaskID != "" {
		taskID = entry.TaskID
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO synthesis_logs (type, user_id, voice_id, task_id, text_length, duration, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entryType, entry.UserID, voiceID, taskID, entry.TextLength, entry.Duration, formatTime(created),
	); err != nil {
		return fmt.Errorf("insert synthesis log: %w", err)
	}
	return nil
}

// ListSynthesisLogs returns the newest rows first. A nil userID lists every
// user's history. limit <= 0 means no limit.
func (s *Store) ListSynthesisLogs(ctx context.Context, userID *int64, limit int) ([]SynthesisLog, error) {
	query := "SELECT id, type, user_id, voice_id, task_id, text_length, duration, created_at FROM synthesis_logs"
	var args []any
	if userID != nil {
		query += " WHERE user_id = ?"
		args = append(args, *userID)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list synthesis logs: %w", err)
	}
	defer rows.Close()

	var logs []SynthesisLog
	for rows.Next() {
		var (
			entry   SynthesisLog
			voiceID sql.NullInt64
			taskID  sql.NullString
			created string
		)
		if err := rows.Scan(&entry.ID, &entry.Type, &entry.UserID, &voiceID, &taskID, &entry.TextLength, &entry.Duration, &created); err != nil {
			return nil, fmt.Errorf("scan synthesis log: %w", err)
		}
		if voiceID.Valid {
			id := voiceID.Int64
			entry.VoiceID = &id
		}
		entry.TaskID = taskID.String
		entry.CreatedAt = parseTime(created)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
