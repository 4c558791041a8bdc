package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PresetFilename marks catalog voices that have no reference audio.
const PresetFilename = "preset"

// Voice is a catalog entry. Preset voices are rendered by the synthesis
// engine's built-in speakers; custom voices carry a reference clip under the
// voice directory and the transcript of that clip.
type Voice struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	Filename   string    `json:"filename"`
	Transcript string    `json:"transcript"`
	IsPreset   bool      `json:"is_preset"`
	CreatedAt  time.Time `json:"created_at"`
}

const voiceColumns = "id, user_id, name, filename, transcript, is_preset, created_at"

func scanVoice(scanner interface{ Scan(dest ...any) error }) (*Voice, error) {
	var (
		v       Voice
		preset  int
		created string
	)
	if err := scanner.Scan(&v.ID, &v.UserID, &v.Name, &v.Filename, &v.Transcript, &preset, &created); err != nil {
		return nil, err
	}
	v.IsPreset = preset != 0
	v.CreatedAt = parseTime(created)
	return &v, nil
}

// AddVoice inserts a custom voice owned by v.UserID.
func (s *Store) AddVoice(ctx context.Context, v Voice) (*Voice, error) {
	v.Name = strings.TrimSpace(v.Name)
	if v.Name == "" {
		return nil, errors.New("add voice: name required")
	}
	if !v.IsPreset && strings.TrimSpace(v.Filename) == "" {
		return nil, errors.New("add voice: filename required for custom voices")
	}
	if v.IsPreset {
		v.Filename = PresetFilename
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO voices (user_id, name, filename, transcript, is_preset, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		v.UserID, v.Name, v.Filename, strings.TrimSpace(v.Transcript), boolInt(v.IsPreset), formatTime(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("insert voice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetVoice(ctx, id)
}

// GetVoice fetches a voice by id. Missing voices return an error marked
// services.ErrNotFound.
func (s *Store) GetVoice(ctx context.Context, id int64) (*Voice, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+voiceColumns+" FROM voices WHERE id = ?", id)
	v, err := scanVoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("voice", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get voice: %w", err)
	}
	return v, nil
}

// ListVoices returns presets followed by the voices owned by userID. When
// all is true every voice is returned regardless of owner.
func (s *Store) ListVoices(ctx context.Context, userID int64, all bool) ([]Voice, error) {
	query := "SELECT " + voiceColumns + " FROM voices WHERE is_preset = 1 OR user_id = ? ORDER BY is_preset DESC, id"
	args := []any{userID}
	if all {
		query = "SELECT " + voiceColumns + " FROM voices ORDER BY is_preset DESC, id"
		args = nil
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	defer rows.Close()

	var voices []Voice
	for rows.Next() {
		v, err := scanVoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voice: %w", err)
		}
		voices = append(voices, *v)
	}
	return voices, rows.Err()
}

// DeleteVoice removes a voice row. It does not touch the reference file.
func (s *Store) DeleteVoice(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM voices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete voice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("voice", id)
	}
	return nil
}

// SyncPresets inserts a preset row for every name not already catalogued.
// It returns the number of rows added.
func (s *Store) SyncPresets(ctx context.Context, names []string) (int, error) {
	added := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		res, err := s.execWithRetry(ctx,
			`INSERT OR IGNORE INTO voices (user_id, name, filename, transcript, is_preset, created_at)
             VALUES (0, ?, ?, '', 1, ?)`,
			name, PresetFilename, formatTime(time.Now()),
		)
		if err != nil {
			return added, fmt.Errorf("sync preset %q: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
