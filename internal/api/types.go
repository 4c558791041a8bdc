package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Segment is one recognized utterance.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Task describes a voice replacement task in a transport-friendly format.
type Task struct {
	TaskID              string    `json:"task_id"`
	Status              string    `json:"status"`
	Progress            int       `json:"progress"`
	Message             string    `json:"message"`
	OriginalName        string    `json:"original_name,omitempty"`
	Segments            []Segment `json:"segments,omitempty"`
	Text                string    `json:"text,omitempty"`
	SourceDuration      float64   `json:"source_duration,omitempty"`
	SynthesizedSegments int       `json:"synthesized_segments,omitempty"`
	FailedSegments      []int     `json:"failed_segments,omitempty"`
	MergedDuration      float64   `json:"merged_duration,omitempty"`
	HasSubtitles        bool      `json:"has_subtitles"`
	Downloadable        bool      `json:"downloadable"`
	CreatedAt           string    `json:"created_at,omitempty"`
	UpdatedAt           string    `json:"updated_at,omitempty"`
}

// TaskListResponse wraps the tasks visible to the caller.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// MessageResponse acknowledges a task or voice action.
type MessageResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id,omitempty"`
	VoiceID int64  `json:"voice_id,omitempty"`
}

// Voice is a selectable voice. Presets are addressed by 1-based Index or
// Name; catalog voices by ID.
type Voice struct {
	ID         int64  `json:"id,omitempty"`
	Index      int    `json:"index,omitempty"`
	Name       string `json:"name"`
	Preset     bool   `json:"is_preset"`
	Transcript string `json:"transcript,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// VoiceListResponse lists engine presets followed by catalog voices.
type VoiceListResponse struct {
	Presets []Voice `json:"presets"`
	Voices  []Voice `json:"voices"`
}

// HistoryEntry is one synthesis log row.
type HistoryEntry struct {
	ID         int64   `json:"id"`
	Type       string  `json:"type"`
	UserID     int64   `json:"user_id"`
	VoiceID    *int64  `json:"voice_id"`
	TaskID     string  `json:"task_id,omitempty"`
	TextLength int     `json:"text_length"`
	Duration   float64 `json:"duration"`
	CreatedAt  string  `json:"created_at"`
}

// HistoryResponse wraps history rows, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// CheckResult is one preflight check outcome.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Health summarizes server readiness.
type Health struct {
	Status      string        `json:"status"`
	ActiveTasks int           `json:"active_tasks"`
	Checks      []CheckResult `json:"checks"`
}
