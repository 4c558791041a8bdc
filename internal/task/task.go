package task

import (
	"slices"
	"time"

	"revoice/internal/transcript"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusPending      Status = "pending"
	StatusProcessing   Status = "processing"
	StatusAnalyzing    Status = "analyzing"
	StatusAnalyzed     Status = "analyzed"
	StatusSynthesizing Status = "synthesizing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Terminal reports whether no stage is running or will run without a new
// request.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Running reports whether a background stage currently owns the task.
func (s Status) Running() bool {
	return s == StatusAnalyzing || s == StatusSynthesizing
}

// Task is one voice replacement job.
type Task struct {
	ID       string `json:"task_id"`
	OwnerID  int64  `json:"owner_id"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`

	OriginalName string `json:"original_name"`
	Dir          string `json:"-"`
	VideoPath    string `json:"-"`
	AudioPath    string `json:"-"`

	Segments       []transcript.Segment `json:"segments,omitempty"`
	Language       string               `json:"language,omitempty"`
	SourceDuration float64              `json:"source_duration,omitempty"`

	SynthesizedSegments int     `json:"synthesized_segments,omitempty"`
	FailedSegments      []int   `json:"failed_segments,omitempty"`
	MergedDuration      float64 `json:"merged_duration,omitempty"`

	OutputPath    string `json:"-"`
	SubtitlesPath string `json:"-"`
	HasSubtitles  bool   `json:"has_subtitles"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy.
func (t Task) Clone() Task {
	out := t
	out.Segments = slices.Clone(t.Segments)
	out.FailedSegments = slices.Clone(t.FailedSegments)
	return out
}
