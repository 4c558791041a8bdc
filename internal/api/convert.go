package api

import (
	"time"

	"revoice/internal/catalog"
	"revoice/internal/preflight"
	"revoice/internal/task"
	"revoice/internal/transcript"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromTask converts a task snapshot to its API representation.
func FromTask(t task.Task) Task {
	dto := Task{
		TaskID:              t.ID,
		Status:              string(t.Status),
		Progress:            t.Progress,
		Message:             t.Message,
		OriginalName:        t.OriginalName,
		SourceDuration:      t.SourceDuration,
		SynthesizedSegments: t.SynthesizedSegments,
		FailedSegments:      t.FailedSegments,
		MergedDuration:      t.MergedDuration,
		HasSubtitles:        t.HasSubtitles,
		Downloadable:        t.Status == task.StatusCompleted,
		CreatedAt:           formatTime(t.CreatedAt),
		UpdatedAt:           formatTime(t.UpdatedAt),
	}
	if len(t.Segments) > 0 {
		dto.Segments = make([]Segment, len(t.Segments))
		for i, seg := range t.Segments {
			dto.Segments[i] = Segment{Start: seg.Start, End: seg.End, Text: seg.Text}
		}
		dto.Text = transcript.FullText(t.Segments)
	}
	return dto
}

// FromTasks converts a task list.
func FromTasks(tasks []task.Task) TaskListResponse {
	out := TaskListResponse{Tasks: make([]Task, 0, len(tasks))}
	for _, t := range tasks {
		out.Tasks = append(out.Tasks, FromTask(t))
	}
	return out
}

// FromVoices builds the voice listing. Preset indices are 1-based.
func FromVoices(presets []string, stored []catalog.Voice) VoiceListResponse {
	resp := VoiceListResponse{
		Presets: make([]Voice, 0, len(presets)),
		Voices:  make([]Voice, 0, len(stored)),
	}
	for i, name := range presets {
		resp.Presets = append(resp.Presets, Voice{Index: i + 1, Name: name, Preset: true})
	}
	for _, v := range stored {
		resp.Voices = append(resp.Voices, Voice{
			ID:         v.ID,
			Name:       v.Name,
			Preset:     v.IsPreset,
			Transcript: v.Transcript,
			CreatedAt:  formatTime(v.CreatedAt),
		})
	}
	return resp
}

// FromSynthesisLogs converts history rows.
func FromSynthesisLogs(logs []catalog.SynthesisLog) HistoryResponse {
	resp := HistoryResponse{Entries: make([]HistoryEntry, 0, len(logs))}
	for _, l := range logs {
		resp.Entries = append(resp.Entries, HistoryEntry{
			ID:         l.ID,
			Type:       l.Type,
			UserID:     l.UserID,
			VoiceID:    l.VoiceID,
			TaskID:     l.TaskID,
			TextLength: l.TextLength,
			Duration:   l.Duration,
			CreatedAt:  formatTime(l.CreatedAt),
		})
	}
	return resp
}

// FromPreflight builds a health payload. Status is "ok" only when every
// check passed.
func FromPreflight(results []preflight.Result, activeTasks int) Health {
	health := Health{Status: "ok", ActiveTasks: activeTasks, Checks: make([]CheckResult, 0, len(results))}
	for _, r := range results {
		health.Checks = append(health.Checks, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
		if !r.Passed {
			health.Status = "degraded"
		}
	}
	return health
}
