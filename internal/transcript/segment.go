// Package transcript models recognized utterances and their on-disk form.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"revoice/internal/fileutil"
)

const (
	// SegmentsFile holds the ordered segment list inside a task directory.
	SegmentsFile = "segments.json"
	// TextFile holds the space-joined transcript inside a task directory.
	TextFile = "transcript.txt"
)

// Segment is one recognized utterance. Times are seconds from the start of
// the source audio.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns the original slot length.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Validate enforces 0 <= start < end.
func (s Segment) Validate() error {
	if s.Start < 0 {
		return fmt.Errorf("segment start %.3f is negative", s.Start)
	}
	if s.End <= s.Start {
		return fmt.Errorf("segment end %.3f does not follow start %.3f", s.End, s.Start)
	}
	return nil
}

// Sanitize trims text, drops segments with invalid timing, and orders the
// remainder by start time. It returns the kept segments and the number dropped.
func Sanitize(segments []Segment) ([]Segment, int) {
	kept := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Validate() != nil {
			continue
		}
		kept = append(kept, seg)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept, len(segments) - len(kept)
}

// FullText joins segment text with single spaces.
func FullText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// TotalDuration returns the sum of original slot lengths.
func TotalDuration(segments []Segment) float64 {
	var total float64
	for _, seg := range segments {
		total += seg.Duration()
	}
	return total
}

// End returns max(segment.end), the span the reconciled timeline covers.
func End(segments []Segment) float64 {
	var end float64
	for _, seg := range segments {
		end = max(end, seg.End)
	}
	return end
}

// Save writes segments.json and transcript.txt into dir.
func Save(dir string, segments []Segment) error {
	if segments == nil {
		segments = []Segment{}
	}
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("encode segments: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, SegmentsFile), data, 0o644); err != nil {
		return fmt.Errorf("write segments: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, TextFile), []byte(FullText(segments)), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Load reads segments.json from dir. A missing file yields os.ErrNotExist.
func Load(dir string) ([]Segment, error) {
	data, err := os.ReadFile(filepath.Join(dir, SegmentsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read segments: %w", err)
	}
	var segments []Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	return segments, nil
}
