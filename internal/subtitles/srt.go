package subtitles

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"revoice/internal/fileutil"
	"revoice/internal/transcript"
)

// Cue is one parsed SRT block.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Sub-millisecond
// remainders are truncated.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	// The epsilon absorbs float error such as 1.001*1000 = 1000.9999999.
	total := int64(math.Floor(seconds*1000 + 1e-6))
	millis := total % 1000
	secs := (total / 1000) % 60
	minutes := (total / 60000) % 60
	hours := total / 3600000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// Format renders one caption block per segment, numbered from 1.
func Format(segments []transcript.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, FormatTimestamp(seg.Start), FormatTimestamp(seg.End), cueText(seg.Text))
	}
	return b.String()
}

// cueText collapses whitespace within each line and drops blank lines, which
// would otherwise terminate the block early.
func cueText(text string) string {
	var lines []string
	for line := range strings.SplitSeq(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Write stores the SRT rendering of segments at path.
func Write(path string, segments []transcript.Segment) error {
	if err := fileutil.WriteFileAtomic(path, []byte(Format(segments)), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// ParseTimestamp parses HH:MM:SS,mmm (a period separator is also accepted).
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Parse reads SRT content into cues.
func Parse(content string) ([]Cue, error) {
	content = strings.ReplaceAll(strings.TrimSpace(content), "\r\n", "\n")
	if content == "" {
		return nil, nil
	}
	blocks := strings.Split(content, "\n\n")
	cues := make([]Cue, 0, len(blocks))
	for n, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			return nil, fmt.Errorf("cue %d: incomplete block", n+1)
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return nil, fmt.Errorf("cue %d: invalid index %q", n+1, lines[0])
		}
		bounds := strings.Split(lines[1], "-->")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("cue %d: missing time range", n+1)
		}
		start, err := ParseTimestamp(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", n+1, err)
		}
		end, err := ParseTimestamp(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", n+1, err)
		}
		cues = append(cues, Cue{Index: index, Start: start, End: end, Text: strings.Join(lines[2:], "\n")})
	}
	return cues, nil
}

// ValidateFile checks an SRT file for format issues. An empty result means
// validation passed.
func ValidateFile(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("read_error: %v", err)}
	}
	cues, err := Parse(string(data))
	if err != nil {
		return []string{fmt.Sprintf("parse_error: %v", err)}
	}
	if len(cues) == 0 {
		return []string{"empty_subtitle_file"}
	}
	var issues []string
	for i, cue := range cues {
		if cue.Index != i+1 {
			issues = append(issues, fmt.Sprintf("index_gap: cue %d numbered %d", i+1, cue.Index))
		}
		if cue.End < cue.Start {
			issues = append(issues, fmt.Sprintf("inverted_range: cue %d", i+1))
		}
	}
	return issues
}
