package transcript_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"revoice/internal/transcript"
)

func TestSanitizeDropsInvalidAndOrders(t *testing.T) {
	in := []transcript.Segment{
		{Start: 2.5, End: 4, Text: " b "},
		{Start: 1, End: 1, Text: "zero length"},
		{Start: -1, End: 0.5, Text: "negative"},
		{Start: 0, End: 2, Text: "a"},
	}
	got, dropped := transcript.Sanitize(in)
	if dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", dropped)
	}
	if len(got) != 2 || got[0].Text != "a" || got[1].Text != "b" {
		t.Fatalf("unexpected sanitized segments %+v", got)
	}
}

func TestFullTextAndDurations(t *testing.T) {
	segs := []transcript.Segment{
		{Start: 0, End: 2, Text: "hello"},
		{Start: 2.5, End: 4, Text: ""},
		{Start: 4, End: 5.5, Text: "world"},
	}
	if got := transcript.FullText(segs); got != "hello world" {
		t.Fatalf("unexpected full text %q", got)
	}
	if got := transcript.TotalDuration(segs); got != 5 {
		t.Fatalf("unexpected total duration %v", got)
	}
	if got := transcript.End(segs); got != 5.5 {
		t.Fatalf("unexpected end %v", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	segs := []transcript.Segment{{Start: 0, End: 1.25, Text: "你好"}}
	if err := transcript.Save(dir, segs); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := transcript.Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(got) != 1 || got[0] != segs[0] {
		t.Fatalf("unexpected loaded segments %+v", got)
	}
	text, err := os.ReadFile(filepath.Join(dir, transcript.TextFile))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(text) != "你好" {
		t.Fatalf("unexpected transcript %q", text)
	}
}

func TestLoadMissingReturnsNotExist(t *testing.T) {
	if _, err := transcript.Load(t.TempDir()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
