package synthesis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"revoice/internal/catalog"
	"revoice/internal/services"
)

type fakeLookup map[int64]catalog.Voice

func (f fakeLookup) GetVoice(_ context.Context, id int64) (*catalog.Voice, error) {
	v, ok := f[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "voice", "missing", nil)
	}
	return &v, nil
}

type fakePresets []string

func (f fakePresets) PresetVoices(context.Context) ([]string, error) { return f, nil }

func TestParseVoiceRef(t *testing.T) {
	tests := []struct {
		id     string
		preset bool
		want   VoiceRef
		err    error
	}{
		{"", true, VoiceRef{}, ErrNoVoiceSelected},
		{"  ", false, VoiceRef{}, ErrNoVoiceSelected},
		{"2", true, VoiceRef{Kind: RefPresetIndex, Index: 2}, nil},
		{"中文女", true, VoiceRef{Kind: RefPresetName, Name: "中文女"}, nil},
		{"17", false, VoiceRef{Kind: RefStoredVoice, ID: 17}, nil},
		{"abc", false, VoiceRef{}, services.ErrValidation},
		{"-3", false, VoiceRef{}, services.ErrValidation},
	}
	for _, tt := range tests {
		got, err := ParseVoiceRef(tt.id, tt.preset)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Fatalf("ParseVoiceRef(%q, %v): expected %v, got %v", tt.id, tt.preset, tt.err, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseVoiceRef(%q, %v) = %+v, %v; want %+v", tt.id, tt.preset, got, err, tt.want)
		}
	}
}

func TestResolvePresets(t *testing.T) {
	r := &Resolver{Presets: fakePresets{"a", "b"}}
	ctx := context.Background()

	v, err := r.Resolve(ctx, VoiceRef{Kind: RefPresetIndex, Index: 2}, services.Principal{})
	if err != nil || v.Name != "b" || !v.Preset {
		t.Fatalf("unexpected %+v, %v", v, err)
	}
	for _, index := range []int{0, 3, 99} {
		if _, err := r.Resolve(ctx, VoiceRef{Kind: RefPresetIndex, Index: index}, services.Principal{}); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("preset index %d: expected validation error, got %v", index, err)
		}
	}
	if _, err := r.Resolve(ctx, VoiceRef{Kind: RefPresetName, Name: "zz"}, services.Principal{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown preset, got %v", err)
	}
	empty := &Resolver{Presets: fakePresets{}}
	if _, err := empty.Resolve(ctx, VoiceRef{Kind: RefPresetIndex, Index: 1}, services.Principal{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found with no presets, got %v", err)
	}
}

func TestResolveStoredVoice(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mine.wav"), []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &Resolver{
		Voices: fakeLookup{
			1: {ID: 1, UserID: 5, Name: "mine", Filename: "mine.wav"},
			2: {ID: 2, UserID: 6, Name: "theirs", Filename: "theirs.wav", Transcript: "hi"},
			3: {ID: 3, Name: "preset", Filename: catalog.PresetFilename, IsPreset: true},
			4: {ID: 4, UserID: 5, Name: "gone", Filename: "gone.wav"},
		},
		VoiceDir:          dir,
		DefaultPromptText: "default prompt",
	}
	ctx := context.Background()
	owner := services.Principal{UserID: 5}

	v, err := r.Resolve(ctx, VoiceRef{Kind: RefStoredVoice, ID: 1}, owner)
	if err != nil {
		t.Fatalf("Resolve own voice: %v", err)
	}
	if v.Reference != filepath.Join(dir, "mine.wav") || v.PromptText != "default prompt" || v.StoredID == nil || *v.StoredID != 1 {
		t.Fatalf("unexpected voice %+v", v)
	}
	if _, err := r.Resolve(ctx, VoiceRef{Kind: RefStoredVoice, ID: 2}, owner); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := r.Resolve(ctx, VoiceRef{Kind: RefStoredVoice, ID: 2}, services.Principal{UserID: 1, Admin: true}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected admin to pass auth but miss the reference file, got %v", err)
	}
	if v, err := r.Resolve(ctx, VoiceRef{Kind: RefStoredVoice, ID: 3}, owner); err != nil || !v.Preset || v.Name != "preset" {
		t.Fatalf("expected stored preset, got %+v, %v", v, err)
	}
	if _, err := r.Resolve(ctx, VoiceRef{Kind: RefStoredVoice, ID: 4}, owner); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected missing reference error, got %v", err)
	}
	if _, err := r.Resolve(ctx, VoiceRef{Kind: RefStoredVoice, ID: 99}, owner); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected missing voice error, got %v", err)
	}
}
