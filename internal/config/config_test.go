package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"revoice/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "revoice", "tasks")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7590" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Timeline.CrossfadeSeconds != 0.05 {
		t.Fatalf("unexpected crossfade default: %v", cfg.Timeline.CrossfadeSeconds)
	}
	if cfg.Timeline.StretchToleranceSeconds != 0.1 {
		t.Fatalf("unexpected stretch tolerance default: %v", cfg.Timeline.StretchToleranceSeconds)
	}
	if !cfg.Timeline.StretchEnabled {
		t.Fatal("expected stretching enabled by default")
	}
	if cfg.Synthesis.DefaultPromptText == "" {
		t.Fatal("expected default prompt text")
	}
	if cfg.TaskTTL() != 0 {
		t.Fatalf("expected reaper disabled by default, got %s", cfg.TaskTTL())
	}
	if cfg.CatalogPath() != filepath.Join(cfg.Paths.LogDir, "revoice.db") {
		t.Fatalf("unexpected catalog path: %q", cfg.CatalogPath())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENAI_API_KEY", "env-key")

	configPath := filepath.Join(t.TempDir(), "revoice.toml")
	content := `
[paths]
work_dir = "~/jobs"
api_bind = "0.0.0.0:9999"

[[auth.users]]
token = " alpha "
user_id = 7

[[auth.users]]
token = "root"
user_id = 1
admin = true

[recognition]
provider = "OpenAI"
language = "en-US"

[synthesis]
provider = "openai"

[timeline]
crossfade_seconds = 0.02
stretch_enabled = false

[workflow]
task_ttl_minutes = 90
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.WorkDir != filepath.Join(tempHome, "jobs") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9999" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if len(cfg.Auth.Users) != 2 || cfg.Auth.Users[0].Token != "alpha" || !cfg.Auth.Users[1].Admin {
		t.Fatalf("unexpected auth users: %+v", cfg.Auth.Users)
	}
	if cfg.Recognition.Provider != "openai" {
		t.Fatalf("expected provider lowercased, got %q", cfg.Recognition.Provider)
	}
	if cfg.Recognition.Language != "en" {
		t.Fatalf("expected canonical base language, got %q", cfg.Recognition.Language)
	}
	if cfg.Recognition.APIKey != "env-key" || cfg.Synthesis.APIKey != "env-key" {
		t.Fatalf("expected api keys from env, got %q/%q", cfg.Recognition.APIKey, cfg.Synthesis.APIKey)
	}
	if cfg.Recognition.Model != "whisper-1" {
		t.Fatalf("unexpected recognition model: %q", cfg.Recognition.Model)
	}
	if cfg.Synthesis.Model != "tts-1" {
		t.Fatalf("unexpected synthesis model: %q", cfg.Synthesis.Model)
	}
	if len(cfg.Synthesis.PresetVoices) == 0 || cfg.Synthesis.PresetVoices[0] != "alloy" {
		t.Fatalf("expected openai preset voices, got %v", cfg.Synthesis.PresetVoices)
	}
	if cfg.Timeline.CrossfadeSeconds != 0.02 || cfg.Timeline.StretchEnabled {
		t.Fatalf("unexpected timeline: %+v", cfg.Timeline)
	}
	if cfg.TaskTTL().Minutes() != 90 {
		t.Fatalf("unexpected ttl: %s", cfg.TaskTTL())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("REVOICE_OPENAI_API_KEY", "")

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown recognition provider",
			content: "[recognition]\nprovider = \"vosk\"\n",
			wantErr: "recognition.provider",
		},
		{
			name:    "openai without key",
			content: "[synthesis]\nprovider = \"openai\"\n",
			wantErr: "synthesis.api_key",
		},
		{
			name:    "negative crossfade",
			content: "[timeline]\ncrossfade_seconds = -0.5\n",
			wantErr: "crossfade_seconds",
		},
		{
			name:    "bad position",
			content: "[subtitles]\nposition = \"middle\"\n",
			wantErr: "subtitles.position",
		},
		{
			name:    "duplicate token",
			content: "[[auth.users]]\ntoken = \"a\"\n[[auth.users]]\ntoken = \"a\"\n",
			wantErr: "duplicates",
		},
		{
			name:    "bad language",
			content: "[recognition]\nlanguage = \"not a language\"\n",
			wantErr: "recognition.language",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed map[string]any
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	for _, section := range []string{"paths", "recognition", "synthesis", "timeline", "subtitles", "workflow", "logging"} {
		if _, ok := parsed[section]; !ok {
			t.Fatalf("sample config missing [%s]", section)
		}
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.VoiceDir = filepath.Join(base, "voices")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.VoiceDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
