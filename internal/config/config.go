package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	VoiceDir string `toml:"voice_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
}

// User maps a bearer token to a principal for the HTTP API.
type User struct {
	Token  string `toml:"token"`
	UserID int64  `toml:"user_id"`
	Admin  bool   `toml:"admin"`
}

// Auth contains API principals. An empty user list disables authentication
// and every request runs as an administrator with user id 0.
type Auth struct {
	Users []User `toml:"users"`
}

// Recognition contains settings for the speech-recognition provider.
type Recognition struct {
	// Provider selects the backend: "http" (self-hosted ASR service) or "openai".
	Provider       string `toml:"provider"`
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Synthesis contains settings for the text-to-speech provider.
type Synthesis struct {
	// Provider selects the backend: "cosyvoice" (HTTP service) or "openai".
	Provider          string   `toml:"provider"`
	URL               string   `toml:"url"`
	APIKey            string   `toml:"api_key"`
	Model             string   `toml:"model"`
	PresetVoices      []string `toml:"preset_voices"`
	DefaultPromptText string   `toml:"default_prompt_text"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
}

// Timeline contains alignment and merge tuning.
type Timeline struct {
	StretchToleranceSeconds float64 `toml:"stretch_tolerance_seconds"`
	CrossfadeSeconds        float64 `toml:"crossfade_seconds"`
	StretchEnabled          bool    `toml:"stretch_enabled"`
}

// Subtitles contains burn-in styling.
type Subtitles struct {
	FontName     string `toml:"font_name"`
	FontSize     int    `toml:"font_size"`
	FontColor    string `toml:"font_color"`
	OutlineColor string `toml:"outline_color"`
	Position     string `toml:"position"`
}

// Workflow contains task lifecycle settings.
type Workflow struct {
	// TaskTTLMinutes enables the reaper when positive. Zero keeps tasks until
	// an explicit cleanup.
	TaskTTLMinutes      int `toml:"task_ttl_minutes"`
	ReapIntervalSeconds int `toml:"reap_interval_seconds"`
	MaxUploadMiB        int `toml:"max_upload_mib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for revoice.
//
// Configuration sections by subsystem:
//   - Paths: task working directories, voice uploads, logs, API bind address
//   - Auth: bearer tokens accepted by the API
//   - Recognition: speech-recognition provider
//   - Synthesis: text-to-speech provider and preset voices
//   - Timeline: stretch tolerance and crossfade window
//   - Subtitles: burn-in styling
//   - Workflow: task expiry and upload limits
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Auth        Auth        `toml:"auth"`
	Recognition Recognition `toml:"recognition"`
	Synthesis   Synthesis   `toml:"synthesis"`
	Timeline    Timeline    `toml:"timeline"`
	Subtitles   Subtitles   `toml:"subtitles"`
	Workflow    Workflow    `toml:"workflow"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("revoice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for server operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.VoiceDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for extraction, muxing, and stretching.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used to inspect uploads.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// CatalogPath returns the SQLite database location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.LogDir, "revoice.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "revoice.lock")
}

// RecognitionTimeout returns the per-request deadline for the recognition provider.
func (c *Config) RecognitionTimeout() time.Duration {
	return time.Duration(c.Recognition.TimeoutSeconds) * time.Second
}

// SynthesisTimeout returns the per-request deadline for the synthesis provider.
func (c *Config) SynthesisTimeout() time.Duration {
	return time.Duration(c.Synthesis.TimeoutSeconds) * time.Second
}

// TaskTTL returns the reaper expiry, or zero when expiry is disabled.
func (c *Config) TaskTTL() time.Duration {
	if c.Workflow.TaskTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Workflow.TaskTTLMinutes) * time.Minute
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Workflow.MaxUploadMiB) << 20
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
