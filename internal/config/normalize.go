package config

import (
	"fmt"
	"os"
	"strings"

	"revoice/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAuth()
	if err := c.normalizeRecognition(); err != nil {
		return err
	}
	c.normalizeSynthesis()
	c.normalizeTimeline()
	c.normalizeSubtitles()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.VoiceDir) == "" {
		c.Paths.VoiceDir = defaultVoiceDir
	}
	if c.Paths.VoiceDir, err = expandPath(c.Paths.VoiceDir); err != nil {
		return fmt.Errorf("paths.voice_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeAuth() {
	for i := range c.Auth.Users {
		c.Auth.Users[i].Token = strings.TrimSpace(c.Auth.Users[i].Token)
	}
}

func (c *Config) normalizeRecognition() error {
	c.Recognition.Provider = strings.ToLower(strings.TrimSpace(c.Recognition.Provider))
	if c.Recognition.Provider == "" {
		c.Recognition.Provider = defaultRecognitionProvider
	}
	c.Recognition.URL = strings.TrimRight(strings.TrimSpace(c.Recognition.URL), "/")
	if c.Recognition.Provider == "openai" && c.Recognition.URL == defaultRecognitionURL {
		c.Recognition.URL = ""
	}
	c.Recognition.APIKey = strings.TrimSpace(c.Recognition.APIKey)
	if c.Recognition.APIKey == "" && c.Recognition.Provider == "openai" {
		c.Recognition.APIKey = openAIKeyFromEnv()
	}
	c.Recognition.Model = strings.TrimSpace(c.Recognition.Model)
	if c.Recognition.Provider == "openai" && (c.Recognition.Model == "" || c.Recognition.Model == defaultRecognitionModel) {
		c.Recognition.Model = defaultOpenAIRecognitionModel
	}
	if c.Recognition.Model == "" {
		c.Recognition.Model = defaultRecognitionModel
	}
	lang, err := language.Normalize(c.Recognition.Language)
	if err != nil {
		return fmt.Errorf("recognition.language: %w", err)
	}
	c.Recognition.Language = lang
	if c.Recognition.TimeoutSeconds <= 0 {
		c.Recognition.TimeoutSeconds = defaultRecognitionTimeout
	}
	return nil
}

func (c *Config) normalizeSynthesis() {
	c.Synthesis.Provider = strings.ToLower(strings.TrimSpace(c.Synthesis.Provider))
	if c.Synthesis.Provider == "" {
		c.Synthesis.Provider = defaultSynthesisProvider
	}
	c.Synthesis.URL = strings.TrimRight(strings.TrimSpace(c.Synthesis.URL), "/")
	if c.Synthesis.Provider == "openai" && c.Synthesis.URL == defaultSynthesisURL {
		c.Synthesis.URL = ""
	}
	c.Synthesis.APIKey = strings.TrimSpace(c.Synthesis.APIKey)
	if c.Synthesis.APIKey == "" && c.Synthesis.Provider == "openai" {
		c.Synthesis.APIKey = openAIKeyFromEnv()
	}
	c.Synthesis.Model = strings.TrimSpace(c.Synthesis.Model)
	if c.Synthesis.Provider == "openai" && (c.Synthesis.Model == "" || c.Synthesis.Model == defaultSynthesisModel) {
		c.Synthesis.Model = defaultOpenAISynthesisModel
	}
	voices := make([]string, 0, len(c.Synthesis.PresetVoices))
	seen := make(map[string]struct{}, len(c.Synthesis.PresetVoices))
	for _, voice := range c.Synthesis.PresetVoices {
		trimmed := strings.TrimSpace(voice)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		voices = append(voices, trimmed)
	}
	if len(voices) == 0 && c.Synthesis.Provider == "openai" {
		voices = append(voices, defaultOpenAIVoices...)
	}
	c.Synthesis.PresetVoices = voices
	c.Synthesis.DefaultPromptText = strings.TrimSpace(c.Synthesis.DefaultPromptText)
	if c.Synthesis.DefaultPromptText == "" {
		c.Synthesis.DefaultPromptText = defaultPromptText
	}
	if c.Synthesis.TimeoutSeconds <= 0 {
		c.Synthesis.TimeoutSeconds = defaultSynthesisTimeout
	}
}

func (c *Config) normalizeTimeline() {
	if c.Timeline.StretchToleranceSeconds < 0 {
		c.Timeline.StretchToleranceSeconds = 0
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.FontName = strings.TrimSpace(c.Subtitles.FontName)
	if c.Subtitles.FontName == "" {
		c.Subtitles.FontName = defaultFontName
	}
	if c.Subtitles.FontSize <= 0 {
		c.Subtitles.FontSize = defaultFontSize
	}
	c.Subtitles.FontColor = strings.ToLower(strings.TrimSpace(c.Subtitles.FontColor))
	if c.Subtitles.FontColor == "" {
		c.Subtitles.FontColor = defaultFontColor
	}
	c.Subtitles.OutlineColor = strings.ToLower(strings.TrimSpace(c.Subtitles.OutlineColor))
	if c.Subtitles.OutlineColor == "" {
		c.Subtitles.OutlineColor = defaultOutlineColor
	}
	c.Subtitles.Position = strings.ToLower(strings.TrimSpace(c.Subtitles.Position))
	if c.Subtitles.Position == "" {
		c.Subtitles.Position = defaultPosition
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.TaskTTLMinutes < 0 {
		c.Workflow.TaskTTLMinutes = 0
	}
	if c.Workflow.ReapIntervalSeconds <= 0 {
		c.Workflow.ReapIntervalSeconds = defaultReapIntervalSeconds
	}
	if c.Workflow.MaxUploadMiB <= 0 {
		c.Workflow.MaxUploadMiB = defaultMaxUploadMiB
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func openAIKeyFromEnv() string {
	if value, ok := os.LookupEnv("REVOICE_OPENAI_API_KEY"); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
