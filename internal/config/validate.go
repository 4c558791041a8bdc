package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownColors = map[string]struct{}{
	"white": {}, "black": {}, "red": {}, "green": {},
	"blue": {}, "yellow": {}, "cyan": {}, "magenta": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateSynthesis(); err != nil {
		return err
	}
	if err := c.validateTimeline(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAuth() error {
	seen := make(map[string]struct{}, len(c.Auth.Users))
	for i, user := range c.Auth.Users {
		if user.Token == "" {
			return fmt.Errorf("auth.users[%d].token must be set", i)
		}
		if _, ok := seen[user.Token]; ok {
			return fmt.Errorf("auth.users[%d].token duplicates another user", i)
		}
		seen[user.Token] = struct{}{}
	}
	return nil
}

func (c *Config) validateRecognition() error {
	switch c.Recognition.Provider {
	case "http":
		if c.Recognition.URL == "" {
			return errors.New("recognition.url must be set when recognition.provider is http")
		}
	case "openai":
		if c.Recognition.APIKey == "" {
			return errors.New("recognition.api_key must be set when recognition.provider is openai (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("recognition.provider: unsupported value %q", c.Recognition.Provider)
	}
	return nil
}

func (c *Config) validateSynthesis() error {
	switch c.Synthesis.Provider {
	case "cosyvoice":
		if c.Synthesis.URL == "" {
			return errors.New("synthesis.url must be set when synthesis.provider is cosyvoice")
		}
	case "openai":
		if c.Synthesis.APIKey == "" {
			return errors.New("synthesis.api_key must be set when synthesis.provider is openai (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("synthesis.provider: unsupported value %q", c.Synthesis.Provider)
	}
	return nil
}

func (c *Config) validateTimeline() error {
	if c.Timeline.CrossfadeSeconds < 0 {
		return errors.New("timeline.crossfade_seconds must not be negative")
	}
	if c.Timeline.CrossfadeSeconds > 1 {
		return errors.New("timeline.crossfade_seconds must not exceed 1 second")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if _, ok := knownColors[c.Subtitles.FontColor]; !ok {
		return fmt.Errorf("subtitles.font_color: unsupported value %q", c.Subtitles.FontColor)
	}
	if _, ok := knownColors[c.Subtitles.OutlineColor]; !ok {
		return fmt.Errorf("subtitles.outline_color: unsupported value %q", c.Subtitles.OutlineColor)
	}
	switch strings.ToLower(c.Subtitles.Position) {
	case "bottom", "top":
	default:
		return fmt.Errorf("subtitles.position must be bottom or top, got %q", c.Subtitles.Position)
	}
	return nil
}
