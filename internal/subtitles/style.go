package subtitles

import (
	"fmt"
	"strings"

	"revoice/internal/config"
)

// Style controls how captions look when burned into video.
type Style struct {
	FontName     string
	FontSize     int
	FontColor    string
	OutlineColor string
	Position     string
}

// StyleFromConfig copies burn-in styling from configuration.
func StyleFromConfig(cfg config.Subtitles) Style {
	return Style{
		FontName:     cfg.FontName,
		FontSize:     cfg.FontSize,
		FontColor:    cfg.FontColor,
		OutlineColor: cfg.OutlineColor,
		Position:     cfg.Position,
	}
}

// ASS colours are &HBBGGRR.
var assColors = map[string]string{
	"white":   "FFFFFF",
	"black":   "000000",
	"red":     "0000FF",
	"green":   "00FF00",
	"blue":    "FF0000",
	"yellow":  "00FFFF",
	"cyan":    "FFFF00",
	"magenta": "FF00FF",
}

func assColor(name, fallback string) string {
	if code, ok := assColors[strings.ToLower(strings.TrimSpace(name))]; ok {
		return "&H" + code
	}
	return "&H" + fallback
}

// ForceStyle renders the libass force_style value for the ffmpeg subtitles filter.
func (s Style) ForceStyle() string {
	font := strings.TrimSpace(s.FontName)
	if font == "" {
		font = "Arial"
	}
	size := s.FontSize
	if size <= 0 {
		size = 24
	}
	alignment, margin := 2, 30
	if strings.EqualFold(strings.TrimSpace(s.Position), "top") {
		alignment, margin = 8, 10
	}
	return fmt.Sprintf(
		"FontName=%s,FontSize=%d,PrimaryColour=%s,OutlineColour=%s,BorderStyle=1,Outline=1,Alignment=%d,MarginV=%d",
		font, size, assColor(s.FontColor, "FFFFFF"), assColor(s.OutlineColor, "000000"), alignment, margin,
	)
}
