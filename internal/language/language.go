package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// words maps English language names accepted in config to their base code.
var words = map[string]string{
	"english":    "en",
	"chinese":    "zh",
	"mandarin":   "zh",
	"cantonese":  "yue",
	"japanese":   "ja",
	"korean":     "ko",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"russian":    "ru",
}

// Normalize canonicalizes a language code, BCP 47 tag, or English language
// name to its base subtag ("en-US" -> "en", "zho" -> "zh", "Chinese" -> "zh").
// Empty input returns an empty string.
func Normalize(input string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(input))
	if value == "" {
		return "", nil
	}
	if code, ok := words[value]; ok {
		return code, nil
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q: %w", input, err)
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", fmt.Errorf("unrecognized language %q", input)
	}
	return base.String(), nil
}

// DisplayName returns the English name for code, or code itself when it
// cannot be parsed.
func DisplayName(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
