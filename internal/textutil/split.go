package textutil

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkRunes is the longest chunk submitted to a synthesis engine in
// a single request.
const DefaultChunkRunes = 70

func isBreak(r rune) bool {
	switch r {
	case '。', '！', '？', '，', '；', '.', '!', '?', ',', ';':
		return true
	}
	return false
}

// SplitSentences splits text into trimmed sentences, keeping each
// terminating punctuation mark attached to the sentence it ends. Newlines
// always break.
func SplitSentences(text string) []string {
	var sentences []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current strings.Builder
		for _, r := range paragraph {
			current.WriteRune(r)
			if isBreak(r) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Chunk groups sentences into chunks of at most maxRunes runes, joined by a
// single space. A sentence longer than maxRunes becomes its own chunk.
func Chunk(sentences []string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = DefaultChunkRunes
	}
	var chunks []string
	var current string
	for _, sentence := range sentences {
		n := utf8.RuneCountInString(sentence)
		if n > maxRunes {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			chunks = append(chunks, sentence)
			continue
		}
		if current != "" && utf8.RuneCountInString(current)+1+n > maxRunes {
			chunks = append(chunks, current)
			current = ""
		}
		if current != "" {
			current += " "
		}
		current += sentence
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// ChunkText splits text into synthesis-sized chunks. Text within the budget
// is returned unchanged as a single chunk.
func ChunkText(text string, maxRunes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxRunes <= 0 {
		maxRunes = DefaultChunkRunes
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}
	return Chunk(SplitSentences(text), maxRunes)
}

// Snippet returns at most n runes of s with an ellipsis when truncated.
func Snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
