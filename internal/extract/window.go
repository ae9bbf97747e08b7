package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultRadius is the number of bytes taken on each side of a date match.
const DefaultRadius = 200

// CandidateLine is one trimmed line of a text window.
type CandidateLine struct {
	Text   string
	Offset int // byte offset of the line start within the window
}

// ExtractWindow returns the text surrounding a match at [offset, offset+length),
// extended by radius bytes on both sides and clamped to the bounds of text.
// Out-of-range arguments are clamped rather than rejected. The window edges
// are moved inward so no UTF-8 sequence is split.
func ExtractWindow(text string, offset, length, radius int) string {
	if text == "" {
		return ""
	}
	if radius < 0 {
		radius = 0
	}
	if length < 0 {
		length = 0
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}

	start := offset - radius
	if start < 0 {
		start = 0
	}
	end := offset + length + radius
	if end > len(text) || end < 0 {
		end = len(text)
	}

	for start < end && !utf8.RuneStart(text[start]) {
		start++
	}
	for end < len(text) && end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	return text[start:end]
}

// SplitLines breaks a window into non-empty trimmed lines. Each line is
// NFKC-folded so non-breaking spaces and full-width forms compare like ASCII.
func SplitLines(window string) []CandidateLine {
	lines := make([]CandidateLine, 0, strings.Count(window, "\n")+1)
	pos := 0
	for _, raw := range strings.Split(window, "\n") {
		start := pos
		pos += len(raw) + 1

		text := strings.TrimSpace(norm.NFKC.String(raw))
		if text == "" {
			continue
		}
		lines = append(lines, CandidateLine{Text: text, Offset: start})
	}
	return lines
}
