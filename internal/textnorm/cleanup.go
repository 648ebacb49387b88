// Package textnorm reconstructs paragraphs from native PDF text and detects
// tabular and repeated page furniture.
package textnorm

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Thai sentence-final words that close a logical line.
var thaiSentenceEndings = []string{"ครับ", "ค่ะ", "นะคะ", "นะครับ"}

var listMarkers = []string{"- ", "* ", "• ", "# ", "> "}

// Cleanup rebuilds paragraphs from raw extracted text. Lines are joined with a
// single space unless they start a list or heading, follow a sentence end, or
// look tabular. Paragraphs stay separated by one blank line.
// Cleanup(Cleanup(x)) == Cleanup(x).
func Cleanup(text string) string {
	text = norm.NFC.String(text)
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var paragraphs []string
	var current []string // physical lines of the running paragraph

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}

		tabular := IsTableLine(line)
		if !tabular {
			line = strings.Join(strings.Fields(line), " ")
		}

		if len(current) == 0 {
			current = append(current, line)
			continue
		}

		last := current[len(current)-1]
		if tabular || breaksBefore(line) || endsSentence(last) {
			current = append(current, line)
			continue
		}
		current[len(current)-1] = last + " " + line
	}
	flush()

	return strings.Join(paragraphs, "\n\n")
}

// IsTableLine reports whether a line has three or more segments separated by
// runs of at least two spaces.
func IsTableLine(line string) bool {
	segments := 0
	for _, seg := range strings.Split(line, "  ") {
		if strings.TrimSpace(seg) != "" {
			segments++
		}
	}
	return segments >= 3
}

func breaksBefore(line string) bool {
	for _, m := range listMarkers {
		if strings.HasPrefix(line, m) {
			return true
		}
	}
	return line[0] >= '0' && line[0] <= '9' && strings.Contains(line, ". ")
}

func endsSentence(line string) bool {
	r, _ := utf8.DecodeLastRuneInString(line)
	switch r {
	case '.', '!', '?', ':', 'ๆ', '।':
		return true
	}
	for _, w := range thaiSentenceEndings {
		if strings.HasSuffix(line, w) {
			return true
		}
	}
	return false
}

// Truncate cuts s to at most maxBytes without splitting a UTF-8 sequence.
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	end := maxBytes
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}
