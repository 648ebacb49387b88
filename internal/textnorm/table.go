package textnorm

import "strings"

const (
	minTableLines       = 3
	spacedLineRatio     = 0.4
	minConsistentRun    = 6
	minTokensPerRow     = 3
	maxTokenCountChange = 2
)

// LooksLikeTable reports whether text reads like a table. Either of two
// heuristics is enough: column gaps of two or more whitespace characters on at
// least 40% of lines, or a run of six consecutive rows with similar token counts.
func LooksLikeTable(text string) bool {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < minTableLines {
		return false
	}

	spaced := 0
	for _, l := range lines {
		if whitespaceGaps(l) >= 2 {
			spaced++
		}
	}
	if float64(spaced)/float64(len(lines)) >= spacedLineRatio {
		return true
	}

	return longestConsistentRun(lines) >= minConsistentRun
}

// whitespaceGaps counts distinct runs of two or more spaces or tabs.
func whitespaceGaps(line string) int {
	gaps, run := 0, 0
	for _, r := range line {
		if r == ' ' || r == '\t' {
			run++
			if run == 2 {
				gaps++
			}
			continue
		}
		run = 0
	}
	return gaps
}

func longestConsistentRun(lines []string) int {
	best, current := 1, 1
	prev := len(strings.Fields(lines[0]))
	for _, l := range lines[1:] {
		n := len(strings.Fields(l))
		diff := n - prev
		if diff < 0 {
			diff = -diff
		}
		if prev >= minTokensPerRow && n >= minTokensPerRow && diff <= maxTokenCountChange {
			current++
			if current > best {
				best = current
			}
		} else {
			current = 1
		}
		prev = n
	}
	return best
}
