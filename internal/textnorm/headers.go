package textnorm

import (
	"math"
	"strings"
)

const (
	edgeLines          = 3
	maxFurnitureLength = 200
	furnitureRatio     = 0.6
	minFurniturePages  = 3
)

// Furniture lists the repeated lines found at the top and bottom of pages, in
// first-seen order.
type Furniture struct {
	Headers []string
	Footers []string
}

// Empty reports whether nothing repeated often enough to be stripped.
func (f Furniture) Empty() bool {
	return len(f.Headers) == 0 && len(f.Footers) == 0
}

// DetectFurniture finds lines that occur among the first or last three lines of
// at least 60% of pages. Documents with fewer than three pages have none.
func DetectFurniture(pages []string) Furniture {
	if len(pages) < minFurniturePages {
		return Furniture{}
	}
	threshold := int(math.Ceil(float64(len(pages)) * furnitureRatio))

	heads := newCounter()
	feet := newCounter()
	for _, text := range pages {
		lines := strings.Split(text, "\n")

		first := lines
		if len(first) > edgeLines {
			first = first[:edgeLines]
		}
		last := lines
		if len(last) > edgeLines {
			last = last[len(last)-edgeLines:]
		}

		heads.addPage(first)
		feet.addPage(last)
	}

	return Furniture{
		Headers: heads.atLeast(threshold),
		Footers: feet.atLeast(threshold),
	}
}

// StripFurniture removes every line equal to a detected header or footer from
// every page. The input is not modified.
func StripFurniture(pages []string, f Furniture) []string {
	out := make([]string, len(pages))
	if f.Empty() {
		copy(out, pages)
		return out
	}

	drop := make(map[string]struct{}, len(f.Headers)+len(f.Footers))
	for _, l := range f.Headers {
		drop[l] = struct{}{}
	}
	for _, l := range f.Footers {
		drop[l] = struct{}{}
	}

	for i, text := range pages {
		var kept []string
		for _, line := range strings.Split(text, "\n") {
			if _, ok := drop[strings.TrimSpace(line)]; ok {
				continue
			}
			kept = append(kept, line)
		}
		out[i] = strings.TrimSpace(strings.Join(kept, "\n"))
	}
	return out
}

// counter tallies how many pages each candidate line appears on.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) addPage(lines []string) {
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || len(l) >= maxFurnitureLength || seen[l] {
			continue
		}
		seen[l] = true
		if _, ok := c.counts[l]; !ok {
			c.order = append(c.order, l)
		}
		c.counts[l]++
	}
}

func (c *counter) atLeast(n int) []string {
	var out []string
	for _, l := range c.order {
		if c.counts[l] >= n {
			out = append(out, l)
		}
	}
	return out
}
