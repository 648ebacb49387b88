package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spherical/manual-rag/internal/domain"
)

const pageSeparator = "\n\n---\n## Page "

// RemovePages drops the sections of the listed 1-indexed pages from markdown.
// Unknown pages are ignored.
func RemovePages(markdown string, pages []int) string {
	if len(pages) == 0 {
		return markdown
	}
	drop := make(map[int]bool, len(pages))
	for _, p := range pages {
		drop[p] = true
	}

	var sb strings.Builder
	rest := markdown
	first := strings.Index(rest, pageSeparator)
	if first < 0 {
		return markdown
	}
	sb.WriteString(rest[:first])
	rest = rest[first:]

	for rest != "" {
		next := strings.Index(rest[len(pageSeparator):], pageSeparator)
		section := rest
		if next >= 0 {
			section = rest[:next+len(pageSeparator)]
		}
		rest = rest[len(section):]

		if !drop[sectionPage(section)] {
			sb.WriteString(section)
		}
	}
	return sb.String()
}

// sectionPage reads the page number from a section's heading, or -1.
func sectionPage(section string) int {
	heading := strings.TrimPrefix(section, pageSeparator)
	if i := strings.IndexByte(heading, '\n'); i >= 0 {
		heading = heading[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(heading))
	if err != nil {
		return -1
	}
	return n
}

// CleanMarkdown removes pages from the enriched Markdown at path and writes the
// result next to it as <stem>_cleaned.md. It returns the new path and content.
func CleanMarkdown(path string, pages []int) (string, string, error) {
	if len(pages) == 0 {
		return "", "", domain.ValidationError("no pages to remove", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", domain.IOError(fmt.Sprintf("read %s", path), err)
	}

	cleaned := RemovePages(string(data), pages)

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.TrimSuffix(stem, "_enriched")
	out := filepath.Join(filepath.Dir(path), CleanedFile(stem))
	if err := os.WriteFile(out, []byte(cleaned), 0o644); err != nil {
		return "", "", domain.IOError(fmt.Sprintf("write %s", out), err)
	}
	return out, cleaned, nil
}
