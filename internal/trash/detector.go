// Package trash flags low-value pages such as tables of contents, legal
// boilerplate and blank pages so they can be reported or stripped.
package trash

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/textnorm"
)

const (
	previewLength       = 200
	shortPageLength     = 500
	nearlyBlankLength   = 50
	tocWithHeadingLines = 3
	tocWithoutHeading   = 5
)

var tocHeadings = []string{"สารบัญ", "table of contents", "contents"}

var boilerplateKeywords = []string{
	"copyright",
	"ลิขสิทธิ์",
	"all rights reserved",
	"สงวนลิขสิทธิ์",
	"disclaimer",
	"ข้อจำกัดความรับผิดชอบ",
	"terms of use",
	"terms and conditions",
	"ข้อกำหนดและเงื่อนไข",
	"confidential",
	"ความลับ",
}

var blankMarkers = []string{
	"this page intentionally left blank",
	"หน้านี้ว่างโดยตั้งใจ",
	"intentionally blank",
}

// dotLeader matches a line with a leader run that ends in a page number.
var dotLeader = regexp.MustCompile(`(\.\.\.|…).*[0-9]$`)

// PageText is the final text of a 1-indexed page.
type PageText struct {
	Page int
	Text string
}

// Detect runs the per-page detectors in page order. A page yields at most one
// detection per kind.
func Detect(pages []PageText) []domain.TrashDetection {
	var out []domain.TrashDetection
	for _, p := range pages {
		if d, ok := detectTOC(p); ok {
			out = append(out, d)
		}
		if d, ok := detectBoilerplate(p); ok {
			out = append(out, d)
		}
		if d, ok := detectBlank(p); ok {
			out = append(out, d)
		}
	}
	return out
}

// HeaderFooter reports stripped page furniture as a document-level detection.
// It returns false when nothing was stripped.
func HeaderFooter(pageCount int, f textnorm.Furniture) (domain.TrashDetection, bool) {
	if f.Empty() {
		return domain.TrashDetection{}, false
	}

	var parts []string
	for _, h := range f.Headers {
		parts = append(parts, fmt.Sprintf("Header: %q", h))
	}
	for _, l := range f.Footers {
		parts = append(parts, fmt.Sprintf("Footer: %q", l))
	}

	return domain.TrashDetection{
		Page:       0,
		Kind:       domain.TrashHeaderFooter,
		Confidence: 1.0,
		Reason:     fmt.Sprintf("Repeated text stripped from %d pages: %s", pageCount, strings.Join(parts, ", ")),
		Preview:    textnorm.Truncate(strings.Join(parts, "; "), previewLength),
	}, true
}

func detectTOC(p PageText) (domain.TrashDetection, bool) {
	lower := strings.ToLower(p.Text)
	heading := containsAny(lower, tocHeadings) != ""

	leaders := 0
	for _, line := range strings.Split(p.Text, "\n") {
		if dotLeader.MatchString(strings.TrimSpace(line)) {
			leaders++
		}
	}

	var confidence float64
	var reason string
	switch {
	case heading && leaders >= tocWithHeadingLines:
		confidence = 0.95
		reason = fmt.Sprintf("TOC heading keyword found with %d dot-leader lines", leaders)
	case heading:
		confidence = 0.90
		reason = "TOC heading keyword found"
	case leaders >= tocWithoutHeading:
		confidence = 0.70
		reason = fmt.Sprintf("%d dot-leader lines detected (possible TOC)", leaders)
	default:
		return domain.TrashDetection{}, false
	}

	return newDetection(p, domain.TrashTableOfContents, confidence, reason), true
}

func detectBoilerplate(p PageText) (domain.TrashDetection, bool) {
	lower := strings.ToLower(p.Text)

	var found []string
	for _, kw := range boilerplateKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}

	length := utf8.RuneCountInString(strings.TrimSpace(p.Text))
	switch {
	case len(found) >= 2:
		return newDetection(p, domain.TrashBoilerplate, 0.85,
			"Multiple boilerplate keywords: "+strings.Join(found, ", ")), true
	case len(found) == 1 && length < shortPageLength:
		return newDetection(p, domain.TrashBoilerplate, 0.65,
			fmt.Sprintf("Boilerplate keyword %q on short page (%d chars)", found[0], length)), true
	}
	return domain.TrashDetection{}, false
}

func detectBlank(p PageText) (domain.TrashDetection, bool) {
	trimmed := strings.TrimSpace(p.Text)
	if containsAny(strings.ToLower(trimmed), blankMarkers) != "" {
		return newDetection(p, domain.TrashBlankPage, 0.95, "Explicit blank page marker found"), true
	}
	if n := utf8.RuneCountInString(trimmed); n < nearlyBlankLength {
		return newDetection(p, domain.TrashBlankPage, 0.80, fmt.Sprintf("Nearly blank page (%d chars)", n)), true
	}
	return domain.TrashDetection{}, false
}

func newDetection(p PageText, kind domain.TrashKind, confidence float64, reason string) domain.TrashDetection {
	return domain.TrashDetection{
		Page:       p.Page,
		Kind:       kind,
		Confidence: confidence,
		Reason:     reason,
		Preview:    textnorm.Truncate(strings.TrimSpace(p.Text), previewLength),
	}
}

func containsAny(s string, needles []string) string {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return n
		}
	}
	return ""
}
