// Package assemble turns ordered page outputs into the enriched Markdown
// document, the image catalog and the trash report, and writes them to disk.
package assemble

import (
	"fmt"
	"strings"

	"github.com/spherical/manual-rag/internal/domain"
)

// Header describes the document block at the top of the Markdown.
type Header struct {
	Stem     string
	Pages    int
	Provider string
	Model    string
	// TextOnly switches to the text-only header, which names the language
	// instead of the provider.
	TextOnly bool
	Language domain.Language
}

func (h Header) lines() []string {
	if h.TextOnly {
		return []string{
			fmt.Sprintf("# %s\n", h.Stem),
			fmt.Sprintf("> Mode: `text-only` | Language: `%s` | Pages: %d\n", h.Language, h.Pages),
		}
	}
	return []string{
		fmt.Sprintf("# %s\n", h.Stem),
		fmt.Sprintf("> Provider: `%s` | Model: `%s` | Pages: %d\n", h.Provider, h.Model, h.Pages),
		fmt.Sprintf("> Images: `images/%s/`\n", h.Stem),
	}
}

// Page is the finished output of one page.
type Page struct {
	Num     int
	Content string
	// Images holds the catalog entries of successful descriptions in the
	// order their markers appear in Content.
	Images []domain.ImageDescription
}

// Document is the assembled output.
type Document struct {
	Markdown string
	Catalog  []domain.ImageDescription
}

// Build joins the header and the pages, which must already be in page order.
// The catalog is never nil.
func Build(h Header, pages []Page) Document {
	parts := h.lines()
	catalog := make([]domain.ImageDescription, 0)
	for _, p := range pages {
		parts = append(parts, p.Content)
		catalog = append(catalog, p.Images...)
	}
	return Document{
		Markdown: strings.Join(parts, "\n"),
		Catalog:  catalog,
	}
}

// PageBuilder accumulates the lines of one page section.
type PageBuilder struct {
	num   int
	lang  domain.Language
	lines []string
}

// NewPage starts the section for 1-indexed page num.
func NewPage(num int, lang domain.Language) *PageBuilder {
	return &PageBuilder{
		num:   num,
		lang:  lang,
		lines: []string{pageHeading(num)},
	}
}

func pageHeading(num int) string {
	return fmt.Sprintf("\n\n---\n## Page %d\n", num)
}

// Text appends page text. Empty text adds nothing.
func (b *PageBuilder) Text(text string) *PageBuilder {
	if text != "" {
		b.lines = append(b.lines, text)
	}
	return b
}

// FullPage appends the whole-page render: optional hint text, the marker and
// the description.
func (b *PageBuilder) FullPage(hint, ref, description string) *PageBuilder {
	if hint != "" {
		b.lines = append(b.lines, hint, "")
	}
	b.lines = append(b.lines, Marker(ref)+"\n", description)
	return b
}

// Table appends the table transcription with its marker.
func (b *PageBuilder) Table(ref, description string) *PageBuilder {
	b.lines = append(b.lines, fmt.Sprintf("\n%s\n\n%s\n", Marker(ref), description))
	return b
}

// Image appends one described embedded image.
func (b *PageBuilder) Image(index int, ref, description string) *PageBuilder {
	b.lines = append(b.lines, fmt.Sprintf("\n%s\n**[%s]:** %s\n", Marker(ref), ImageLabel(b.lang, index), description))
	return b
}

// String renders the section.
func (b *PageBuilder) String() string {
	return strings.Join(b.lines, "\n")
}

// PageFault renders a page that could not be read at all.
func PageFault(num int, err error) string {
	return fmt.Sprintf("%s[Error: %v]\n", pageHeading(num), err)
}

// Marker is the inline reference a RAG loader resolves to an image file.
func Marker(ref string) string {
	return "[IMAGE:" + ref + "]"
}
