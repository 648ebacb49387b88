package assemble

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is one ATX or setext heading of a Markdown document.
type Heading struct {
	Level int
	Text  string
}

// Outline parses markdown and lists its headings in document order.
func Outline(markdown string) []Heading {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			headings = append(headings, Heading{Level: h.Level, Text: inlineText(h, source)})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return headings
}

func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			continue
		}
		sb.WriteString(inlineText(c, source))
	}
	return sb.String()
}

// PageNumbers returns the numbers of the "Page N" sections in order.
func PageNumbers(markdown string) []int {
	var pages []int
	for _, h := range Outline(markdown) {
		if h.Level != 2 {
			continue
		}
		num, ok := strings.CutPrefix(h.Text, "Page ")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(num); err == nil {
			pages = append(pages, n)
		}
	}
	return pages
}
