// Package pdf opens manuals for extraction: rendering and native text come
// from MuPDF through go-fitz, image placement and embedded rasters from the
// tabula object reader.
package pdf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"

	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/observability"
)

// Engine opens PDF documents.
type Engine struct {
	validator *Validator
	logger    *observability.Logger
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(logger *observability.Logger) *Engine {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Engine{
		validator: NewValidator(logger),
		logger:    logger.WithOperation("pdf"),
	}
}

// Open validates path and opens it. When the object reader cannot parse the
// file the document still renders and yields text, but reports zero coverage
// and no embedded images.
func (e *Engine) Open(path string) (domain.Document, error) {
	if err := e.validator.ValidatePDFPath(path); err != nil {
		return nil, err
	}

	fz, err := fitz.New(path)
	if err != nil {
		return nil, domain.DocumentError(fmt.Sprintf("failed to open PDF %s", path), err)
	}

	doc := &Document{
		path:      path,
		fz:        fz,
		validator: e.validator,
		logger:    e.logger.WithDocument(Stem(path)),
		layouts:   make(map[int]*pageLayout),
	}

	rd, err := reader.Open(path)
	if err != nil {
		doc.logger.Warn().Err(err).Msg("object reader unavailable, image placement disabled")
		return doc, nil
	}
	if n, err := rd.PageCount(); err != nil || n != fz.NumPage() {
		doc.logger.Warn().Err(err).Int("reader_pages", n).Int("pages", fz.NumPage()).
			Msg("object reader disagrees on page count, image placement disabled")
		rd.Close()
		return doc, nil
	}
	doc.rd = rd

	return doc, nil
}

// Document is an opened PDF. It is not safe for concurrent use.
type Document struct {
	path      string
	fz        *fitz.Document
	rd        *reader.Reader // nil when placement data is unavailable
	validator *Validator
	logger    *observability.Logger

	layouts map[int]*pageLayout
}

// pageLayout caches what the content stream says about a page.
type pageLayout struct {
	page     *pages.Page
	order    []string
	coverage float64
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.fz.NumPage()
}

// Coverage returns the fraction of the page painted with images.
func (d *Document) Coverage(page int) (float64, error) {
	layout, err := d.layout(page)
	if err != nil {
		return 0, err
	}
	if layout == nil {
		return 0, nil
	}
	return layout.coverage, nil
}

// Rasterize renders the page at dpi as PNG.
func (d *Document) Rasterize(page int, dpi int) (*domain.EncodedImage, error) {
	if err := d.checkPage(page); err != nil {
		return nil, err
	}
	if err := d.validator.ValidateDPI(dpi); err != nil {
		return nil, err
	}
	img, err := d.fz.ImageDPI(page, float64(dpi))
	if err != nil {
		return nil, domain.ImageError(fmt.Sprintf("failed to render page %d", page+1), err)
	}
	return EncodePNG(img)
}

// ExtractText returns the trimmed text layer of the page.
func (d *Document) ExtractText(page int) (string, error) {
	if err := d.checkPage(page); err != nil {
		return "", err
	}
	text, err := d.fz.Text(page)
	if err != nil {
		return "", domain.DocumentError(fmt.Sprintf("failed to extract text from page %d", page+1), err)
	}
	return strings.TrimSpace(text), nil
}

// ExtractImages returns embedded images at least minSize pixels on both sides,
// in paint order, indexed from 1. Images that cannot be decoded are skipped.
func (d *Document) ExtractImages(page int, minSize int) ([]domain.RawImage, error) {
	layout, err := d.layout(page)
	if err != nil || layout == nil {
		return nil, err
	}

	extracted, err := d.rd.ExtractPageImages(layout.page)
	if err != nil {
		return nil, domain.ImageError(fmt.Sprintf("failed to read images on page %d", page+1), err)
	}
	byName := make(map[string]reader.PageImage, len(extracted))
	for _, img := range extracted {
		byName[img.Name] = img
	}

	order := layout.order
	if len(order) == 0 && len(byName) > 0 {
		// no usable content stream; fall back to resource order
		for name := range byName {
			order = append(order, name)
		}
		sort.Strings(order)
	}

	var out []domain.RawImage
	for _, name := range order {
		img, ok := byName[name]
		if !ok || img.Width < minSize || img.Height < minSize {
			continue
		}
		encoded, err := embeddedToPNG(img)
		if err != nil {
			d.logger.Debug().Err(err).Int("page", page+1).Str("xobject", name).Msg("skipping image")
			continue
		}
		out = append(out, domain.RawImage{Index: len(out) + 1, Image: *encoded})
	}
	return out, nil
}

// Close releases both underlying handles.
func (d *Document) Close() error {
	var errs []string
	if d.rd != nil {
		if err := d.rd.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		d.rd = nil
	}
	if d.fz != nil {
		if err := d.fz.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		d.fz = nil
	}
	if len(errs) > 0 {
		return domain.IOError("close errors: "+strings.Join(errs, "; "), nil)
	}
	return nil
}

func (d *Document) checkPage(page int) error {
	if page < 0 || page >= d.fz.NumPage() {
		return domain.DocumentError(fmt.Sprintf("page %d out of range (document has %d pages)", page+1, d.fz.NumPage()), nil)
	}
	return nil
}

// layout returns nil without error when placement data is unavailable.
func (d *Document) layout(page int) (*pageLayout, error) {
	if err := d.checkPage(page); err != nil {
		return nil, err
	}
	if d.rd == nil {
		return nil, nil
	}
	if l, ok := d.layouts[page]; ok {
		return l, nil
	}

	p, err := d.rd.GetPage(page)
	if err != nil {
		return nil, domain.DocumentError(fmt.Sprintf("failed to load page %d", page+1), err)
	}

	l := &pageLayout{page: p}
	placements, err := d.placements(p)
	if err != nil {
		d.logger.Debug().Err(err).Int("page", page+1).Msg("content stream unreadable, coverage treated as zero")
	} else {
		w, h := d.pageSize(page, p)
		l.order = paintOrder(placements)
		l.coverage = coverageFraction(placements, w, h)
	}

	d.layouts[page] = l
	return l, nil
}

func (d *Document) placements(p *pages.Page) ([]placement, error) {
	images, err := d.imageNames(p)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}

	streams, err := p.Contents()
	if err != nil {
		return nil, err
	}

	var content []byte
	for _, obj := range streams {
		s, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		data, err := s.Decode()
		if err != nil {
			return nil, err
		}
		content = append(content, data...)
		content = append(content, '\n')
	}

	return imagePlacements(content, func(name string) bool { return images[name] })
}

// imageNames lists the page's XObjects whose subtype is Image.
func (d *Document) imageNames(p *pages.Page) (map[string]bool, error) {
	resources, err := p.Resources()
	if err != nil || resources == nil {
		return nil, nil
	}
	xobj := resources.Get("XObject")
	if xobj == nil {
		return nil, nil
	}
	resolved, err := d.rd.Resolve(xobj)
	if err != nil {
		return nil, err
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, nil
	}

	names := make(map[string]bool, len(dict))
	for name, ref := range dict {
		obj, err := d.rd.Resolve(ref)
		if err != nil {
			continue
		}
		s, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		if subtype, ok := s.Dict.GetName("Subtype"); ok && subtype == "Image" {
			names[name] = true
		}
	}
	return names, nil
}

func (d *Document) pageSize(page int, p *pages.Page) (float64, float64) {
	w, werr := p.Width()
	h, herr := p.Height()
	if werr == nil && herr == nil && w > 0 && h > 0 {
		return w, h
	}
	b, err := d.fz.Bound(page)
	if err != nil {
		return 0, 0
	}
	return float64(b.Dx()), float64(b.Dy())
}
