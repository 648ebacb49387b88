package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spherical/manual-rag/internal/domain"
)

type fakePage struct {
	text     string
	coverage float64
	images   int
	textErr  error
	imageErr error
}

// fakeDoc is an in-memory Document that fails the test on concurrent use.
type fakeDoc struct {
	t      *testing.T
	pages  []fakePage
	active atomic.Int32
	closed atomic.Bool
}

func (d *fakeDoc) enter() func() {
	if d.active.Add(1) > 1 {
		d.t.Errorf("document used concurrently")
	}
	return func() { d.active.Add(-1) }
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) Coverage(page int) (float64, error) {
	defer d.enter()()
	return d.pages[page].coverage, nil
}

func encoded(data string, w, h int) *domain.EncodedImage {
	return &domain.EncodedImage{Data: []byte(data), MIMEType: "image/png", Width: w, Height: h}
}

func (d *fakeDoc) Rasterize(page int, dpi int) (*domain.EncodedImage, error) {
	defer d.enter()()
	return encoded(fmt.Sprintf("render p%d dpi%d", page+1, dpi), dpi*8, dpi*11), nil
}

func (d *fakeDoc) ExtractText(page int) (string, error) {
	defer d.enter()()
	p := d.pages[page]
	return p.text, p.textErr
}

func (d *fakeDoc) ExtractImages(page int, minSize int) ([]domain.RawImage, error) {
	defer d.enter()()
	p := d.pages[page]
	if p.imageErr != nil {
		return nil, p.imageErr
	}
	var out []domain.RawImage
	for i := 1; i <= p.images; i++ {
		out = append(out, domain.RawImage{Index: i, Image: *encoded(fmt.Sprintf("img p%d #%d", page+1, i), 200+i, 100+i)})
	}
	return out, nil
}

func (d *fakeDoc) Close() error {
	d.closed.Store(true)
	return nil
}

type fakeOpener struct {
	doc *fakeDoc
	err error
}

func (o fakeOpener) Open(path string) (domain.Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

// scriptedProvider answers through a function and records prompts.
type scriptedProvider struct {
	answer func(image domain.EncodedImage, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (p *scriptedProvider) Ask(ctx context.Context, image domain.EncodedImage, prompt string, maxRetries int) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()
	if p.answer == nil {
		return "described " + string(image.Data), nil
	}
	return p.answer(image, prompt)
}

func (p *scriptedProvider) CheckAvailability(ctx context.Context) error { return nil }
func (p *scriptedProvider) ProviderName() string                        { return "scripted" }
func (p *scriptedProvider) ModelName() string                           { return "v1" }

func (p *scriptedProvider) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

var errProvider = errors.New("model overloaded")
