package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/manual-rag/internal/cache"
	"github.com/spherical/manual-rag/internal/config"
	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/llm"
	"github.com/spherical/manual-rag/internal/observability"
)

// memDoc is a text-only document with one page per string.
type memDoc struct{ pages []string }

func (d memDoc) PageCount() int                       { return len(d.pages) }
func (d memDoc) Coverage(int) (float64, error)        { return 0, nil }
func (d memDoc) ExtractText(page int) (string, error) { return d.pages[page], nil }
func (d memDoc) Close() error                         { return nil }

func (d memDoc) Rasterize(page int, dpi int) (*domain.EncodedImage, error) {
	return &domain.EncodedImage{Data: []byte{byte(page)}, MIMEType: "image/png", Width: 10, Height: 10}, nil
}

func (d memDoc) ExtractImages(page int, minSize int) ([]domain.RawImage, error) {
	return []domain.RawImage{{Index: 1, Image: domain.EncodedImage{Data: []byte{byte(page), 1}, Width: 300, Height: 200}}}, nil
}

type memOpener struct{ doc memDoc }

func (o memOpener) Open(string) (domain.Document, error) { return o.doc, nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.Processing.RetryDelay = time.Millisecond
	cfg.Processing.MaxBackoff = time.Millisecond
	return cfg
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guide.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\n"), 0o644))
	return path
}

var manual = memDoc{pages: []string{
	"Contents\nIntro ..... 1\nSetup ..... 2\nCalls ..... 3",
	"Hold the power key for three seconds to start the phone and pick a language.",
	"Open Settings to connect to a wireless network and sign in to your account.",
}}

func TestProcessFileWithInjectedProvider(t *testing.T) {
	provider := llm.NewMockProvider()
	c, err := NewClientWithConfig(testConfig(t),
		WithProvider(provider),
		WithOpener(memOpener{doc: manual}),
		WithLogger(observability.Nop()),
	)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.CheckProvider(context.Background()))

	result, err := c.ProcessFile(context.Background(), "/docs/guide.pdf", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "guide", result.Stem)
	assert.Equal(t, 3, result.Pages)
	assert.Len(t, result.Catalog, 3)
	assert.Equal(t, filepath.Join(c.Config().Output.Dir, "guide_enriched.md"), result.MarkdownPath)

	path, pages, err := StripTrash(result, "toc")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, pages)
	cleaned, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(cleaned), "## Page 1\n")
	assert.Contains(t, string(cleaned), "## Page 2\n")

	_, _, err = StripTrash(result, "junk")
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestProcessStreamsEvents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Processing.TextOnly = true
	c, err := NewClientWithConfig(cfg, WithOpener(memOpener{doc: manual}), WithLogger(observability.Nop()))
	require.NoError(t, err)
	defer c.Close()
	assert.Nil(t, c.Provider())

	events, err := c.Process(context.Background(), writePDF(t), "")
	require.NoError(t, err)

	var got []StreamEvent
	for e := range events {
		got = append(got, e)
	}
	require.NotEmpty(t, got)
	assert.Equal(t, EventStart, got[0].Type)

	last := got[len(got)-1]
	require.Equal(t, EventResult, last.Type)
	result, ok := last.Payload.(*ProcessingResult)
	require.True(t, ok)
	assert.Equal(t, "guide", result.Stem)
	assert.Empty(t, result.Catalog)

	_, err = c.Process(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), "")
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestCachedProviderIsUsed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Driver = "memory"
	provider := llm.NewMockProvider()

	c, err := NewClientWithConfig(cfg, WithProvider(provider), WithOpener(memOpener{doc: manual}), WithLogger(observability.Nop()))
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Provider().(*llm.CachedProvider)
	require.True(t, ok)

	_, err = c.ProcessFile(context.Background(), "/docs/guide.pdf", "", nil)
	require.NoError(t, err)
	first := provider.Calls()

	_, err = c.ProcessFile(context.Background(), "/docs/guide.pdf", t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, first, provider.Calls(), "second run is served from the cache")
}

func TestWithCache(t *testing.T) {
	mem := cache.NewMemoryClient(5)
	defer mem.Close()

	c, err := NewClientWithConfig(testConfig(t), WithProvider(llm.NewMockProvider()), WithCache(mem), WithLogger(observability.Nop()))
	require.NoError(t, err)
	assert.NoError(t, c.Close())
	_, ok := c.Provider().(*llm.CachedProvider)
	assert.True(t, ok)
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.Name = "bard"
	_, err := NewClientWithConfig(cfg, WithLogger(observability.Nop()))
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}

func TestCheckProviderSkipped(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.SkipCheck = true
	provider := llm.NewMockProvider()
	provider.CheckErr = domain.ProviderError("offline", nil)

	c, err := NewClientWithConfig(cfg, WithProvider(provider), WithLogger(observability.Nop()))
	require.NoError(t, err)
	assert.NoError(t, c.CheckProvider(context.Background()))

	cfg = testConfig(t)
	c, err = NewClientWithConfig(cfg, WithProvider(provider), WithLogger(observability.Nop()))
	require.NoError(t, err)
	assert.Error(t, c.CheckProvider(context.Background()))
}
