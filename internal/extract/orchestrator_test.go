package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/manual-rag/internal/assemble"
	"github.com/spherical/manual-rag/internal/config"
	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/llm"
	"github.com/spherical/manual-rag/internal/observability"
	"github.com/spherical/manual-rag/internal/progress"
)

const pdfPath = "/manuals/manual.pdf"

func testConfig() config.ProcessingConfig {
	cfg := config.DefaultConfig().Processing
	cfg.RetryDelay = time.Millisecond
	cfg.MaxBackoff = time.Millisecond
	return cfg
}

func fivePages() []fakePage {
	pages := make([]fakePage, 5)
	for i := range pages {
		pages[i] = fakePage{text: fmt.Sprintf("Section %d explains the phone.", i+1), coverage: 0.1, images: 1}
	}
	pages[2] = fakePage{text: "Cover art.", coverage: 0.7}
	return pages
}

func run(t *testing.T, pages []fakePage, provider domain.VisionProvider, cfg config.ProcessingConfig) (*domain.ProcessingResult, *progress.Recorder, string) {
	t.Helper()
	out := t.TempDir()
	rec := &progress.Recorder{}
	doc := &fakeDoc{t: t, pages: pages}
	o := New(fakeOpener{doc: doc}, provider, cfg, rec, nil)

	result, err := o.Process(context.Background(), pdfPath, out)
	require.NoError(t, err)
	assert.Equal(t, StateDone, o.State())
	assert.True(t, doc.closed.Load())
	return result, rec, out
}

func pageSection(markdown string, page int) string {
	start := strings.Index(markdown, fmt.Sprintf("## Page %d\n", page))
	if start < 0 {
		return ""
	}
	end := strings.Index(markdown[start+1:], "## Page ")
	if end < 0 {
		return markdown[start:]
	}
	return markdown[start : start+1+end]
}

func TestProcessStrategies(t *testing.T) {
	result, rec, out := run(t, fivePages(), llm.NewMockProvider(), testConfig())

	assert.Equal(t, []int{1, 2, 3, 4, 5}, assemble.PageNumbers(result.Markdown))
	assert.Equal(t, 5, result.Pages)
	assert.Equal(t, "manual", result.Stem)
	assert.NotEmpty(t, result.RunID)

	assert.Contains(t, pageSection(result.Markdown, 3), "[IMAGE:manual/manual_page_003_full.png]")
	assert.Contains(t, pageSection(result.Markdown, 3), "Cover art.\n\n[IMAGE:")
	for _, p := range []int{1, 2, 4, 5} {
		section := pageSection(result.Markdown, p)
		assert.Contains(t, section, fmt.Sprintf("[IMAGE:manual/manual_page_%03d_img1.png]", p))
		assert.Contains(t, section, "**[ภาพที่ 1]:** Description ")
		assert.NotContains(t, section, "_full.png")
	}

	require.Len(t, result.Catalog, 5)
	assert.Equal(t, 5, result.ImageCount)
	assert.Equal(t, domain.ImageKindFullPage, result.Catalog[2].Kind)
	assert.Nil(t, result.Catalog[2].Index)
	assert.Equal(t, domain.ImageKindExtractedImage, result.Catalog[0].Kind)
	require.NotNil(t, result.Catalog[0].Index)
	assert.Equal(t, 1, *result.Catalog[0].Index)
	assert.Equal(t, 201, *result.Catalog[0].Width)
	assert.Equal(t, "mock", result.Catalog[0].Provider)
	assert.Equal(t, "manual", result.Catalog[0].SourceDoc)
	for i := 1; i < len(result.Catalog); i++ {
		assert.Less(t, result.Catalog[i-1].Page, result.Catalog[i].Page)
	}

	assert.FileExists(t, filepath.Join(out, "manual_enriched.md"))
	assert.FileExists(t, filepath.Join(out, "manual_images_metadata.json"))
	assert.FileExists(t, filepath.Join(out, "images", "manual", "manual_page_003_full.png"))
	assert.FileExists(t, filepath.Join(out, "images", "manual", "manual_page_005_img1.png"))

	written, err := os.ReadFile(result.MarkdownPath)
	require.NoError(t, err)
	assert.Equal(t, result.Markdown, string(written))
	assert.True(t, strings.HasPrefix(result.Markdown, "# manual\n\n> Provider: `mock` | Model: `mock-vision` | Pages: 5\n"))

	assert.Len(t, rec.Filter(domain.EventStart), 1)
	assert.Len(t, rec.Filter(domain.EventPageProcessing), 5)
	assert.Len(t, rec.Filter(domain.EventPageComplete), 5)
	assert.Len(t, rec.Filter(domain.EventImageProcessed), 5)
	assert.Empty(t, rec.Filter(domain.EventError))
	complete := rec.Filter(domain.EventComplete)
	require.Len(t, complete, 1)
	assert.Equal(t, 5, complete[0].Total)
}

func TestProcessImageFailureIsContained(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.Fail = func(image domain.EncodedImage, prompt string) error {
		if string(image.Data) == "img p2 #1" {
			return errProvider
		}
		return nil
	}

	result, rec, _ := run(t, fivePages(), provider, testConfig())

	assert.Equal(t, []int{1, 2, 3, 4, 5}, assemble.PageNumbers(result.Markdown))
	assert.Contains(t, pageSection(result.Markdown, 2), "**[ภาพที่ 1]:** [ไม่สามารถอธิบายภาพได้: ")
	assert.Contains(t, pageSection(result.Markdown, 2), "model overloaded")
	assert.Len(t, result.Catalog, 4)
	assert.Equal(t, 1, result.Failures)

	errs := rec.Filter(domain.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Page)
	assert.Len(t, rec.Filter(domain.EventImageProcessed), 4)
}

func TestProcessConcurrencyInvariance(t *testing.T) {
	pages := make([]fakePage, 8)
	for i := range pages {
		pages[i] = fakePage{text: fmt.Sprintf("Step %d.", i+1), coverage: 0.2, images: 3}
	}
	pages[5].coverage = 0.9

	jitter := func(image domain.EncodedImage, prompt string) error {
		time.Sleep(time.Duration(image.Data[len(image.Data)-1]%4) * time.Millisecond)
		return nil
	}

	serialCfg := testConfig()
	serialCfg.MaxConcurrentPages = 1
	serialCfg.MaxConcurrentImages = 1
	serialProvider := llm.NewMockProvider()
	serialProvider.Fail = jitter

	parallelCfg := testConfig()
	parallelCfg.MaxConcurrentPages = 8
	parallelProvider := llm.NewMockProvider()
	parallelProvider.Fail = jitter

	serial, _, _ := run(t, pages, serialProvider, serialCfg)
	parallel, _, _ := run(t, pages, parallelProvider, parallelCfg)

	assert.Equal(t, serial.Markdown, parallel.Markdown)
	assert.Equal(t, serial.Catalog, parallel.Catalog)
	assert.Len(t, serial.Catalog, 7*3+1)
}

// inFlightProvider records the peak number of concurrent requests overall
// and per page, and how many pages had requests outstanding at once.
type inFlightProvider struct {
	*llm.MockProvider

	mu        sync.Mutex
	total     int
	perPage   map[string]int
	peakTotal int
	peakPage  int
	peakPages int
}

func (p *inFlightProvider) Ask(ctx context.Context, image domain.EncodedImage, prompt string, maxRetries int) (string, error) {
	page := strings.SplitN(string(image.Data), " #", 2)[0]

	p.mu.Lock()
	p.total++
	p.perPage[page]++
	p.peakTotal = max(p.peakTotal, p.total)
	p.peakPage = max(p.peakPage, p.perPage[page])
	p.peakPages = max(p.peakPages, len(p.perPage))
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.total--
		if p.perPage[page]--; p.perPage[page] == 0 {
			delete(p.perPage, page)
		}
		p.mu.Unlock()
	}()
	return p.MockProvider.Ask(ctx, image, prompt, maxRetries)
}

func TestProcessRespectsPoolLimits(t *testing.T) {
	pages := make([]fakePage, 10)
	for i := range pages {
		pages[i] = fakePage{text: fmt.Sprintf("Step %d.", i+1), coverage: 0.1, images: 6}
	}

	mock := llm.NewMockProvider()
	mock.Delay = 5 * time.Millisecond
	provider := &inFlightProvider{MockProvider: mock, perPage: make(map[string]int)}

	cfg := testConfig()
	cfg.MaxConcurrentPages = 2
	cfg.MaxConcurrentImages = 3

	result, _, _ := run(t, pages, provider, cfg)
	assert.Len(t, result.Catalog, 60)

	assert.LessOrEqual(t, provider.peakPage, 3, "images per page")
	assert.LessOrEqual(t, provider.peakPages, 2, "pages with images outstanding")
	assert.LessOrEqual(t, provider.peakTotal, 6, "requests overall")
	assert.Greater(t, provider.peakTotal, 1, "requests should overlap")
}

func TestProcessTextOnly(t *testing.T) {
	pages := []fakePage{
		{text: "ACME Manual\n\nPower on the phone by holding the side key for three seconds.\n\nPage footer"},
		{text: "ACME Manual\n\nInsert the SIM card into the tray until it clicks into place.\n\nPage footer"},
		{text: "ACME Manual\n\nThis page intentionally left blank\n\nPage footer"},
		{text: "ACME Manual\n\nCharge the battery fully with the supplied cable before first use.\n\nPage footer"},
	}
	cfg := testConfig()
	cfg.TextOnly = true
	cfg.Language = domain.LanguageEnglish

	result, rec, out := run(t, pages, nil, cfg)

	assert.True(t, strings.HasPrefix(result.Markdown, "# manual\n\n> Mode: `text-only` | Language: `en` | Pages: 4\n"))
	assert.NotContains(t, result.Markdown, "ACME Manual")
	assert.NotContains(t, result.Markdown, "Page footer")
	assert.NotContains(t, result.Markdown, "[IMAGE:")
	assert.Contains(t, pageSection(result.Markdown, 2), "Insert the SIM card into the tray")
	assert.Empty(t, result.Catalog)
	assert.NoDirExists(t, filepath.Join(out, "images"))

	meta, err := os.ReadFile(result.MetadataPath)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(meta))

	require.NotEmpty(t, result.Trash)
	assert.Equal(t, domain.TrashHeaderFooter, result.Trash[0].Kind)
	assert.Equal(t, 0, result.Trash[0].Page)
	var blank []domain.TrashDetection
	for _, d := range result.Trash {
		if d.Kind == domain.TrashBlankPage {
			blank = append(blank, d)
		}
	}
	require.Len(t, blank, 1)
	assert.Equal(t, 3, blank[0].Page)
	assert.InDelta(t, 0.95, blank[0].Confidence, 1e-9)
	assert.Equal(t, len(result.Trash), result.TrashCount)
	assert.FileExists(t, result.TrashPath)

	assert.Len(t, rec.Filter(domain.EventPageComplete), 4)
	assert.Equal(t, 0, rec.Filter(domain.EventComplete)[0].Total)
}

func TestProcessTrashDetectionDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.TextOnly = true
	cfg.DetectTrash = false

	result, _, out := run(t, []fakePage{{text: "This page intentionally left blank"}}, nil, cfg)
	assert.Empty(t, result.Trash)
	assert.Empty(t, result.TrashPath)
	assert.NoFileExists(t, filepath.Join(out, "manual_trash.json"))
}

func TestProcessPageRange(t *testing.T) {
	cfg := testConfig()
	cfg.StartPage = 1
	cfg.EndPage = 3

	result, _, _ := run(t, fivePages(), llm.NewMockProvider(), cfg)
	assert.Equal(t, []int{2, 3}, assemble.PageNumbers(result.Markdown))
	assert.Equal(t, 2, result.Pages)

	cfg.StartPage, cfg.EndPage = 1, 99
	result, _, _ = run(t, fivePages(), llm.NewMockProvider(), cfg)
	assert.Equal(t, []int{2, 3, 4, 5}, assemble.PageNumbers(result.Markdown))
}

func TestProcessStartBeyondDocument(t *testing.T) {
	cfg := testConfig()
	cfg.StartPage = 5

	o := New(fakeOpener{doc: &fakeDoc{t: t, pages: fivePages()}}, llm.NewMockProvider(), cfg, nil, nil)
	_, err := o.Process(context.Background(), pdfPath, t.TempDir())
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeDocument))
	assert.Equal(t, StateFailed, o.State())
}

func TestProcessHighQuality(t *testing.T) {
	cfg := testConfig()
	cfg.Quality = domain.QualityHigh
	cfg.Language = domain.LanguageEnglish

	pages := []fakePage{
		{text: "Press and hold the power key.", coverage: 0},
		{text: "", coverage: 0, images: 2},
	}
	provider := &scriptedProvider{}
	result, _, _ := run(t, pages, provider, cfg)

	prompts := llm.Prompts(domain.LanguageEnglish)
	seen := provider.seen()
	assert.ElementsMatch(t, []string{
		prompts.HighQualityPrompt("Press and hold the power key."),
		prompts.HighQuality,
	}, seen)

	assert.NotContains(t, pageSection(result.Markdown, 1), "Press and hold the power key.\n")
	assert.Contains(t, pageSection(result.Markdown, 1), "[IMAGE:manual/manual_page_001_full.png]\n\ndescribed render p1 dpi300")
	assert.Contains(t, pageSection(result.Markdown, 2), "manual_page_002_full.png")
	assert.NotContains(t, result.Markdown, "_img")
	assert.Len(t, result.Catalog, 2)
}

func TestProcessTableRegion(t *testing.T) {
	table := "Name    Age    City\nBob     30     LA\nAnn     29     NY"
	pages := []fakePage{{text: table, images: 1}}

	prompts := llm.Prompts(domain.LanguageThai)
	provider := &scriptedProvider{answer: func(image domain.EncodedImage, prompt string) (string, error) {
		if prompt == prompts.TableExtraction {
			return "| Name | Age | City |", nil
		}
		return "a photo", nil
	}}

	result, rec, _ := run(t, pages, provider, testConfig())
	section := pageSection(result.Markdown, 1)
	assert.NotContains(t, section, "Bob     30")
	assert.Contains(t, section, "\n[IMAGE:manual/manual_page_001_table.png]\n\n| Name | Age | City |\n")
	assert.Contains(t, section, "**[ภาพที่ 1]:** a photo")
	assert.Less(t, strings.Index(section, "_table.png"), strings.Index(section, "_img1.png"))

	require.Len(t, result.Catalog, 2)
	assert.Equal(t, domain.ImageKindTableRegion, result.Catalog[0].Kind)
	assert.Equal(t, domain.ImageKindExtractedImage, result.Catalog[1].Kind)
	assert.Len(t, rec.Filter(domain.EventImageProcessed), 1, "table transcriptions are not reported as images")

	cfg := testConfig()
	cfg.TableExtraction = false
	result, _, _ = run(t, pages, &scriptedProvider{}, cfg)
	assert.Contains(t, result.Markdown, "Bob     30     LA")
	assert.NotContains(t, result.Markdown, "_table.png")
}

func TestProcessTableFailurePlaceholder(t *testing.T) {
	table := "Name    Age    City\nBob     30     LA\nAnn     29     NY"
	cfg := testConfig()
	cfg.Language = domain.LanguageEnglish
	provider := &scriptedProvider{answer: func(domain.EncodedImage, string) (string, error) {
		return "", errProvider
	}}

	result, rec, _ := run(t, []fakePage{{text: table}}, provider, cfg)
	assert.Contains(t, result.Markdown, "[Unable to convert table: model overloaded]")
	assert.Empty(t, result.Catalog)
	assert.Len(t, rec.Filter(domain.EventError), 1)
}

func TestProcessRecoversFromPanics(t *testing.T) {
	provider := &scriptedProvider{answer: func(image domain.EncodedImage, prompt string) (string, error) {
		if string(image.Data) == "img p1 #2" {
			panic("decoder exploded")
		}
		return "ok " + string(image.Data), nil
	}}

	result, rec, _ := run(t, []fakePage{{text: "Body.", images: 3}}, provider, testConfig())
	section := pageSection(result.Markdown, 1)
	assert.Contains(t, section, "**[ภาพที่ 1]:** ok img p1 #1")
	assert.Contains(t, section, "**[ภาพที่ 2]:** [ไม่สามารถอธิบายภาพได้: image 2 panicked: decoder exploded]")
	assert.Contains(t, section, "**[ภาพที่ 3]:** ok img p1 #3")
	assert.Len(t, result.Catalog, 2)
	assert.Equal(t, 1, result.Failures)
	assert.Len(t, rec.Filter(domain.EventError), 1)
}

func TestProcessPageFault(t *testing.T) {
	pages := fivePages()
	pages[1].textErr = domain.DocumentError("broken content stream", nil)
	pages[3].imageErr = errors.New("bad xobject")

	result, rec, _ := run(t, pages, llm.NewMockProvider(), testConfig())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, assemble.PageNumbers(result.Markdown))
	assert.Contains(t, result.Markdown, "## Page 2\n[Error: [document] broken content stream]\n")
	assert.Contains(t, result.Markdown, "## Page 4\n[Error: bad xobject]\n")
	assert.Len(t, result.Catalog, 3)
	assert.Len(t, rec.Filter(domain.EventError), 2)
}

func TestProcessDocumentLevelFailures(t *testing.T) {
	t.Run("open failure", func(t *testing.T) {
		out := t.TempDir()
		o := New(fakeOpener{err: domain.DocumentError("cannot open", nil)}, llm.NewMockProvider(), testConfig(), nil, nil)
		_, err := o.Process(context.Background(), pdfPath, out)
		require.Error(t, err)
		assert.True(t, domain.IsType(err, domain.ErrorTypeDocument))
		assert.Equal(t, StateFailed, o.State())
		assert.NoFileExists(t, filepath.Join(out, "manual_enriched.md"))
	})

	t.Run("missing provider", func(t *testing.T) {
		o := New(fakeOpener{doc: &fakeDoc{t: t, pages: fivePages()}}, nil, testConfig(), nil, nil)
		_, err := o.Process(context.Background(), pdfPath, t.TempDir())
		require.Error(t, err)
		assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
	})

	t.Run("unwritable output", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		o := New(fakeOpener{doc: &fakeDoc{t: t, pages: fivePages()}}, llm.NewMockProvider(), testConfig(), nil, nil)
		_, err := o.Process(context.Background(), pdfPath, filepath.Join(file, "out"))
		require.Error(t, err)
		assert.True(t, domain.IsType(err, domain.ErrorTypeIO))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		o := New(fakeOpener{doc: &fakeDoc{t: t, pages: fivePages()}}, llm.NewMockProvider(), testConfig(), nil, nil)
		_, err := o.Process(ctx, pdfPath, t.TempDir())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "enriching", StateEnriching.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestPageRange(t *testing.T) {
	start, end, err := pageRange(10, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	assert.Equal(t, 10, end)

	start, end, err = pageRange(10, 2, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, start)
	assert.Equal(t, 10, end)

	_, _, err = pageRange(10, 10, 0)
	assert.Error(t, err)
}

func TestExtractPagesIndexesFromZero(t *testing.T) {
	cfg := testConfig()
	cfg.StartPage = 1
	cfg.EndPage = 4
	doc := &fakeDoc{t: t, pages: fivePages()}
	o := New(fakeOpener{doc: doc}, llm.NewMockProvider(), cfg, nil, nil)

	ex, err := o.extractPages(context.Background(), &job{path: pdfPath, stem: "manual", logger: observability.Nop()})
	require.NoError(t, err)
	require.Len(t, ex.records, 3)
	for i, rec := range ex.records {
		assert.Equal(t, i+1, rec.PageNum)
		assert.Equal(t, i+2, rec.Number())
	}
	assert.Equal(t, 2, ex.texts[0].Page)
}
