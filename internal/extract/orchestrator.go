// Package extract runs the per-document pipeline: a sequential extraction
// phase against the PDF engine, concurrent enrichment through a vision
// provider, and ordered assembly of the artifacts.
package extract

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/manual-rag/internal/assemble"
	"github.com/spherical/manual-rag/internal/config"
	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/llm"
	"github.com/spherical/manual-rag/internal/observability"
	"github.com/spherical/manual-rag/internal/pdf"
	"github.com/spherical/manual-rag/internal/progress"
	"github.com/spherical/manual-rag/internal/trash"
)

// Orchestrator processes one document at a time. Process calls are
// serialized.
type Orchestrator struct {
	opener   domain.Opener
	provider domain.VisionProvider
	cfg      config.ProcessingConfig
	sink     domain.ProgressSink
	logger   *observability.Logger

	mu    sync.Mutex
	state atomic.Int32
}

// New creates an orchestrator. provider may be nil in text-only mode; sink and
// logger default to no-ops.
func New(opener domain.Opener, provider domain.VisionProvider, cfg config.ProcessingConfig, sink domain.ProgressSink, logger *observability.Logger) *Orchestrator {
	if sink == nil {
		sink = progress.Silent{}
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Orchestrator{
		opener:   opener,
		provider: provider,
		cfg:      cfg,
		sink:     sink,
		logger:   logger.WithOperation("process_pdf"),
	}
}

// State reports the lifecycle state of the current or last document.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// job carries what one Process call shares between its phases.
type job struct {
	runID    string
	path     string
	stem     string
	writer   *assemble.ArtifactWriter
	prompts  llm.PromptSet
	logger   *observability.Logger
	failures atomic.Int64
}

// Process converts the PDF at pdfPath into artifacts under outputDir.
// Per-page and per-image failures are embedded in the Markdown and reported to
// the progress sink; only document-level failures return an error.
func (o *Orchestrator) Process(ctx context.Context, pdfPath, outputDir string) (*domain.ProcessingResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.setState(StateIdle)
	startTime := time.Now()

	runID := uuid.NewString()
	ctx = observability.ContextWithRunID(ctx, runID)
	stem := pdf.Stem(pdfPath)
	j := &job{
		runID:   runID,
		path:    pdfPath,
		stem:    stem,
		prompts: llm.Prompts(o.cfg.Language),
		logger:  o.logger.WithContext(ctx).WithDocument(stem),
	}

	result, err := o.run(ctx, j, outputDir)
	if err != nil {
		o.setState(StateFailed)
		j.logger.Error().Err(err).Msg("Document processing failed")
		return nil, err
	}

	result.Duration = time.Since(startTime)
	o.setState(StateDone)
	j.logger.Info().
		Int("pages", result.Pages).
		Int("images", result.ImageCount).
		Int("failures", result.Failures).
		Dur("duration", result.Duration).
		Msg("Document complete")
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, j *job, outputDir string) (*domain.ProcessingResult, error) {
	textOnly := o.cfg.TextOnly
	if !textOnly && o.provider == nil {
		return nil, domain.ConfigError("vision provider required when text_only is false", nil)
	}

	writer, err := assemble.NewArtifactWriter(outputDir, j.stem, j.logger)
	if err != nil {
		return nil, err
	}
	if !textOnly {
		if err := writer.PrepareImages(); err != nil {
			return nil, err
		}
	}
	j.writer = writer

	o.setState(StateExtracting)
	ex, err := o.extract(ctx, j)
	if err != nil {
		return nil, err
	}
	total := len(ex.records)

	o.sink.DocumentStart(j.stem, total)

	var (
		pages  []assemble.Page
		header assemble.Header
	)
	if textOnly {
		pages = o.textPages(j, ex.records)
		header = assemble.Header{Stem: j.stem, Pages: total, TextOnly: true, Language: o.cfg.Language}
	} else {
		o.setState(StateEnriching)
		pages = o.enrich(ctx, j, ex.records)
		header = assemble.Header{Stem: j.stem, Pages: total, Provider: o.provider.ProviderName(), Model: o.provider.ModelName()}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("processing cancelled: %w", err)
	}

	o.setState(StateAssembling)
	doc := assemble.Build(header, pages)

	result := &domain.ProcessingResult{
		RunID:    j.runID,
		Stem:     j.stem,
		Markdown: doc.Markdown,
		Catalog:  doc.Catalog,
		Pages:    total,
	}

	if result.MarkdownPath, err = writer.WriteMarkdown(doc.Markdown); err != nil {
		return nil, err
	}
	if result.MetadataPath, err = writer.WriteCatalog(doc.Catalog); err != nil {
		return nil, err
	}

	if o.cfg.DetectTrash {
		result.Trash = detectTrash(ex)
		if result.TrashPath, err = writer.WriteTrash(result.Trash); err != nil {
			return nil, err
		}
		result.TrashCount = len(result.Trash)
	}

	result.ImageCount = len(doc.Catalog)
	result.Failures = int(j.failures.Load())
	o.sink.DocumentComplete(j.stem, result.ImageCount)
	return result, nil
}

// detectTrash reports stripped furniture first, then per-page detections.
func detectTrash(ex *extraction) []domain.TrashDetection {
	var out []domain.TrashDetection
	if d, ok := trash.HeaderFooter(len(ex.records), ex.furniture); ok {
		out = append(out, d)
	}
	return append(out, trash.Detect(ex.texts)...)
}

// textPages emits the stripped text of each page in order.
func (o *Orchestrator) textPages(j *job, records []domain.PageRecord) []assemble.Page {
	total := len(records)
	pages := make([]assemble.Page, 0, total)
	for _, rec := range records {
		o.sink.PageStart(rec.Number(), total)

		content := assemble.NewPage(rec.Number(), o.cfg.Language).Text(rec.Text).String()
		if rec.Err != nil {
			o.reportFailure(j, rec.Number(), rec.Err)
			content = assemble.PageFault(rec.Number(), rec.Err)
		}
		pages = append(pages, assemble.Page{Num: rec.Number(), Content: content})

		o.sink.PageComplete(rec.Number(), total)
	}
	return pages
}

// reportFailure records a suppressed unit failure.
func (o *Orchestrator) reportFailure(j *job, page int, err error) {
	j.failures.Add(1)
	o.sink.Error(page, err.Error())
}
