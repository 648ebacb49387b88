package extract

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/textnorm"
	"github.com/spherical/manual-rag/internal/trash"
)

// extraction is everything read from the PDF before enrichment starts.
type extraction struct {
	records []domain.PageRecord
	// texts are the page texts after furniture stripping, fed to trash detection.
	texts     []trash.PageText
	furniture textnorm.Furniture
}

// pageRange resolves the configured 0-indexed [start, end) range against the
// document. end is clamped; 0 means the last page.
func pageRange(count, start, end int) (int, int, error) {
	if start > 0 && start >= count {
		return 0, 0, domain.DocumentError(fmt.Sprintf("start page %d out of range (document has %d pages)", start+1, count), nil)
	}
	if end <= 0 || end > count {
		end = count
	}
	return start, end, nil
}

// extract runs the whole extraction phase on one locked OS thread. The PDF
// engine handle never leaves that goroutine.
func (o *Orchestrator) extract(ctx context.Context, j *job) (*extraction, error) {
	type outcome struct {
		ex  *extraction
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out = outcome{err: domain.DocumentError(fmt.Sprintf("extraction panicked: %v", r), nil)}
			}
			done <- out
		}()
		out.ex, out.err = o.extractPages(ctx, j)
	}()

	res := <-done
	return res.ex, res.err
}

func (o *Orchestrator) extractPages(ctx context.Context, j *job) (*extraction, error) {
	doc, err := o.opener.Open(j.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			j.logger.Warn().Err(cerr).Msg("Failed to close document")
		}
	}()

	count := doc.PageCount()
	start, end, err := pageRange(count, o.cfg.StartPage, o.cfg.EndPage)
	if err != nil {
		return nil, err
	}

	j.logger.Info().
		Int("from", start+1).
		Int("to", end).
		Int("total_pages", count).
		Bool("text_only", o.cfg.TextOnly).
		Msg("Extracting pages")

	n := end - start
	cleaned := make([]string, n)
	textErrs := make([]error, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extraction cancelled: %w", err)
		}
		raw, err := doc.ExtractText(start + i)
		if err != nil {
			textErrs[i] = err
			continue
		}
		cleaned[i] = textnorm.Cleanup(raw)
	}

	furniture := textnorm.DetectFurniture(cleaned)
	stripped := textnorm.StripFurniture(cleaned, furniture)
	if !furniture.Empty() {
		j.logger.Info().
			Strs("headers", furniture.Headers).
			Strs("footers", furniture.Footers).
			Msg("Repeated page furniture detected")
	}

	ex := &extraction{
		records:   make([]domain.PageRecord, n),
		texts:     make([]trash.PageText, 0, n),
		furniture: furniture,
	}
	for i := 0; i < n; i++ {
		pageNum := start + i
		if textErrs[i] == nil {
			ex.texts = append(ex.texts, trash.PageText{Page: pageNum + 1, Text: stripped[i]})
		}

		if o.cfg.TextOnly {
			ex.records[i] = domain.PageRecord{PageNum: pageNum, Strategy: domain.StrategyMixed, Text: stripped[i], Err: textErrs[i]}
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extraction cancelled: %w", err)
		}
		rec := domain.PageRecord{PageNum: pageNum, Err: textErrs[i]}
		if rec.Err == nil {
			rec = o.extractPage(doc, j, start+i, cleaned[i])
		}
		ex.records[i] = rec
	}
	return ex, nil
}

// extractPage picks the strategy for one page and reads everything enrichment
// will need. A failure is stored on the record.
func (o *Orchestrator) extractPage(doc domain.Document, j *job, page int, text string) domain.PageRecord {
	rec := domain.PageRecord{PageNum: page, Text: text}
	logger := j.logger.WithPage(rec.Number())

	if o.cfg.Quality == domain.QualityHigh {
		render, err := doc.Rasterize(page, o.cfg.HighQualityDPI)
		if err != nil {
			rec.Err = err
			return rec
		}
		rec.Strategy = domain.StrategyFullPage
		rec.Render = render
		logger.Debug().Int("dpi", o.cfg.HighQualityDPI).Msg("High quality full page render")
		return rec
	}

	coverage, err := doc.Coverage(page)
	if err != nil {
		rec.Err = err
		return rec
	}
	rec.Coverage = coverage

	if coverage >= o.cfg.PageAsImageThreshold {
		render, err := doc.Rasterize(page, o.cfg.ImageDPI)
		if err != nil {
			rec.Err = err
			return rec
		}
		rec.Strategy = domain.StrategyFullPage
		rec.Render = render
		logger.Info().Float64("coverage", coverage).Msg("Image-heavy page, full page render")
		return rec
	}

	rec.Strategy = domain.StrategyMixed
	images, err := doc.ExtractImages(page, o.cfg.MinImageSize)
	if err != nil {
		rec.Err = err
		return rec
	}
	rec.Images = images

	rec.TableCandidate = o.cfg.TableExtraction && textnorm.LooksLikeTable(text)
	if rec.TableCandidate {
		render, err := doc.Rasterize(page, o.cfg.ImageDPI)
		if err != nil {
			rec.Err = err
			return rec
		}
		rec.Render = render
		logger.Info().Msg("Table-like content detected")
	}
	return rec
}
