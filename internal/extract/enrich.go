package extract

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/manual-rag/internal/assemble"
	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/progress"
	"github.com/spherical/manual-rag/internal/textnorm"
)

// enrich describes every record through the provider. At most
// MaxConcurrentPages pages run at once; a page holds its slot until its own
// images are done. The result is in page order.
func (o *Orchestrator) enrich(ctx context.Context, j *job, records []domain.PageRecord) []assemble.Page {
	total := len(records)

	var (
		mu    sync.Mutex
		pages = make([]assemble.Page, 0, total)
	)

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrentPages)
	for _, rec := range records {
		g.Go(func() error {
			o.sink.PageStart(rec.Number(), total)
			page := o.safePage(ctx, j, rec)

			mu.Lock()
			pages = append(pages, page)
			mu.Unlock()

			o.sink.PageComplete(rec.Number(), total)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(pages, func(a, b int) bool { return pages[a].Num < pages[b].Num })
	return pages
}

// safePage converts a panic inside one page into a page fault.
func (o *Orchestrator) safePage(ctx context.Context, j *job, rec domain.PageRecord) (page assemble.Page) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("page %d panicked: %v", rec.Number(), r)
			j.logger.Error().Err(err).Msg("Page task panicked")
			o.reportFailure(j, rec.Number(), err)
			page = assemble.Page{Num: rec.Number(), Content: assemble.PageFault(rec.Number(), err)}
		}
	}()
	return o.enrichPage(ctx, j, rec)
}

func (o *Orchestrator) enrichPage(ctx context.Context, j *job, rec domain.PageRecord) assemble.Page {
	if rec.Err != nil {
		o.reportFailure(j, rec.Number(), rec.Err)
		return assemble.Page{Num: rec.Number(), Content: assemble.PageFault(rec.Number(), rec.Err)}
	}
	if rec.Strategy == domain.StrategyFullPage {
		return o.fullPage(ctx, j, rec)
	}
	return o.mixedPage(ctx, j, rec)
}

// describe stores the image and asks the provider for a description.
func (o *Orchestrator) describe(ctx context.Context, j *job, file string, image domain.EncodedImage, prompt string) (string, error) {
	if err := j.writer.WriteImage(file, image.Data); err != nil {
		return "", err
	}
	return o.provider.Ask(ctx, image, prompt, o.cfg.MaxRetries)
}

func (o *Orchestrator) catalogEntry(j *job, page int, ref string, kind domain.ImageKind, description string) domain.ImageDescription {
	return domain.ImageDescription{
		ImageFile:   ref,
		Page:        page,
		Kind:        kind,
		Description: description,
		SourceDoc:   j.stem,
		Provider:    o.provider.ProviderName(),
		Model:       o.provider.ModelName(),
	}
}

func (o *Orchestrator) fullPage(ctx context.Context, j *job, rec domain.PageRecord) assemble.Page {
	file := assemble.FullPageImage(j.stem, rec.Number())
	ref := assemble.ImageRef(j.stem, file)

	prompt, hint := j.prompts.FullPage, rec.Text
	if o.cfg.Quality == domain.QualityHigh {
		prompt, hint = j.prompts.HighQualityPrompt(rec.Text), ""
	}

	out := assemble.Page{Num: rec.Number()}
	description, err := o.describe(ctx, j, file, *rec.Render, prompt)
	if err != nil {
		j.logger.WithPage(rec.Number()).Warn().Err(err).Msg("Full-page description failed")
		o.reportFailure(j, rec.Number(), err)
		description = assemble.ImageFailed(o.cfg.Language, err)
	} else {
		out.Images = append(out.Images, o.catalogEntry(j, rec.Number(), ref, domain.ImageKindFullPage, description))
		o.sink.ImageProcessed(rec.Number(), 1, textnorm.Truncate(description, progress.PreviewBytes))
	}

	out.Content = assemble.NewPage(rec.Number(), o.cfg.Language).FullPage(hint, ref, description).String()
	return out
}

// imageResult is the outcome of one embedded image.
type imageResult struct {
	index       int
	ref         string
	description string
	entry       *domain.ImageDescription
}

func (o *Orchestrator) mixedPage(ctx context.Context, j *job, rec domain.PageRecord) assemble.Page {
	b := assemble.NewPage(rec.Number(), o.cfg.Language)
	out := assemble.Page{Num: rec.Number()}

	// The table transcription covers the page text.
	if !rec.TableCandidate {
		b.Text(rec.Text)
	}

	if rec.TableCandidate && rec.Render != nil {
		file := assemble.TableImage(j.stem, rec.Number())
		ref := assemble.ImageRef(j.stem, file)

		description, err := o.describe(ctx, j, file, *rec.Render, j.prompts.TableExtraction)
		if err != nil {
			j.logger.WithPage(rec.Number()).Warn().Err(err).Msg("Table extraction failed")
			o.reportFailure(j, rec.Number(), err)
			description = assemble.TableFailed(o.cfg.Language, err)
		} else {
			out.Images = append(out.Images, o.catalogEntry(j, rec.Number(), ref, domain.ImageKindTableRegion, description))
		}
		b.Table(ref, description)
	}

	if len(rec.Images) > 0 {
		j.logger.WithPage(rec.Number()).Info().Int("images", len(rec.Images)).Msg("Describing embedded images")

		for _, res := range o.describeImages(ctx, j, rec) {
			b.Image(res.index, res.ref, res.description)
			if res.entry != nil {
				out.Images = append(out.Images, *res.entry)
			}
		}
	}

	out.Content = b.String()
	return out
}

// describeImages fans the page's images out over a pool of
// MaxConcurrentImages and returns the results sorted by image index.
func (o *Orchestrator) describeImages(ctx context.Context, j *job, rec domain.PageRecord) []imageResult {
	var (
		mu      sync.Mutex
		results = make([]imageResult, 0, len(rec.Images))
	)

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrentImages)
	for _, img := range rec.Images {
		g.Go(func() error {
			res := o.safeImage(ctx, j, rec.Number(), img)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	return results
}

func (o *Orchestrator) safeImage(ctx context.Context, j *job, page int, img domain.RawImage) (res imageResult) {
	file := assemble.EmbeddedImage(j.stem, page, img.Index)
	res = imageResult{index: img.Index, ref: assemble.ImageRef(j.stem, file)}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("image %d panicked: %v", img.Index, r)
			j.logger.WithPage(page).Error().Err(err).Msg("Image task panicked")
			o.reportFailure(j, page, err)
			res.description = assemble.ImageFailed(o.cfg.Language, err)
			res.entry = nil
		}
	}()

	description, err := o.describe(ctx, j, file, img.Image, j.prompts.SingleImage)
	if err != nil {
		j.logger.WithPage(page).Warn().Int("image", img.Index).Err(err).Msg("Image description failed")
		o.reportFailure(j, page, err)
		res.description = assemble.ImageFailed(o.cfg.Language, err)
		return res
	}

	entry := o.catalogEntry(j, page, res.ref, domain.ImageKindExtractedImage, description)
	index, width, height := img.Index, img.Width(), img.Height()
	entry.Index, entry.Width, entry.Height = &index, &width, &height

	res.description = description
	res.entry = &entry
	o.sink.ImageProcessed(page, img.Index, textnorm.Truncate(description, progress.PreviewBytes))
	return res
}
