package ui

import (
	"io"
	"os"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Batch draws one overall bar for a directory run plus a bar per document
// while it is being processed.
type Batch struct {
	progress *mpb.Progress
	overall  *mpb.Bar
	wait     bool
}

// NewBatch creates a batch display for total documents on stderr.
func NewBatch(total int) *Batch {
	return newBatch(os.Stderr, total, IsTerminal())
}

// NewBatchTo creates a batch display writing to w. It refreshes even when w
// is not a terminal.
func NewBatchTo(w io.Writer, total int) *Batch {
	return newBatch(w, total, true, mpb.WithAutoRefresh())
}

func newBatch(w io.Writer, total int, wait bool, opts ...mpb.ContainerOption) *Batch {
	opts = append([]mpb.ContainerOption{mpb.WithWidth(64), mpb.WithOutput(w)}, opts...)
	p := mpb.New(opts...)
	name := "documents"
	overall := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 12}),
		),
	)
	return &Batch{progress: p, overall: overall, wait: wait}
}

// Document returns the progress sink for the next document.
func (b *Batch) Document() *BatchSink {
	return &BatchSink{batch: b}
}

// Close waits for the bars to render their final state.
func (b *Batch) Close() {
	// Wait can hang when nothing is rendering, so piped output shuts down.
	if b.wait {
		b.progress.Wait()
		return
	}
	b.progress.Shutdown()
}

// BatchSink reports one document of a batch.
type BatchSink struct {
	faultLog
	batch *Batch

	barMu    sync.Mutex
	bar      *mpb.Bar
	finished bool
}

func (s *BatchSink) DocumentStart(name string, totalPages int) {
	bar := s.batch.progress.AddBar(int64(totalPages),
		mpb.BarRemoveOnComplete(),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 12}),
				" done",
			),
		),
	)

	s.barMu.Lock()
	s.bar = bar
	s.barMu.Unlock()
}

func (s *BatchSink) PageStart(page, totalPages int) {}

func (s *BatchSink) PageComplete(page, totalPages int) {
	if bar := s.current(); bar != nil {
		bar.Increment()
	}
}

func (s *BatchSink) ImageProcessed(page, imageIndex int, preview string) {
	s.image()
}

func (s *BatchSink) DocumentComplete(name string, totalImages int) {
	if bar := s.current(); bar != nil {
		bar.SetTotal(-1, true)
	}
}

func (s *BatchSink) Error(page int, message string) {
	s.add(page, message)
}

// Finish counts the document in the overall bar whether or not it
// succeeded. A document that stopped early has its bar dropped.
func (s *BatchSink) Finish() {
	s.barMu.Lock()
	defer s.barMu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	if s.bar != nil && !s.bar.Completed() {
		s.bar.Abort(true)
	}
	s.batch.overall.Increment()
}

func (s *BatchSink) current() *mpb.Bar {
	s.barMu.Lock()
	defer s.barMu.Unlock()
	return s.bar
}
