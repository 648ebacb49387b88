// Package ui provides user interface components for the manual-rag CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

// ProgressBar wraps a progressbar instance for deterministic progress display.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a new progress bar with the given total and description.
func NewProgressBar(total int64, description string) *ProgressBar {
	return newProgressBar(os.Stderr, total, description)
}

func newProgressBar(w io.Writer, total int64, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

// Add advances the progress bar.
func (p *ProgressBar) Add(n int) {
	_ = p.bar.Add(n)
}

// Describe replaces the text shown in front of the bar.
func (p *ProgressBar) Describe(description string) {
	p.bar.Describe(description)
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// Spinner wraps a spinner instance for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// faultLog collects the per-unit errors reported during a run so they can be
// listed after the bar has finished.
type faultLog struct {
	mu     sync.Mutex
	images int
	faults []string
}

func (f *faultLog) image() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images++
	return f.images
}

func (f *faultLog) add(page int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if page > 0 {
		message = fmt.Sprintf("page %d: %s", page, message)
	}
	f.faults = append(f.faults, message)
}

// Faults returns the reported errors in arrival order.
func (f *faultLog) Faults() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.faults))
	copy(out, f.faults)
	return out
}

// Images returns how many image descriptions succeeded.
func (f *faultLog) Images() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images
}

// PageSink shows a single document's progress as one bar of pages.
type PageSink struct {
	faultLog
	w    io.Writer
	name string

	barMu sync.Mutex
	bar   *ProgressBar
}

// NewPageSink creates a sink drawing on stderr.
func NewPageSink() *PageSink {
	return NewPageSinkTo(os.Stderr)
}

// NewPageSinkTo creates a sink drawing on w.
func NewPageSinkTo(w io.Writer) *PageSink {
	return &PageSink{w: w}
}

func (s *PageSink) DocumentStart(name string, totalPages int) {
	s.barMu.Lock()
	defer s.barMu.Unlock()
	s.name = name
	s.bar = newProgressBar(s.w, int64(totalPages), name)
}

func (s *PageSink) PageStart(page, totalPages int) {}

func (s *PageSink) PageComplete(page, totalPages int) {
	if bar := s.current(); bar != nil {
		bar.Add(1)
	}
}

func (s *PageSink) ImageProcessed(page, imageIndex int, preview string) {
	n := s.image()
	s.barMu.Lock()
	defer s.barMu.Unlock()
	if s.bar != nil {
		s.bar.Describe(fmt.Sprintf("%s (%d images)", s.name, n))
	}
}

func (s *PageSink) DocumentComplete(name string, totalImages int) {
	if bar := s.current(); bar != nil {
		bar.Finish()
	}
}

func (s *PageSink) Error(page int, message string) {
	s.add(page, message)
}

func (s *PageSink) current() *ProgressBar {
	s.barMu.Lock()
	defer s.barMu.Unlock()
	return s.bar
}
