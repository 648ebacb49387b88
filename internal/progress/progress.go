// Package progress provides ProgressSink implementations: no-op, logging,
// typed event channels, Redis fan-out, recording and composition.
package progress

import (
	"sync"

	"github.com/spherical/manual-rag/internal/domain"
)

// PreviewBytes bounds the description preview handed to ImageProcessed.
const PreviewBytes = 80

// Silent discards every callback.
type Silent struct{}

func (Silent) DocumentStart(string, int)       {}
func (Silent) PageStart(int, int)              {}
func (Silent) PageComplete(int, int)           {}
func (Silent) ImageProcessed(int, int, string) {}
func (Silent) DocumentComplete(string, int)    {}
func (Silent) Error(int, string)               {}

// Multi fans every callback out to each sink in order.
type Multi []domain.ProgressSink

// NewMulti drops nil sinks.
func NewMulti(sinks ...domain.ProgressSink) Multi {
	var m Multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m Multi) DocumentStart(name string, totalPages int) {
	for _, s := range m {
		s.DocumentStart(name, totalPages)
	}
}

func (m Multi) PageStart(page, totalPages int) {
	for _, s := range m {
		s.PageStart(page, totalPages)
	}
}

func (m Multi) PageComplete(page, totalPages int) {
	for _, s := range m {
		s.PageComplete(page, totalPages)
	}
}

func (m Multi) ImageProcessed(page, imageIndex int, preview string) {
	for _, s := range m {
		s.ImageProcessed(page, imageIndex, preview)
	}
}

func (m Multi) DocumentComplete(name string, totalImages int) {
	for _, s := range m {
		s.DocumentComplete(name, totalImages)
	}
}

func (m Multi) Error(page int, message string) {
	for _, s := range m {
		s.Error(page, message)
	}
}

// Call is one recorded callback.
type Call struct {
	Kind    domain.EventType
	Name    string
	Page    int
	Total   int
	Index   int
	Message string
}

// Recorder keeps every callback in arrival order. Safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *Recorder) add(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *Recorder) DocumentStart(name string, totalPages int) {
	r.add(Call{Kind: domain.EventStart, Name: name, Total: totalPages})
}

func (r *Recorder) PageStart(page, totalPages int) {
	r.add(Call{Kind: domain.EventPageProcessing, Page: page, Total: totalPages})
}

func (r *Recorder) PageComplete(page, totalPages int) {
	r.add(Call{Kind: domain.EventPageComplete, Page: page, Total: totalPages})
}

func (r *Recorder) ImageProcessed(page, imageIndex int, preview string) {
	r.add(Call{Kind: domain.EventImageProcessed, Page: page, Index: imageIndex, Message: preview})
}

func (r *Recorder) DocumentComplete(name string, totalImages int) {
	r.add(Call{Kind: domain.EventComplete, Name: name, Total: totalImages})
}

func (r *Recorder) Error(page int, message string) {
	r.add(Call{Kind: domain.EventError, Page: page, Message: message})
}

// Calls returns a copy of the recorded callbacks.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Filter returns the recorded callbacks of one kind.
func (r *Recorder) Filter(kind domain.EventType) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
