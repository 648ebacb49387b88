package domain

import "context"

// Document is an opened PDF. Implementations are not safe for concurrent use;
// pages are 0-indexed.
type Document interface {
	PageCount() int
	// Coverage is the fraction of the page area covered by embedded images, in [0,1].
	Coverage(page int) (float64, error)
	// Rasterize renders the whole page at dpi and encodes it losslessly.
	Rasterize(page int, dpi int) (*EncodedImage, error)
	// ExtractText returns the trimmed native text layer.
	ExtractText(page int) (string, error)
	// ExtractImages returns embedded rasters no smaller than minSize on either side.
	ExtractImages(page int, minSize int) ([]RawImage, error)
	Close() error
}

// Opener opens documents for the extraction phase.
type Opener interface {
	Open(path string) (Document, error)
}

// VisionProvider is the capability set every vision backend exposes.
type VisionProvider interface {
	// Ask sends one image with a prompt, attempting up to maxRetries times.
	Ask(ctx context.Context, image EncodedImage, prompt string, maxRetries int) (string, error)
	// CheckAvailability verifies the backend can serve requests.
	CheckAvailability(ctx context.Context) error
	ProviderName() string
	ModelName() string
}

// ProgressSink receives progress callbacks. Pages are 1-indexed. Implementations
// must be safe for concurrent use.
type ProgressSink interface {
	DocumentStart(name string, totalPages int)
	PageStart(page, totalPages int)
	PageComplete(page, totalPages int)
	ImageProcessed(page, imageIndex int, preview string)
	DocumentComplete(name string, totalImages int)
	Error(page int, message string)
}
