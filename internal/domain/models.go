package domain

import (
	"strings"
	"time"
)

// Language selects prompts and inline placeholder wording.
type Language string

const (
	LanguageThai    Language = "th"
	LanguageEnglish Language = "en"
)

// ParseLanguage accepts "th" or "en" in any case.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageThai:
		return LanguageThai, nil
	case LanguageEnglish:
		return LanguageEnglish, nil
	}
	return "", ConfigError("unsupported language "+s+" (use th | en)", nil)
}

// Quality selects between coverage-driven strategies and forced full-page OCR.
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
)

// ParseQuality accepts "standard" or "high" in any case.
func ParseQuality(s string) (Quality, error) {
	switch Quality(strings.ToLower(strings.TrimSpace(s))) {
	case QualityStandard:
		return QualityStandard, nil
	case QualityHigh:
		return QualityHigh, nil
	}
	return "", ConfigError("unsupported quality "+s+" (use standard | high)", nil)
}

// Strategy is the per-page enrichment choice, decided before any concurrent work.
type Strategy string

const (
	StrategyFullPage Strategy = "full_page"
	StrategyMixed    Strategy = "mixed"
)

// EncodedImage is a lossless raster plus its base64 transfer form.
type EncodedImage struct {
	Data     []byte
	Base64   string
	MIMEType string
	Width    int
	Height   int
}

// RawImage is an embedded raster pulled from a page. Index is 1-based and dense.
type RawImage struct {
	Index int
	Image EncodedImage
}

// Width in pixels.
func (r RawImage) Width() int { return r.Image.Width }

// Height in pixels.
func (r RawImage) Height() int { return r.Image.Height }

// PageRecord is produced once during extraction and is immutable afterward.
// Err is set when the page itself could not be read; the remaining fields are
// then zero and enrichment turns the record into an inline fault.
type PageRecord struct {
	// PageNum is 0-indexed; Number gives the page as printed in output.
	PageNum        int
	Strategy       Strategy
	Text           string
	Coverage       float64
	Images         []RawImage
	TableCandidate bool
	// Render holds the full-page raster for FullPage records and the table
	// raster for Mixed records with a table candidate.
	Render *EncodedImage
	Err    error
}

// Number returns the 1-indexed page number used in output, progress and logs.
func (r PageRecord) Number() int { return r.PageNum + 1 }

// ImageKind tells how a described image was produced.
type ImageKind string

const (
	ImageKindFullPage       ImageKind = "full_page"
	ImageKindExtractedImage ImageKind = "extracted_image"
	ImageKindTableRegion    ImageKind = "table_region"
)

// ImageDescription is one entry in the metadata catalog.
type ImageDescription struct {
	ImageFile   string    `json:"image_file"`
	Page        int       `json:"page"`
	Index       *int      `json:"index,omitempty"`
	Kind        ImageKind `json:"type"`
	Width       *int      `json:"width,omitempty"`
	Height      *int      `json:"height,omitempty"`
	Description string    `json:"description"`
	SourceDoc   string    `json:"source_doc"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
}

// TrashKind classifies low-value content.
type TrashKind string

const (
	TrashTableOfContents TrashKind = "table_of_contents"
	TrashBoilerplate     TrashKind = "boilerplate"
	TrashBlankPage       TrashKind = "blank_page"
	TrashHeaderFooter    TrashKind = "header_footer"
)

// Label is the human readable form of the kind.
func (k TrashKind) Label() string {
	switch k {
	case TrashTableOfContents:
		return "Table of Contents"
	case TrashBoilerplate:
		return "Boilerplate"
	case TrashBlankPage:
		return "Blank page"
	case TrashHeaderFooter:
		return "Header/Footer"
	}
	return string(k)
}

// TrashDetection flags a page (1-indexed, 0 for document-level) as low value.
type TrashDetection struct {
	Page       int       `json:"page"`
	Kind       TrashKind `json:"trash_type"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Preview    string    `json:"preview"`
}

// ProcessingResult describes the artifacts of one document run.
type ProcessingResult struct {
	RunID        string
	Stem         string
	MarkdownPath string
	MetadataPath string
	TrashPath    string
	Markdown     string
	Catalog      []ImageDescription
	Trash        []TrashDetection
	Pages        int
	ImageCount   int
	TrashCount   int
	Failures     int
	Duration     time.Duration
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart          EventType = "start"
	EventPageProcessing EventType = "page_processing"
	EventImageProcessed EventType = "image_processed"
	EventPageComplete   EventType = "page_complete"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
	// EventResult carries the *ProcessingResult and is always the last event.
	EventResult EventType = "result"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	Document   string      `json:"document,omitempty"`
	PageNumber int         `json:"page_number,omitempty"`
	TotalPages int         `json:"total_pages,omitempty"`
	ImageIndex int         `json:"image_index,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
