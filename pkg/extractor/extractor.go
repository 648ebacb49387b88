// Package extractor is the public entry point for converting PDF manuals into
// RAG-ready Markdown.
package extractor

import (
	"context"
	"os"
	"sync"

	"github.com/spherical/manual-rag/internal/assemble"
	"github.com/spherical/manual-rag/internal/cache"
	"github.com/spherical/manual-rag/internal/config"
	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/extract"
	"github.com/spherical/manual-rag/internal/llm"
	"github.com/spherical/manual-rag/internal/observability"
	"github.com/spherical/manual-rag/internal/pdf"
	"github.com/spherical/manual-rag/internal/progress"
	"github.com/spherical/manual-rag/internal/trash"
)

// Re-export event and result types for public API
type (
	StreamEvent      = domain.StreamEvent
	EventType        = domain.EventType
	ProcessingResult = domain.ProcessingResult
	ImageDescription = domain.ImageDescription
	TrashDetection   = domain.TrashDetection
	ProgressSink     = domain.ProgressSink
	VisionProvider   = domain.VisionProvider
	Config           = config.Config
)

// Event type constants
const (
	EventStart          = domain.EventStart
	EventPageProcessing = domain.EventPageProcessing
	EventImageProcessed = domain.EventImageProcessed
	EventPageComplete   = domain.EventPageComplete
	EventError          = domain.EventError
	EventComplete       = domain.EventComplete
	EventResult         = domain.EventResult
)

// Client is the main entry point for the extractor library
type Client struct {
	cfg      *config.Config
	opener   domain.Opener
	provider domain.VisionProvider
	cache    cache.Client
	logger   *observability.Logger

	eventsOnce sync.Once
	events     progress.Publisher
	eventsErr  error
	closers    []func() error
}

// Option customizes a Client.
type Option func(*Client)

// WithProvider replaces the configured vision provider.
func WithProvider(p domain.VisionProvider) Option {
	return func(c *Client) { c.provider = p }
}

// WithOpener replaces the PDF engine.
func WithOpener(o domain.Opener) Option {
	return func(c *Client) { c.opener = o }
}

// WithLogger replaces the logger built from configuration.
func WithLogger(l *observability.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCache replaces the cache selected by configuration.
func WithCache(cc cache.Client) Option {
	return func(c *Client) { c.cache = cc }
}

// NewClient creates a client from .env, environment variables and, when path
// is not empty, a YAML file.
func NewClient(path string, opts ...Option) (*Client, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(cfg, opts...)
}

// NewClientWithConfig creates a client with an explicit configuration.
func NewClientWithConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if c.provider != nil && cfg.Provider.Name == "" {
		cfg.Provider.Name = c.provider.ProviderName()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if c.logger == nil {
		c.logger = observability.NewLogger(observability.LogConfig{
			Level:  cfg.Observability.LogLevel,
			Format: cfg.Observability.LogFormat,
		})
	}
	if c.opener == nil {
		c.opener = pdf.NewEngine(c.logger)
	}

	if c.cache == nil {
		cc, err := cache.New(cfg.Cache)
		if err != nil {
			return nil, err
		}
		if cc != nil {
			c.cache = cc
			c.closers = append(c.closers, cc.Close)
		}
	}

	if c.provider == nil && !cfg.Processing.TextOnly {
		gw, err := llm.New(cfg.Provider.Name, cfg.Provider.Model, llm.Options{
			OllamaHost: cfg.Provider.OllamaHost,
			BaseURL:    cfg.Provider.BaseURL,
			Timeout:    cfg.Provider.Timeout,
			Retry: llm.RetryConfig{
				InitialBackoff: cfg.Processing.RetryDelay,
				MaxBackoff:     cfg.Processing.MaxBackoff,
			},
			Logger: c.logger,
		})
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.provider = gw
	}

	if c.provider != nil && c.cache != nil {
		c.provider = llm.NewCachedProvider(c.provider, c.cache, cfg.Cache.TTL, c.logger)
	}

	return c, nil
}

// Config returns the client's configuration.
func (c *Client) Config() *config.Config { return c.cfg }

// Provider returns the vision provider, or nil in text-only mode.
func (c *Client) Provider() domain.VisionProvider { return c.provider }

// CheckProvider verifies the provider unless checks are skipped or no
// provider is needed.
func (c *Client) CheckProvider(ctx context.Context) error {
	if c.provider == nil || c.cfg.Provider.SkipCheck {
		return nil
	}
	return c.provider.CheckAvailability(ctx)
}

// ProcessFile converts one PDF and reports progress to sink. A nil sink logs
// progress instead. When events.redis_channel is configured every event is
// also published.
func (c *Client) ProcessFile(ctx context.Context, pdfPath, outputDir string, sink domain.ProgressSink) (*ProcessingResult, error) {
	if outputDir == "" {
		outputDir = c.cfg.Output.Dir
	}

	if sink == nil {
		sink = progress.NewLogSink(c.logger)
	}
	sinks := []domain.ProgressSink{sink}
	if pub, err := c.publisher(); err != nil {
		c.logger.Warn().Err(err).Msg("Event publishing disabled")
	} else if pub != nil {
		ps := progress.NewPublisherSink(ctx, pub, c.cfg.Events.RedisChannel, c.logger)
		defer ps.Close()
		sinks = append(sinks, ps)
	}

	o := extract.New(c.opener, c.provider, c.cfg.Processing, progress.NewMulti(sinks...), c.logger)
	return o.Process(ctx, pdfPath, outputDir)
}

// publisher lazily connects the event channel. It reuses a Redis description
// cache when there is one.
func (c *Client) publisher() (progress.Publisher, error) {
	if c.cfg.Events.RedisChannel == "" {
		return nil, nil
	}
	c.eventsOnce.Do(func() {
		if rc, ok := c.cache.(*cache.RedisClient); ok {
			c.events = rc
			return
		}
		r := c.cfg.Cache.Redis
		rc, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			PoolSize: r.PoolSize,
			Prefix:   r.Prefix,
		})
		if err != nil {
			c.eventsErr = domain.ConfigError("connect event channel", err)
			return
		}
		c.events = rc
		c.closers = append(c.closers, rc.Close)
	})
	return c.events, c.eventsErr
}

// Process extracts a PDF in the background.
// Returns a channel that streams events as extraction progresses; the last
// event is EventResult carrying the *ProcessingResult, or EventError.
func (c *Client) Process(ctx context.Context, pdfPath, outputDir string) (<-chan StreamEvent, error) {
	// Validate input
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		return nil, domain.ValidationError("PDF file not found", err)
	}

	eventCh := make(chan StreamEvent, 100)

	go func() {
		defer close(eventCh)
		result, err := c.ProcessFile(ctx, pdfPath, outputDir, progress.NewChannelSink(eventCh, c.logger))
		if err != nil {
			eventCh <- StreamEvent{Type: EventError, Payload: err.Error()}
			return
		}
		eventCh <- StreamEvent{Type: EventResult, Payload: result}
	}()

	return eventCh, nil
}

// StripTrash writes <stem>_cleaned.md without the pages whose detections match
// filter (see trash.ParseFilter). It returns the new path and the removed
// pages; the path is empty when nothing matched.
func StripTrash(result *ProcessingResult, filter string) (string, []int, error) {
	kinds, err := trash.ParseFilter(filter)
	if err != nil {
		return "", nil, err
	}
	pages := trash.PagesToStrip(result.Trash, kinds)
	if len(pages) == 0 {
		return "", nil, nil
	}
	path, _, err := assemble.CleanMarkdown(result.MarkdownPath, pages)
	if err != nil {
		return "", nil, err
	}
	return path, pages, nil
}

// CleanMarkdown removes pages from an enriched Markdown file and writes
// <stem>_cleaned.md next to it.
func CleanMarkdown(path string, pages []int) (string, error) {
	out, _, err := assemble.CleanMarkdown(path, pages)
	return out, err
}

// Close cleans up resources
func (c *Client) Close() error {
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
