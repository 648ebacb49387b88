// Package observability provides structured logging for the pipeline.
package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const defaultService = "manual-rag"

// LogConfig selects level, encoding and destination.
type LogConfig struct {
	Level       string
	Format      string // json or console
	Output      io.Writer
	ServiceName string
}

// Logger is a zerolog logger that knows the pipeline's scoping fields:
// run, document, page and provider.
type Logger struct {
	zl zerolog.Logger
}

func NewLogger(cfg LogConfig) *Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var w io.Writer = os.Stderr
	if cfg.Output != nil {
		w = cfg.Output
	}
	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	service := cfg.ServiceName
	if service == "" {
		service = defaultService
	}
	zl := zerolog.New(w).
		Level(parseLevel(cfg.Level)).
		With().Timestamp().Str("service", service).
		Logger()
	return &Logger{zl: zl}
}

// DefaultLogger writes info and above to stderr in console form.
func DefaultLogger() *Logger {
	return NewLogger(LogConfig{Level: "info", Format: "console"})
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

func (l *Logger) with(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zl: fn(l.zl.With()).Logger()}
}

// WithContext adds the run ID carried by ctx. Without one l is returned as is.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	id := RunIDFromContext(ctx)
	if id == "" {
		return l
	}
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str("run_id", id) })
}

func (l *Logger) WithOperation(op string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str("operation", op) })
}

// WithDocument tags entries with the document stem.
func (l *Logger) WithDocument(stem string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str("document", stem) })
}

func (l *Logger) WithProvider(provider, model string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context {
		return c.Str("provider", provider).Str("model", model)
	})
}

// WithPage tags entries with a 1-indexed page number.
func (l *Logger) WithPage(page int) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Int("page", page) })
}

func parseLevel(s string) zerolog.Level {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "warning":
		return zerolog.WarnLevel
	case "off":
		return zerolog.Disabled
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

type runIDKey struct{}

// ContextWithRunID tags ctx with a processing run identifier.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run identifier carried by ctx, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
