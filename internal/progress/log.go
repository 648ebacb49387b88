package progress

import (
	"github.com/spherical/manual-rag/internal/observability"
)

// LogSink writes progress as structured log lines.
type LogSink struct {
	logger *observability.Logger
}

// NewLogSink logs through logger, or the default logger when nil.
func NewLogSink(logger *observability.Logger) *LogSink {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &LogSink{logger: logger.WithOperation("progress")}
}

func (s *LogSink) DocumentStart(name string, totalPages int) {
	s.logger.Info().Str("document", name).Int("total_pages", totalPages).Msg("Processing document")
}

func (s *LogSink) PageStart(page, totalPages int) {
	s.logger.Debug().Int("page", page).Int("total_pages", totalPages).Msg("Page started")
}

func (s *LogSink) PageComplete(page, totalPages int) {
	s.logger.Info().Int("page", page).Int("total_pages", totalPages).Msg("Page complete")
}

func (s *LogSink) ImageProcessed(page, imageIndex int, preview string) {
	s.logger.Debug().Int("page", page).Int("image", imageIndex).Str("preview", preview).Msg("Image described")
}

func (s *LogSink) DocumentComplete(name string, totalImages int) {
	s.logger.Info().Str("document", name).Int("images", totalImages).Msg("Document complete")
}

func (s *LogSink) Error(page int, message string) {
	s.logger.Error().Int("page", page).Str("error", message).Msg("Processing error")
}
