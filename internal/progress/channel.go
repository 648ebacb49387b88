package progress

import (
	"time"

	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/observability"
)

// ChannelSink turns callbacks into StreamEvents. Sends never block: when the
// channel is full the event is dropped and logged.
type ChannelSink struct {
	eventCh chan<- domain.StreamEvent
	logger  *observability.Logger
	now     func() time.Time
}

// NewChannelSink emits onto eventCh. A nil channel discards events.
func NewChannelSink(eventCh chan<- domain.StreamEvent, logger *observability.Logger) *ChannelSink {
	if logger == nil {
		logger = observability.Nop()
	}
	return &ChannelSink{eventCh: eventCh, logger: logger, now: time.Now}
}

func (s *ChannelSink) DocumentStart(name string, totalPages int) {
	s.emitEvent(domain.StreamEvent{Type: domain.EventStart, Document: name, TotalPages: totalPages})
}

func (s *ChannelSink) PageStart(page, totalPages int) {
	s.emitEvent(domain.StreamEvent{Type: domain.EventPageProcessing, PageNumber: page, TotalPages: totalPages})
}

func (s *ChannelSink) PageComplete(page, totalPages int) {
	s.emitEvent(domain.StreamEvent{Type: domain.EventPageComplete, PageNumber: page, TotalPages: totalPages})
}

func (s *ChannelSink) ImageProcessed(page, imageIndex int, preview string) {
	s.emitEvent(domain.StreamEvent{Type: domain.EventImageProcessed, PageNumber: page, ImageIndex: imageIndex, Payload: preview})
}

func (s *ChannelSink) DocumentComplete(name string, totalImages int) {
	s.emitEvent(domain.StreamEvent{Type: domain.EventComplete, Document: name, Payload: totalImages})
}

func (s *ChannelSink) Error(page int, message string) {
	s.emitEvent(domain.StreamEvent{Type: domain.EventError, PageNumber: page, Payload: message})
}

// emitEvent safely emits an event to the channel
func (s *ChannelSink) emitEvent(event domain.StreamEvent) {
	if s.eventCh == nil {
		return
	}
	event.Timestamp = s.now()
	select {
	case s.eventCh <- event:
	default:
		s.logger.Warn().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
	}
}
