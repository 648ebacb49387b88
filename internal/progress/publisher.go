package progress

import (
	"context"
	"sync"

	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/observability"
)

const publishBuffer = 256

// Publisher delivers a message on a named channel. cache.RedisClient
// implements it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// PublisherSink publishes every progress event on a channel for external
// consumers. Events are queued and sent from one goroutine, so callbacks never
// wait on the network; a full queue drops the event.
type PublisherSink struct {
	*ChannelSink

	pub     Publisher
	channel string
	runID   string
	queue   chan domain.StreamEvent
	logger  *observability.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// publishedEvent is the wire form of an event.
type publishedEvent struct {
	RunID string `json:"run_id,omitempty"`
	domain.StreamEvent
}

// NewPublisherSink starts the publishing goroutine. Close must be called to
// flush queued events.
func NewPublisherSink(ctx context.Context, pub Publisher, channel string, logger *observability.Logger) *PublisherSink {
	if logger == nil {
		logger = observability.Nop()
	}
	queue := make(chan domain.StreamEvent, publishBuffer)
	s := &PublisherSink{
		ChannelSink: NewChannelSink(queue, logger),
		pub:         pub,
		channel:     channel,
		runID:       observability.RunIDFromContext(ctx),
		queue:       queue,
		logger:      logger.WithOperation("event_publisher"),
		done:        make(chan struct{}),
	}
	go s.run(context.WithoutCancel(ctx))
	return s
}

func (s *PublisherSink) run(ctx context.Context) {
	defer close(s.done)
	for event := range s.queue {
		msg := publishedEvent{RunID: s.runID, StreamEvent: event}
		if err := s.pub.Publish(ctx, s.channel, msg); err != nil {
			s.logger.Warn().Err(err).Str("event", string(event.Type)).Msg("Failed to publish event")
		}
	}
}

// Close stops accepting events and waits until queued ones are published.
// Callbacks must not be invoked after Close.
func (s *PublisherSink) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
	})
	<-s.done
}
