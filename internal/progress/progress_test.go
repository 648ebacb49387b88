package progress

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/observability"
)

func drive(s domain.ProgressSink) {
	s.DocumentStart("manual", 2)
	s.PageStart(1, 2)
	s.ImageProcessed(1, 1, "a button")
	s.PageComplete(1, 2)
	s.Error(2, "provider down")
	s.DocumentComplete("manual", 1)
}

func TestChannelSink(t *testing.T) {
	ch := make(chan domain.StreamEvent, 10)
	drive(NewChannelSink(ch, nil))
	close(ch)

	var events []domain.StreamEvent
	for e := range ch {
		events = append(events, e)
	}
	require.Len(t, events, 6)

	assert.Equal(t, domain.EventStart, events[0].Type)
	assert.Equal(t, "manual", events[0].Document)
	assert.Equal(t, 2, events[0].TotalPages)

	assert.Equal(t, domain.EventImageProcessed, events[2].Type)
	assert.Equal(t, 1, events[2].ImageIndex)
	assert.Equal(t, "a button", events[2].Payload)

	assert.Equal(t, domain.EventError, events[4].Type)
	assert.Equal(t, 2, events[4].PageNumber)
	assert.Equal(t, domain.EventComplete, events[5].Type)
	for _, e := range events {
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.LogConfig{Level: "warn", Format: "json", Output: &buf})

	ch := make(chan domain.StreamEvent, 1)
	s := NewChannelSink(ch, logger)
	s.PageStart(1, 3)
	s.PageStart(2, 3)

	assert.Len(t, ch, 1)
	assert.Contains(t, buf.String(), "Event channel full")

	NewChannelSink(nil, nil).PageStart(1, 1)
}

func TestRecorderConcurrent(t *testing.T) {
	r := &Recorder{}
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			r.PageStart(page, 20)
			r.PageComplete(page, 20)
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.Calls(), 40)
	assert.Len(t, r.Filter(domain.EventPageComplete), 20)
	assert.Empty(t, r.Filter(domain.EventError))
}

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := NewMulti(a, nil, Silent{}, b)
	assert.Len(t, m, 3)

	drive(m)
	assert.Equal(t, a.Calls(), b.Calls())
	assert.Len(t, a.Calls(), 6)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.LogConfig{Level: "debug", Format: "json", Output: &buf})
	drive(NewLogSink(logger))

	out := buf.String()
	assert.Contains(t, out, `"document":"manual"`)
	assert.Contains(t, out, "Image described")
	assert.Contains(t, out, `"error":"provider down"`)
}

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages []interface{}
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, message)
	return f.err
}

func TestPublisherSink(t *testing.T) {
	pub := &fakePublisher{}
	ctx := observability.ContextWithRunID(context.Background(), "run-1")

	s := NewPublisherSink(ctx, pub, "progress", nil)
	drive(s)
	s.Close()
	s.Close()

	require.Len(t, pub.messages, 6)
	for _, ch := range pub.channels {
		assert.Equal(t, "progress", ch)
	}
	first, ok := pub.messages[0].(publishedEvent)
	require.True(t, ok)
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, domain.EventStart, first.Type)

	last := pub.messages[5].(publishedEvent)
	assert.Equal(t, domain.EventComplete, last.Type)
}

func TestPublisherSinkToleratesErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection reset")}
	s := NewPublisherSink(context.Background(), pub, "progress", nil)
	drive(s)
	s.Close()
	assert.Len(t, pub.messages, 6)
}
