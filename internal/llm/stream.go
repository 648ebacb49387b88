package llm

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const maxEventBytes = 4 << 20 // dense OCR pages arrive as large deltas

// StreamChunk is one decoded delta of a streamed completion.
type StreamChunk struct {
	Content      string
	FinishReason string
	Done         bool
}

// StreamParser reads an OpenRouter event stream. Events are separated by a
// blank line; their data lines are joined before decoding.
type StreamParser struct {
	lines *bufio.Scanner
	ended bool
}

func NewStreamParser(r io.Reader) *StreamParser {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64<<10), maxEventBytes)
	return &StreamParser{lines: s}
}

// streamEvent is a chat completion delta or an error reported mid-stream.
type streamEvent struct {
	chatResponse
	Error *struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}

// Next returns the next chunk carrying content or a finish reason. Input that
// ends without [DONE] is treated as a finished stream.
func (p *StreamParser) Next() (*StreamChunk, error) {
	for !p.ended {
		data, ok := p.event()
		if !ok {
			break
		}
		if data == "[DONE]" {
			p.ended = true
			break
		}

		var ev streamEvent
		if json.Unmarshal([]byte(data), &ev) != nil {
			continue
		}
		if ev.Error != nil {
			p.ended = true
			return nil, fmt.Errorf("stream error %s: %s", ev.Error.Code, ev.Error.Message)
		}
		if len(ev.Choices) == 0 {
			continue
		}

		ch := ev.Choices[0]
		text := ch.Delta.Content
		if text == "" {
			text = ch.Message.Content
		}
		return &StreamChunk{
			Content:      text,
			FinishReason: ch.FinishReason,
			Done:         ch.FinishReason != "",
		}, nil
	}

	if err := p.lines.Err(); err != nil {
		return nil, err
	}
	return &StreamChunk{Done: true}, nil
}

// event gathers the data lines of one event. Comments (": ping") and other
// fields are ignored.
func (p *StreamParser) event() (string, bool) {
	var data []string
	for p.lines.Scan() {
		line := p.lines.Text()
		if line == "" {
			if len(data) > 0 {
				return strings.Join(data, "\n"), true
			}
			continue
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(v, " "))
		}
	}
	return strings.Join(data, "\n"), len(data) > 0
}

// Collect drains the stream and returns the concatenated content. Text
// received before a failure is returned with the error.
func (p *StreamParser) Collect() (string, error) {
	var sb strings.Builder
	for {
		chunk, err := p.Next()
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk.Content)
		if chunk.Done {
			return sb.String(), nil
		}
	}
}
