package openai

import (
	"errors"
	"fmt"
	"io"

	"github.com/kart-io/nyx/pkg/utils/json"
	"github.com/kart-io/nyx/pkg/utils/sse"
)

// streamChunk chat.completion.chunk 事件。
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// chatStream 解析 SSE 事件流，产出 choices[0].delta.content。
type chatStream struct {
	body io.ReadCloser
	dec  *sse.Decoder
	cur  string
	err  error
	done bool
}

func newChatStream(body io.ReadCloser) *chatStream {
	return &chatStream{body: body, dec: sse.NewDecoder(body)}
}

func (s *chatStream) Next() bool {
	for !s.done {
		ev, err := s.dec.Next()
		if err != nil {
			s.finish(err)
			return false
		}
		if ev.IsDone() {
			s.finish(nil)
			return false
		}
		if ev.Data == "" {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			// 非 JSON 的保活数据直接跳过
			continue
		}
		if chunk.Error != nil {
			s.finish(fmt.Errorf("openai stream error: %s", chunk.Error.Message))
			return false
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		s.cur = chunk.Choices[0].Delta.Content
		return true
	}
	return false
}

func (s *chatStream) finish(err error) {
	s.done = true
	s.cur = ""
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
	}
}

func (s *chatStream) Delta() string { return s.cur }
func (s *chatStream) Err() error    { return s.err }

func (s *chatStream) Close() error {
	s.done = true
	return s.body.Close()
}
