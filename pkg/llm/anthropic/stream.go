package anthropic

import (
	"errors"
	"fmt"
	"io"

	"github.com/kart-io/nyx/pkg/utils/json"
	"github.com/kart-io/nyx/pkg/utils/sse"
)

// 关心的事件类型，其余（message_start、ping 等）忽略。
const (
	eventContentBlockDelta = "content_block_delta"
	eventMessageStop       = "message_stop"
	eventError             = "error"
)

// streamEvent 事件 data 负载。
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

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
		if ev.Data == "" {
			continue
		}

		var payload streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			continue
		}

		// 事件名缺省时以 data.type 为准
		kind := ev.Name
		if kind == "" {
			kind = payload.Type
		}

		switch kind {
		case eventContentBlockDelta:
			if payload.Delta.Text == "" {
				continue
			}
			s.cur = payload.Delta.Text
			return true
		case eventMessageStop:
			s.finish(nil)
			return false
		case eventError:
			msg := "unknown error"
			if payload.Error != nil {
				msg = payload.Error.Message
			}
			s.finish(fmt.Errorf("anthropic stream error: %s", msg))
			return false
		}
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
