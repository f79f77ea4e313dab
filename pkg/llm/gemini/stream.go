package gemini

import (
	"errors"
	"fmt"
	"io"
)

const readSize = 4 << 10

// chatStream 从响应体读取字节，交给 ndjsonParser 解析，按顺序产出文本。
type chatStream struct {
	body    io.ReadCloser
	parser  ndjsonParser
	readBuf []byte

	pending []string
	// tailErr 在 pending 全部产出后生效
	tailErr error

	cur    string
	err    error
	eof    bool
	closed bool
}

func newChatStream(body io.ReadCloser) *chatStream {
	return &chatStream{body: body, readBuf: make([]byte, readSize)}
}

func (s *chatStream) Next() bool {
	for !s.closed && s.err == nil {
		if len(s.pending) > 0 {
			s.cur, s.pending = s.pending[0], s.pending[1:]
			return true
		}
		if s.eof {
			s.err = s.tailErr
			break
		}

		n, err := s.body.Read(s.readBuf)
		if n > 0 {
			s.accept(s.parser.Feed(s.readBuf[:n]))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.tailErr = err
			} else {
				s.accept(s.parser.Flush())
			}
			s.eof = true
		}
	}
	s.cur = ""
	return false
}

// accept 收集文本，遇到错误对象后停止读取。
func (s *chatStream) accept(objs []*generateResponse) {
	for _, obj := range objs {
		if obj.Error != nil {
			s.tailErr = fmt.Errorf("gemini stream error: %s", obj.Error.Message)
			s.eof = true
			return
		}
		if t := obj.text(); t != "" {
			s.pending = append(s.pending, t)
		}
	}
}

func (s *chatStream) Delta() string { return s.cur }
func (s *chatStream) Err() error    { return s.err }

func (s *chatStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
