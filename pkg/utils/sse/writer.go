package sse

import (
	"errors"
	"io"
	"net/http"
)

// DoneSentinel 流结束标记。
const DoneSentinel = "[DONE]"

// ErrStreamingUnsupported ResponseWriter 不支持 Flush。
var ErrStreamingUnsupported = errors.New("streaming not supported")

// Writer 将 data 帧写入 HTTP 响应并立即刷新。
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter 设置事件流响应头并返回 Writer。
// 必须在写入任何响应体之前调用。
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	// 关闭 nginx 等反向代理的缓冲
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteData 写入一帧 "data: <payload>\n\n"。payload 不得包含换行。
func (s *Writer) WriteData(payload []byte) error {
	buf := make([]byte, 0, len(payload)+8)
	buf = append(buf, "data: "...)
	buf = append(buf, payload...)
	buf = append(buf, '\n', '\n')
	if _, err := s.w.Write(buf); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Done 写入结束标记。
func (s *Writer) Done() error {
	return s.WriteData([]byte(DoneSentinel))
}
