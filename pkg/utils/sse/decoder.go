// Package sse 实现 Server-Sent Events 的增量解码与输出。
package sse

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// maxLineSize 单行上限，超出视为上游异常。
const maxLineSize = 1 << 20

// Event 一个已分发的 SSE 事件。
type Event struct {
	// Name 对应 "event:" 字段，未设置时为空。
	Name string
	// Data 多个 "data:" 行以 "\n" 连接。
	Data string
	ID   string
}

// Decoder 按行读取事件流，遇到空行分发事件。
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder 创建解码器。
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &Decoder{scanner: s}
}

// Next 返回下一个事件。流正常结束时返回 io.EOF；
// 结束前未以空行收尾的事件仍会被分发。
func (d *Decoder) Next() (Event, error) {
	var (
		ev      Event
		data    []string
		pending bool
	)

	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")
		if line == "" {
			if pending {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			ev.Name = value
			pending = true
		case "data":
			data = append(data, value)
			pending = true
		case "id":
			ev.ID = value
		}
	}

	if err := d.scanner.Err(); err != nil {
		return Event{}, err
	}
	if pending {
		ev.Data = strings.Join(data, "\n")
		return ev, nil
	}
	return Event{}, io.EOF
}

// IsDone 判断是否为 OpenAI 风格的结束标记。
func (e Event) IsDone() bool {
	return bytes.Equal(bytes.TrimSpace([]byte(e.Data)), []byte(DoneSentinel))
}
