package gemini

import (
	"bytes"

	"github.com/kart-io/nyx/pkg/utils/json"
)

// ndjsonParser 增量解析按行分隔的 JSON 对象。
//
// 状态只有一个缓冲区：Feed 追加字节，对每个以换行结束的完整行尝试解析，
// 无论成功与否都丢弃该行；没有换行的尾部数据保留到下一次 Feed。
// Flush 在 EOF 时对剩余数据做最后一次尝试。
//
// 行首的 "[" 或 "," 与行尾的 "," 或 "]" 会被剥离，因此每行一个对象的紧凑数组
// 分帧也能解析。跨多行格式化输出的对象无法按行解析，会被丢弃。
type ndjsonParser struct {
	buf []byte
}

// Feed 追加数据并返回本次完整解析出的对象。
func (p *ndjsonParser) Feed(data []byte) []*generateResponse {
	p.buf = append(p.buf, data...)

	var out []*generateResponse
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := p.buf[:i]
		if obj, ok := parseLine(line); ok {
			out = append(out, obj)
		}
		p.buf = p.buf[i+1:]
	}

	// 已消费的前缀不再需要，避免底层数组无限增长
	if len(p.buf) == 0 {
		p.buf = nil
	}
	return out
}

// Flush 尝试解析缓冲区中没有换行结尾的最后一行。
func (p *ndjsonParser) Flush() []*generateResponse {
	line := p.buf
	p.buf = nil
	if obj, ok := parseLine(line); ok {
		return []*generateResponse{obj}
	}
	return nil
}

// Pending 返回尚未解析的字节数。
func (p *ndjsonParser) Pending() int {
	return len(p.buf)
}

// parseLine 解析一行，空行、分帧符号和不完整的 JSON 返回 false。
func parseLine(line []byte) (*generateResponse, bool) {
	line = bytes.TrimSpace(line)
	line = bytes.TrimLeft(line, "[,")
	line = bytes.TrimRight(line, ",]")
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return nil, false
	}

	var obj generateResponse
	if err := json.Unmarshal(line, &obj); err != nil {
		return nil, false
	}
	return &obj, true
}
