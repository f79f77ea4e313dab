package biz

import (
	"strings"
	"unicode/utf16"
)

const (
	// DefaultMaxTokens 单个分块的默认 token 预算。
	DefaultMaxTokens = 500
	// DefaultOverlapWords 相邻分块重叠的默认词数。
	DefaultOverlapWords = 20
)

// Chunker 按词切分文本，用 ceil(UTF-16 码元数/4) 估算 token。
// 估算方式必须保持不变，已入库分块的边界依赖它。
type Chunker struct {
	maxTokens int
	overlap   int
}

// NewChunker 创建分块器，非正数参数取默认值。overlap 为 0 时使用默认值，
// 负数表示不重叠。
func NewChunker(maxTokens, overlap int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlap == 0 {
		overlap = DefaultOverlapWords
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{maxTokens: maxTokens, overlap: overlap}
}

// textUnits 返回 s 的 UTF-16 码元数，BMP 之外的字符计为 2。
func textUnits(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

func wordTokens(word string) int {
	return (textUnits(word) + 3) / 4
}

// Chunk 将文本切分为有序分块。空输入返回空切片；超出预算的单词不会被截断。
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	chunks := make([]string, 0, len(words)/c.maxTokens+1)

	var current []string
	var estimate float64
	for _, word := range words {
		cost := wordTokens(word)
		if estimate+float64(cost) > float64(c.maxTokens) && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			start := len(current) - c.overlap
			if start < 0 {
				start = 0
			}
			// 新切片，避免与已关闭分块共享底层数组
			current = append([]string(nil), current[start:]...)
			estimate = float64(textUnits(strings.Join(current, " "))) / 4
		}
		current = append(current, word)
		estimate += float64(cost)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
