package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int, w string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = w
	}
	return strings.Join(parts, " ")
}

func TestChunker_Empty(t *testing.T) {
	c := NewChunker(0, 0)
	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("  \n\t "))
	assert.NotNil(t, c.Chunk(""))
}

func TestChunker_SingleChunk(t *testing.T) {
	c := NewChunker(500, 20)
	got := c.Chunk("  hello   world\nfoo ")
	assert.Equal(t, []string{"hello world foo"}, got)
}

func TestChunker_Overlap(t *testing.T) {
	// 每个词 1 token，预算 10，重叠 3
	c := NewChunker(10, 3)
	text := "w0 w1 w2 w3 w4 w5 w6 w7 w8 w9 w10 w11 w12"
	got := c.Chunk(text)
	require.Len(t, got, 2)
	assert.Equal(t, "w0 w1 w2 w3 w4 w5 w6 w7 w8 w9", got[0])
	// 重叠估算 len("w7 w8 w9")/4 = 2.0，继续累积直到超预算
	assert.True(t, strings.HasPrefix(got[1], "w7 w8 w9 w10"))
}

func TestChunker_OversizeWord(t *testing.T) {
	c := NewChunker(5, 20)
	long := strings.Repeat("x", 100)
	got := c.Chunk(long)
	assert.Equal(t, []string{long}, got)
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(50, 20)
	text := words(400, "lorem") + " " + words(300, "ipsum")
	assert.Equal(t, c.Chunk(text), c.Chunk(text))
}

func TestChunker_BudgetCoversContent(t *testing.T) {
	c := NewChunker(500, 20)
	text := words(3000, "knowledge")
	got := c.Chunk(text)
	require.Greater(t, len(got), 1)

	total := 0
	for _, w := range strings.Fields(text) {
		total += wordTokens(w)
	}
	assert.GreaterOrEqual(t, len(got)*500, total)
	assert.Equal(t, words(20, "knowledge"), got[1][:len(words(20, "knowledge"))])
}

func TestChunker_NoOverlap(t *testing.T) {
	c := NewChunker(2, -1)
	assert.Equal(t, []string{"a b", "c d", "e"}, c.Chunk("a b c d e"))
}

func TestWordTokens(t *testing.T) {
	assert.Equal(t, 1, wordTokens("a"))
	assert.Equal(t, 1, wordTokens("abcd"))
	assert.Equal(t, 2, wordTokens("abcde"))
	assert.Equal(t, 1, wordTokens("你好"))
	// BMP 之外的字符占两个 UTF-16 码元
	assert.Equal(t, 2, textUnits("😀"))
	assert.Equal(t, 2, wordTokens("😀😀😀"))
}

func TestChunker_AstralText(t *testing.T) {
	c := NewChunker(2, -1)
	assert.Equal(t, []string{"😀😀😀", "ab"}, c.Chunk("😀😀😀 ab"))
}
