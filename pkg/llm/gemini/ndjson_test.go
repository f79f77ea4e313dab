package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(objs []*generateResponse) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.text())
	}
	return out
}

const (
	objHello = `{"candidates":[{"content":{"parts":[{"text":"Hello"}]}}]}`
	objWorld = `{"candidates":[{"content":{"parts":[{"text":" world"}]}}]}`
)

func TestNDJSON_PartialLineRetained(t *testing.T) {
	var p ndjsonParser

	// 前半行没有换行，不应产出也不应丢弃
	assert.Empty(t, p.Feed([]byte(objHello[:20])))
	assert.Equal(t, 20, p.Pending())

	got := p.Feed([]byte(objHello[20:] + "\n" + objWorld[:5]))
	assert.Equal(t, []string{"Hello"}, texts(got))
	assert.Equal(t, 5, p.Pending())

	got = p.Feed([]byte(objWorld[5:] + "\n"))
	assert.Equal(t, []string{" world"}, texts(got))
	assert.Zero(t, p.Pending())
}

func TestNDJSON_ArrayFraming(t *testing.T) {
	var p ndjsonParser
	raw := "[" + objHello + "\n,\n" + objWorld + "\n]\n"

	assert.Equal(t, []string{"Hello", " world"}, texts(p.Feed([]byte(raw))))
}

func TestNDJSON_LeadingCommaOnObjectLine(t *testing.T) {
	var p ndjsonParser
	raw := "[" + objHello + "\n," + objWorld + "]"

	got := p.Feed([]byte(raw))
	assert.Equal(t, []string{"Hello"}, texts(got))
	assert.Equal(t, []string{" world"}, texts(p.Flush()))
}

func TestNDJSON_MalformedAndEmptyLinesSkipped(t *testing.T) {
	var p ndjsonParser
	raw := "\n\r\n{not json}\n" + objHello + "\r\n   \n{\"candidates\":[\n"

	got := p.Feed([]byte(raw))
	assert.Equal(t, []string{"Hello"}, texts(got))
	assert.Zero(t, p.Pending(), "解析失败的完整行也必须被丢弃")
}

func TestNDJSON_FlushTrailingLine(t *testing.T) {
	var p ndjsonParser
	assert.Empty(t, p.Feed([]byte(objHello)))

	got := p.Flush()
	require.Len(t, got, 1)
	assert.Equal(t, "Hello", got[0].text())
	assert.Empty(t, p.Flush())
}

func TestNDJSON_ObjectWithoutText(t *testing.T) {
	var p ndjsonParser
	got := p.Feed([]byte(`{"candidates":[{"finishReason":"STOP"}]}` + "\n"))
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].text())
}

func TestNDJSON_MultiLineObjectDropped(t *testing.T) {
	var p ndjsonParser
	raw := "[{\n" + `"candidates": [{"content": {"parts": [{"text": "lost"}]}}]` + "\n}\n," + objWorld + "\n]\n"

	got := p.Feed([]byte(raw))
	assert.Equal(t, []string{" world"}, texts(got))
	assert.Zero(t, p.Pending())
}
