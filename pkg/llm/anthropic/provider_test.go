package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/nyx/pkg/llm"
)

const sampleStream = "event: message_start\n" +
	`data: {"type":"message_start","message":{"id":"msg_1"}}` + "\n\n" +
	"event: content_block_start\n" +
	`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}` + "\n\n" +
	"event: ping\n" +
	`data: {"type":"ping"}` + "\n\n" +
	"event: content_block_delta\n" +
	`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}` + "\n\n" +
	"event: content_block_delta\n" +
	`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}` + "\n\n" +
	"event: message_stop\n" +
	`data: {"type":"message_stop"}` + "\n\n"

func newTestProvider(t *testing.T, handler http.HandlerFunc, apiKey string) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewProvider(map[string]any{"base_url": srv.URL, "api_key": apiKey})
	require.NoError(t, err)
	return p
}

func drain(s llm.Stream) ([]string, error) {
	defer func() { _ = s.Close() }()
	var out []string
	for s.Next() {
		out = append(out, s.Delta())
	}
	return out, s.Err()
}

func TestStreamChat_RequestShapeAndDeltas(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "default-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-5-haiku-latest", body["model"])
		assert.Equal(t, "sys", body["system"])
		assert.EqualValues(t, 1000, body["max_tokens"])
		assert.Equal(t, true, body["stream"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 1, "系统提示不能作为消息轮次发送")

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, sampleStream)
	}, "default-key")

	s, err := p.StreamChat(context.Background(), &llm.ChatRequest{
		Model:        "claude-3-5-haiku-latest",
		SystemPrompt: "sys",
		Turns:        []llm.Message{{Role: llm.RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)

	deltas, err := drain(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there"}, deltas)
}

func TestStreamChat_ErrorEvent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "event: content_block_delta\n"+
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"par"}}`+"\n\n"+
			"event: error\n"+
			`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`+"\n\n")
	}, "k")

	s, err := p.StreamChat(context.Background(), &llm.ChatRequest{Model: "claude-sonnet-4-20250514"})
	require.NoError(t, err)

	deltas, err := drain(s)
	assert.Equal(t, []string{"par"}, deltas)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Overloaded")
}

func TestStreamChat_UnnamedEventsUseDataType(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `data: {"type":"content_block_delta","delta":{"text":"x"}}`+"\n\n")
	}, "k")

	s, err := p.StreamChat(context.Background(), &llm.ChatRequest{Model: "claude-x"})
	require.NoError(t, err)

	deltas, err := drain(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, deltas)
}

func TestStreamChat_Unavailable(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)

	_, err = p.StreamChat(context.Background(), &llm.ChatRequest{Model: "claude-x"})
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}
