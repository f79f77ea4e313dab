package gemini

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

func TestStreamChat_RequestShape(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "req-key", r.URL.Query().Get("key"))

		var body struct {
			Contents []struct {
				Role  string `json:"role"`
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			SystemInstruction struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"systemInstruction"`
			GenerationConfig struct {
				MaxOutputTokens int `json:"maxOutputTokens"`
			} `json:"generationConfig"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		require.Len(t, body.Contents, 3)
		assert.Equal(t, "user", body.Contents[0].Role)
		assert.Equal(t, "model", body.Contents[1].Role)
		assert.Equal(t, "user", body.Contents[2].Role)
		assert.Equal(t, "sys", body.SystemInstruction.Parts[0].Text)
		assert.Equal(t, 1000, body.GenerationConfig.MaxOutputTokens)

		_, _ = io.WriteString(w, objHello+"\n")
	}, "default-key")

	s, err := p.StreamChat(context.Background(), &llm.ChatRequest{
		Model:        "gemini-2.0-flash",
		SystemPrompt: "sys",
		APIKey:       "req-key",
		Turns: []llm.Message{
			{Role: llm.RoleUser, Content: "a"},
			{Role: llm.RoleAssistant, Content: "b"},
			{Role: "system", Content: "c"},
		},
	})
	require.NoError(t, err)

	deltas, err := drain(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, deltas)
}

func TestStreamChat_ChunkedArrayResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		f := w.(http.Flusher)
		parts := []string{"[" + objHello[:15], objHello[15:] + "\n,\n", objWorld}
		for _, part := range parts {
			_, _ = io.WriteString(w, part)
			f.Flush()
		}
		_, _ = io.WriteString(w, "\n]")
	}, "k")

	s, err := p.StreamChat(context.Background(), &llm.ChatRequest{Model: "gemini-2.0-flash"})
	require.NoError(t, err)

	deltas, err := drain(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " world"}, deltas)
}

func TestStreamChat_ErrorObjectAfterText(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, objHello+"\n"+`{"error":{"code":500,"message":"internal"}}`+"\n"+objWorld+"\n")
	}, "k")

	s, err := p.StreamChat(context.Background(), &llm.ChatRequest{Model: "gemini-2.0-flash"})
	require.NoError(t, err)

	deltas, err := drain(s)
	assert.Equal(t, []string{"Hello"}, deltas)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal")
}

func TestStreamChat_Unavailable(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)

	_, err = p.StreamChat(context.Background(), &llm.ChatRequest{Model: "gemini-2.0-flash"})
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestStreamChat_Non2xx(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, "k")

	_, err := p.StreamChat(context.Background(), &llm.ChatRequest{Model: "gemini-2.0-flash"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, llm.ErrUnavailable)
}
