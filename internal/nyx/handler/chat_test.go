package handler_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/nyx/pkg/llm"
)

func TestChat_DemoWithoutProvider(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/chat",
		`{"turns":[{"role":"user","content":"Hi there"}],"config":{"businessName":"Acme"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	body := decode(t, w)
	assert.Equal(t, "demo", body["mode"])
	assert.Equal(t, "Hello! Welcome to Acme. How can I help you today?", body["content"])
}

func TestChat_DemoWhenUnavailable(t *testing.T) {
	env := newTestEnv(t, &fakeChat{name: llm.ProviderGemini, err: llm.ErrUnavailable})

	// messages 是 turns 的别名
	w := env.do(http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"what are your hours?"}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "For our business hours, please check our website or contact us directly.", decode(t, w)["content"])
}

func TestChat_DemoWhenUpstreamFailsBeforeStreaming(t *testing.T) {
	env := newTestEnv(t, &fakeChat{name: llm.ProviderOpenAI, err: errors.New("502 bad gateway")})

	w := env.do(http.MethodPost, "/api/chat",
		`{"turns":[{"role":"user","content":"thanks"}],"config":{"model":"gpt-5.2"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "demo", decode(t, w)["mode"])
}

func TestChat_Stream(t *testing.T) {
	env := newTestEnv(t, &fakeChat{name: llm.ProviderGemini, deltas: []string{"Hel", "lo \"you\""}})

	w := env.do(http.MethodPost, "/api/chat", `{"turns":[{"role":"user","content":"hello"}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t,
		"data: {\"content\":\"Hel\"}\n\n"+
			"data: {\"content\":\"lo \\\"you\\\"\"}\n\n"+
			"data: [DONE]\n\n",
		w.Body.String())
}

func TestChat_StreamWithoutDeltas(t *testing.T) {
	env := newTestEnv(t, &fakeChat{name: llm.ProviderAnthropic})

	w := env.do(http.MethodPost, "/api/chat",
		`{"turns":[{"role":"user","content":"hello"}],"config":{"model":"claude-sonnet-4"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data: [DONE]\n\n", w.Body.String())
}

func TestChat_EmptyTurns(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/chat", `{"turns":[]}`, "X-Session-ID", "s-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "demo", decode(t, w)["mode"])
}

func TestChat_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"turns":`, `not json`, `{"turns":"hello"}`} {
		w := env.do(http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusInternalServerError, w.Code, body)
		assert.Equal(t, "Internal server error", errorOf(t, w), body)
	}
}

func TestChat_BadRequest(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/chat", `{"turns":[{"role":"robot","content":"x"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "role")
}
