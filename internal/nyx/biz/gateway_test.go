package biz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/nyx/internal/nyx/store"
	"github.com/kart-io/nyx/pkg/llm"
)

func userTurn(content string) []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: content}}
}

func TestGateway_DemoWhenProviderMissing(t *testing.T) {
	g := NewGateway(llm.NewRouter(), nil, nil)

	reply, err := g.Chat(context.Background(), &ChatInput{
		Turns:  userTurn("Hello"),
		Config: ChatConfig{BusinessName: "Acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, ModeDemo, reply.Mode)
	assert.Contains(t, reply.Content, "Acme")
}

func TestGateway_DemoWhenUnavailable(t *testing.T) {
	p := failing(llm.ProviderGemini, llm.ErrUnavailable)
	g := NewGateway(llm.NewRouter(p), nil, nil)

	reply, err := g.Chat(context.Background(), &ChatInput{Turns: userTurn("What are your hours?")})
	require.NoError(t, err)
	assert.Equal(t, ModeDemo, reply.Mode)
	assert.Equal(t, "For our business hours, please check our website or contact us directly.", reply.Content)
}

func TestGateway_DemoWhenFailingBeforeFirstDelta(t *testing.T) {
	p := &fakeChat{name: llm.ProviderOpenAI, stream: func() (llm.Stream, error) {
		return llm.NewSliceStream().WithError(errors.New("upstream 502")), nil
	}}
	g := NewGateway(llm.NewRouter(p), nil, nil)

	reply, err := g.Chat(context.Background(), &ChatInput{
		Turns:  userTurn("thanks"),
		Config: ChatConfig{Model: "gpt-5.2"},
	})
	require.NoError(t, err)
	assert.Equal(t, ModeDemo, reply.Mode)
	assert.Equal(t, "You're welcome! Is there anything else I can help with?", reply.Content)
}

func TestGateway_Stream(t *testing.T) {
	p := streaming(llm.ProviderGemini, "Hel", "lo", "!")
	g := NewGateway(llm.NewRouter(p), nil, nil)

	reply, err := g.Chat(context.Background(), &ChatInput{Turns: userTurn("hi")})
	require.NoError(t, err)
	require.Equal(t, ModeStream, reply.Mode)
	assert.Equal(t, llm.ProviderGemini, reply.Provider)

	req := p.lastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "gemini-2.0-flash", req.Model)
	assert.Equal(t, DefaultSystemPrompt, req.SystemPrompt)

	e := &recordingEmitter{}
	require.NoError(t, g.Emit(reply, e))
	assert.Equal(t, []string{"Hel", "lo", "!"}, e.deltas)
	assert.True(t, e.done)
}

func TestGateway_ZeroDeltasStillTerminated(t *testing.T) {
	p := streaming(llm.ProviderAnthropic)
	g := NewGateway(llm.NewRouter(p), nil, nil)

	reply, err := g.Chat(context.Background(), &ChatInput{
		Turns:  userTurn("hi"),
		Config: ChatConfig{Model: "claude-sonnet-4"},
	})
	require.NoError(t, err)
	require.Equal(t, ModeStream, reply.Mode)
	assert.Equal(t, "claude-sonnet-4-20250514", p.lastRequest().Model)

	e := &recordingEmitter{}
	require.NoError(t, g.Emit(reply, e))
	assert.Empty(t, e.deltas)
	assert.True(t, e.done)
}

func TestGateway_MidStreamFailureTruncates(t *testing.T) {
	var s *llm.SliceStream
	p := &fakeChat{name: llm.ProviderOpenAI, stream: func() (llm.Stream, error) {
		s = llm.NewSliceStream("a", "b").WithError(errors.New("connection reset"))
		return s, nil
	}}
	g := NewGateway(llm.NewRouter(p), nil, nil)

	reply, err := g.Chat(context.Background(), &ChatInput{
		Turns:  userTurn("hi"),
		Config: ChatConfig{Model: "gpt-5.2"},
	})
	require.NoError(t, err)

	e := &recordingEmitter{}
	err = g.Emit(reply, e)
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, e.deltas)
	assert.False(t, e.done)
	assert.True(t, s.Closed())
}

func TestGateway_EmitterFailureStops(t *testing.T) {
	p := streaming(llm.ProviderGemini, "a", "b", "c")
	g := NewGateway(llm.NewRouter(p), nil, nil)

	reply, err := g.Chat(context.Background(), &ChatInput{Turns: userTurn("hi")})
	require.NoError(t, err)

	e := &recordingEmitter{failOn: 2}
	require.Error(t, g.Emit(reply, e))
	assert.Equal(t, []string{"a"}, e.deltas)
	assert.False(t, e.done)
}

func TestGateway_EmptyTurns(t *testing.T) {
	g := NewGateway(llm.NewRouter(), nil, nil)

	reply, err := g.Chat(context.Background(), &ChatInput{})
	require.NoError(t, err)
	assert.Equal(t, ModeDemo, reply.Mode)
	assert.Equal(t, defaultFallbackReply, reply.Content)
}

func TestGateway_RetrievalAugmentsPrompt(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory(t)
	embedder := NewEmbeddingService(topicEmbedder())
	ingest := NewIngestService(f, NewChunker(500, 20), embedder, nil)
	_, err := ingest.Ingest(ctx, &IngestInput{TenantID: "bot-1", Name: "faq", Content: "Our refund window is 30 days."})
	require.NoError(t, err)
	_, err = ingest.Ingest(ctx, &IngestInput{TenantID: "bot-1", Name: "ship", Content: "We offer free shipping."})
	require.NoError(t, err)

	p := streaming(llm.ProviderGemini, "ok")
	retriever := NewRetriever(f.Searcher(), embedder, nil, nil)
	g := NewGateway(llm.NewRouter(p), retriever, nil)

	reply, err := g.Chat(ctx, &ChatInput{
		TenantID: "bot-1",
		Turns:    userTurn("what is the refund policy?"),
		Config:   ChatConfig{SystemPrompt: "Be brief."},
	})
	require.NoError(t, err)
	defer reply.Close()

	prompt := p.lastRequest().SystemPrompt
	assert.True(t, strings.HasPrefix(prompt, "Be brief.\n\n## Relevant Knowledge Base Information:\n"))
	assert.Contains(t, prompt, "Our refund window is 30 days.")
	assert.NotContains(t, prompt, "shipping")
}

func TestGateway_NoTenantSkipsRetrieval(t *testing.T) {
	emb := topicEmbedder()
	searcher := &countingSearcher{}
	retriever := NewRetriever(searcher, NewEmbeddingService(emb), nil, nil)
	p := streaming(llm.ProviderGemini, "ok")
	g := NewGateway(llm.NewRouter(p), retriever, nil)

	reply, err := g.Chat(context.Background(), &ChatInput{
		Turns:  userTurn("refund?"),
		Config: ChatConfig{SystemPrompt: "Be brief."},
	})
	require.NoError(t, err)
	defer reply.Close()

	assert.Equal(t, "Be brief.", p.lastRequest().SystemPrompt)
	assert.Zero(t, searcher.calls)
	assert.Zero(t, emb.callCount())
}

func TestGateway_SessionSupersedes(t *testing.T) {
	p := streaming(llm.ProviderGemini, "a", "b")
	sessions := NewSessions()
	g := NewGateway(llm.NewRouter(p), nil, sessions)

	first, err := g.Chat(context.Background(), &ChatInput{SessionID: "s1", Turns: userTurn("hi")})
	require.NoError(t, err)
	second, err := g.Chat(context.Background(), &ChatInput{SessionID: "s1", Turns: userTurn("hi again")})
	require.NoError(t, err)

	e1 := &recordingEmitter{}
	err = g.Emit(first, e1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e1.deltas)
	assert.False(t, e1.done)

	e2 := &recordingEmitter{}
	require.NoError(t, g.Emit(second, e2))
	assert.Equal(t, []string{"a", "b"}, e2.deltas)
	assert.True(t, e2.done)
	assert.Zero(t, sessions.Len())
}

func TestGateway_CancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeChat{name: llm.ProviderGemini, stream: func() (llm.Stream, error) {
		cancel()
		return nil, context.Canceled
	}}
	g := NewGateway(llm.NewRouter(p), nil, nil)

	reply, err := g.Chat(ctx, &ChatInput{Turns: userTurn("hi")})
	assert.Nil(t, reply)
	assert.ErrorIs(t, err, context.Canceled)
}

type countingSearcher struct {
	calls int
}

func (c *countingSearcher) SimilaritySearch(context.Context, string, []float32, float64, int) ([]store.Match, error) {
	c.calls++
	return nil, nil
}
