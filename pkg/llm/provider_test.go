package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder 记录调用次数的 Embedding 供应商。
type mockEmbedder struct {
	calls int
	err   error
}

var _ EmbeddingProvider = (*mockEmbedder)(nil)

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) Dimension() int { return 3 }
func (m *mockEmbedder) Name() string   { return "mock" }

// mockChat 只返回名称的 Chat 供应商。
type mockChat struct{ name string }

func (m *mockChat) StreamChat(_ context.Context, _ *ChatRequest) (Stream, error) {
	return NewSliceStream("ok"), nil
}
func (m *mockChat) Name() string { return m.name }

func TestRegistry(t *testing.T) {
	RegisterChatProvider("test-chat", func(config map[string]any) (ChatProvider, error) {
		name, _ := config["name"].(string)
		return &mockChat{name: name}, nil
	})
	RegisterEmbeddingProvider("test-embed", func(map[string]any) (EmbeddingProvider, error) {
		return &mockEmbedder{}, nil
	})

	p, err := NewChatProvider("test-chat", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Name())

	e, err := NewEmbeddingProvider("test-embed", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, e.Dimension())

	_, err = NewChatProvider("unknown", nil)
	assert.Error(t, err)
	_, err = NewEmbeddingProvider("unknown", nil)
	assert.Error(t, err)

	assert.Subset(t, ListProviders(), []string{"test-chat", "test-embed"})
}

func TestRoute(t *testing.T) {
	tests := map[string]string{
		"gpt-5.2":          ProviderOpenAI,
		"gpt-4o":           ProviderOpenAI,
		"o1-preview":       ProviderOpenAI,
		"claude-haiku-4.5": ProviderAnthropic,
		"claude-x":         ProviderAnthropic,
		"gemini-3-flash":   ProviderGemini,
		"llama-3":          ProviderOpenAI,
		"":                 ProviderOpenAI,
		"Claude-upper":     ProviderOpenAI,
	}
	for model, want := range tests {
		assert.Equal(t, want, Route(model), model)
	}
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, "claude-3-5-haiku-latest", ResolveModel("claude-haiku-4.5"))
	assert.Equal(t, "claude-sonnet-4-20250514", ResolveModel("claude-sonnet-4"))
	assert.Equal(t, "gemini-2.0-flash", ResolveModel("gemini-3-flash"))
	assert.Equal(t, "gemini-2.0-pro", ResolveModel("gemini-3-pro"))
	assert.Equal(t, "gpt-5.2-mini", ResolveModel("gpt-5.2-mini"))
	assert.Equal(t, "my-custom-model", ResolveModel("my-custom-model"))
}

func TestRouter_Select(t *testing.T) {
	r := NewRouter(&mockChat{name: ProviderOpenAI}, &mockChat{name: ProviderAnthropic}, nil)

	name, p, ok := r.Select("claude-sonnet-4")
	require.True(t, ok)
	assert.Equal(t, ProviderAnthropic, name)
	assert.Equal(t, ProviderAnthropic, p.Name())

	name, _, ok = r.Select("gemini-3-pro")
	assert.False(t, ok)
	assert.Equal(t, ProviderGemini, name)
}

func TestResolveKey(t *testing.T) {
	k, err := ResolveKey("req", "default")
	require.NoError(t, err)
	assert.Equal(t, "req", k)

	k, err = ResolveKey("", "default")
	require.NoError(t, err)
	assert.Equal(t, "default", k)

	_, err = ResolveKey("", "")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSliceStream(t *testing.T) {
	boom := errors.New("boom")
	s := NewSliceStream("a", "b").WithError(boom)

	var got []string
	for s.Next() {
		assert.NoError(t, s.Err())
		got = append(got, s.Delta())
	}
	assert.Equal(t, []string{"a", "b"}, got)
	assert.ErrorIs(t, s.Err(), boom)

	require.NoError(t, s.Close())
	assert.True(t, s.Closed())
}

func TestSliceStream_ErrAfterLastDelta(t *testing.T) {
	boom := errors.New("boom")
	s := NewSliceStream("only").WithError(boom)

	require.True(t, s.Next())
	assert.Equal(t, "only", s.Delta())
	assert.NoError(t, s.Err())

	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), boom)
}

func TestSliceStream_ClosedEarly(t *testing.T) {
	s := NewSliceStream("a", "b").WithError(errors.New("boom"))

	require.True(t, s.Next())
	require.NoError(t, s.Close())
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCachedEmbeddingProvider(t *testing.T) {
	mr, client := setupRedis(t)
	inner := &mockEmbedder{}
	cached := NewCachedEmbeddingProvider(inner, client, &EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       time.Minute,
		KeyPrefix: "test:emb:",
	})

	ctx := context.Background()
	v1, err := cached.Embed(ctx, "hello")
	require.NoError(t, err)
	v2, err := cached.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls, "第二次调用应命中缓存")
	assert.True(t, mr.Exists(cached.CacheKey("hello")))
	assert.Equal(t, time.Minute, mr.TTL(cached.CacheKey("hello")))
}

func TestCachedEmbeddingProvider_CorruptedEntry(t *testing.T) {
	mr, client := setupRedis(t)
	inner := &mockEmbedder{}
	cached := NewCachedEmbeddingProvider(inner, client, nil)

	require.NoError(t, mr.Set(cached.CacheKey("x"), "not-json"))

	v, err := cached.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, v, 3)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbeddingProvider_RedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	mr.Close()

	inner := &mockEmbedder{}
	cached := NewCachedEmbeddingProvider(inner, client, nil)

	v, err := cached.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, v, 3)
}

func TestCachedEmbeddingProvider_ErrorNotCached(t *testing.T) {
	mr, client := setupRedis(t)
	inner := &mockEmbedder{err: errors.New("upstream down")}
	cached := NewCachedEmbeddingProvider(inner, client, nil)

	_, err := cached.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.False(t, mr.Exists(cached.CacheKey("x")))
}
