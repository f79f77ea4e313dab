package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/nyx/internal/nyx/biz"
	"github.com/kart-io/nyx/internal/nyx/handler"
	"github.com/kart-io/nyx/internal/nyx/router"
	"github.com/kart-io/nyx/internal/nyx/store"
	"github.com/kart-io/nyx/pkg/llm"
	httpopts "github.com/kart-io/nyx/pkg/options/http"
	"github.com/kart-io/nyx/pkg/utils/json"
)

// fakeChat 返回预设增量的供应商。
type fakeChat struct {
	name   string
	deltas []string
	err    error
}

func (f *fakeChat) StreamChat(context.Context, *llm.ChatRequest) (llm.Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return llm.NewSliceStream(f.deltas...), nil
}

func (f *fakeChat) Name() string { return f.name }

type testEnv struct {
	engine  http.Handler
	factory store.Factory
}

func newTestEnv(t *testing.T, providers ...llm.ChatProvider) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	factory := store.NewFactory(db, nil)
	require.NoError(t, factory.AutoMigrate(context.Background()))

	embeddings := biz.NewEmbeddingService(nil)
	retriever := biz.NewRetriever(factory.Searcher(), embeddings, nil, nil)
	gateway := biz.NewGateway(llm.NewRouter(providers...), retriever, biz.NewSessions())
	ingest := biz.NewIngestService(factory, biz.NewChunker(10, -1), embeddings, nil)

	opts := httpopts.NewOptions()
	opts.Mode = "test"
	engine := router.New(opts, &router.Handlers{
		Chat:     handler.NewChatHandler(gateway),
		Document: handler.NewDocumentHandler(ingest),
		Scrape:   handler.NewScrapeHandler(biz.NewScraper(nil), ingest),
		Health:   handler.NewHealthHandler(map[string]handler.Pinger{"database": factory}),
	})
	return &testEnv{engine: engine, factory: factory}
}

func (e *testEnv) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	msg, _ := decode(t, w)["error"].(string)
	return msg
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = env.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nyx_")
}

func TestNoRoute(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, errorOf(t, w))
}
