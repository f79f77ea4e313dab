package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageHTML = `<!DOCTYPE html>
<html><head><title>Shipping Policy</title></head>
<body><article>
<h1>Shipping Policy</h1>
<p>Orders placed before noon ship the same business day from our warehouse. Standard delivery
takes three to five business days and express delivery arrives the next business day.</p>
<p>International orders are shipped with tracking and may be subject to customs duties that are
collected by the carrier on delivery. We do not ship to post office boxes.</p>
</article></body></html>`

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/shipping":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(pageHTML))
		case "/data.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScrape_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/scrape", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "URL is required", errorOf(t, w))

	w = env.do(http.MethodPost, "/api/scrape", `{"url":"ftp://example.com/file"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid URL", errorOf(t, w))

	w = env.do(http.MethodPost, "/api/scrape", `{"url":"https://example.com","ingest":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScrape_Page(t *testing.T) {
	env := newTestEnv(t)
	srv := newPageServer(t)

	w := env.do(http.MethodPost, "/api/scrape", `{"url":"`+srv.URL+`/shipping"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Shipping Policy", body["title"])
	assert.Contains(t, body["content"], "Orders placed before noon")
	assert.NotContains(t, body, "document")
}

func TestScrape_Errors(t *testing.T) {
	env := newTestEnv(t)
	srv := newPageServer(t)

	w := env.do(http.MethodPost, "/api/scrape", `{"url":"`+srv.URL+`/missing"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "Failed to fetch URL: 404")

	w = env.do(http.MethodPost, "/api/scrape", `{"url":"`+srv.URL+`/data.json"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "URL must point to an HTML page", errorOf(t, w))
}

func TestScrape_Ingest(t *testing.T) {
	env := newTestEnv(t)
	srv := newPageServer(t)

	w := env.do(http.MethodPost, "/api/scrape", `{"url":"`+srv.URL+`/shipping","ingest":true,"tenantId":"bot-9"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode(t, w)["document"].(map[string]any)
	doc := result["document"].(map[string]any)
	assert.Equal(t, "url", doc["sourceType"])
	assert.Equal(t, srv.URL+"/shipping", doc["sourceUrl"])
	assert.Equal(t, "Shipping Policy", doc["name"])

	w = env.do(http.MethodGet, "/api/documents?tenantId=bot-9", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["documents"], 1)
}
