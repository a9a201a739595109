package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/session"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/metrics"
)

var searchCfg = config.SearchConfig{DefaultLimit: 2, MaxLimit: 2, NumSnippets: 3, SnippetLength: 200}

func newStore() *session.Store {
	s := session.New()
	s.Add(
		ingestion.Document{ID: "d1", Filename: "fox.txt", RawText: "The quick brown fox jumps. The fox runs fast."},
		ingestion.Document{ID: "d2", Filename: "dog.txt", RawText: "A lazy dog sleeps. The fox watches."},
		ingestion.Document{ID: "d3", Filename: "cat.txt", RawText: "Cats and foxes rarely meet."},
	)
	return s
}

func get(t *testing.T, h http.HandlerFunc, target string) (*httptest.ResponseRecorder, SearchResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var resp SearchResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestSearch(t *testing.T) {
	h := New(newStore(), searchCfg)

	rec, resp := get(t, h.Search, "/api/v1/search?q=fox")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "d1", resp.Results[0].DocID)
	assert.Equal(t, []string{
		"The quick brown **fox** jumps.",
		"The **fox** runs fast.",
	}, resp.Results[0].Snippets)
	assert.False(t, resp.CacheHit)
	assert.EqualValues(t, 1, resp.Generation)
}

func TestSearchLimits(t *testing.T) {
	h := New(newStore(), searchCfg)

	_, resp := get(t, h.Search, "/api/v1/search?q=fox&limit=1")
	assert.Len(t, resp.Results, 1)

	_, resp = get(t, h.Search, "/api/v1/search?q=fox+cat&limit=50")
	assert.Len(t, resp.Results, 2)

	_, resp = get(t, h.Search, "/api/v1/search?q=fox&limit=0")
	assert.Empty(t, resp.Results)

	for _, target := range []string{
		"/api/v1/search",
		"/api/v1/search?q=%20%20",
		"/api/v1/search?q=fox&limit=-1",
		"/api/v1/search?q=fox&limit=abc",
	} {
		rec, _ := get(t, h.Search, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestSearchNoMatch(t *testing.T) {
	h := New(newStore(), searchCfg)
	rec, resp := get(t, h.Search, "/api/v1/search?q=the+and")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Results)
}

func TestSearchUsesCache(t *testing.T) {
	store := newStore()
	m := metrics.New(prometheus.NewRegistry())
	qc := cache.New(cache.NewLocalBackend(time.Minute), time.Minute, m)
	h := New(store, searchCfg, WithCache(qc), WithMetrics(m))

	_, first := get(t, h.Search, "/api/v1/search?q=fox")
	_, second := get(t, h.Search, "/api/v1/search?q=FOX")
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Results[0].DocID, second.Results[0].DocID)

	store.Add(ingestion.Document{ID: "d4", Filename: "more.txt", RawText: "fox fox fox"})
	_, third := get(t, h.Search, "/api/v1/search?q=fox")
	assert.False(t, third.CacheHit)
	assert.EqualValues(t, 2, third.Generation)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Contains(t, rec.Body.String(), `"hits":1`)

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"invalidated":2}`, rec.Body.String())
}

func TestCacheEndpointsWithoutCache(t *testing.T) {
	h := New(newStore(), searchCfg)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.JSONEq(t, `{"invalidated":0}`, rec.Body.String())
}

func TestIndexStats(t *testing.T) {
	h := New(newStore(), searchCfg)
	rec := httptest.NewRecorder()
	h.IndexStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/index/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Documents int `json:"documents"`
		Terms     int `json:"terms"`
		Sample    []struct {
			Term string `json:"term"`
		} `json:"sample"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Documents)
	assert.Equal(t, resp.Terms, len(resp.Sample))
	assert.Equal(t, "brown", resp.Sample[0].Term)
}
