// Package handler serves the search, index and cache endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval/index"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/session"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/document-query/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/tracing"
)

// Index is the part of the session store the search endpoints use.
type Index interface {
	Search(query string, opts retrieval.Options) ([]retrieval.Result, error)
	Index() []index.TermEntry
	Stats() session.Stats
	Generation() uint64
}

// SearchResponse is the body of GET /api/v1/search.
type SearchResponse struct {
	Query      string             `json:"query"`
	Results    []retrieval.Result `json:"results"`
	Total      int                `json:"total"`
	CacheHit   bool               `json:"cache_hit"`
	Generation uint64             `json:"generation"`
	LatencyMs  float64            `json:"latency_ms"`
}

// IndexStatsResponse is the body of GET /api/v1/index/stats. Sample holds
// the first termsLimit terms in order.
type IndexStatsResponse struct {
	session.Stats
	Sample []index.TermEntry `json:"sample,omitempty"`
}

const termsLimit = 50

type Handler struct {
	index     Index
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	tracer    *tracing.Tracer
	cfg       config.SearchConfig
	logger    *slog.Logger
}

type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option { return func(h *Handler) { h.cache = c } }
func WithCollector(c *analytics.Collector) Option { return func(h *Handler) { h.collector = c } }
func WithMetrics(m *metrics.Metrics) Option { return func(h *Handler) { h.metrics = m } }
func WithTracer(t *tracing.Tracer) Option { return func(h *Handler) { h.tracer = t } }

func New(idx Index, cfg config.SearchConfig, opts ...Option) *Handler {
	h := &Handler{
		index:  idx,
		cfg:    cfg,
		logger: slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Search serves GET /api/v1/search?q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.cfg.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = min(parsed, h.cfg.MaxLimit)
	}

	ctx, span := h.tracer.Start(ctx, "search", logger.RequestID(ctx))
	defer span.End()
	span.SetAttr("query", query)

	opts := retrieval.Options{
		MaxResults:    limit,
		NumSnippets:   h.cfg.NumSnippets,
		SnippetLength: h.cfg.SnippetLength,
	}
	results, cacheHit, err := h.execute(ctx, query, opts)
	latency := time.Since(start)

	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.observe(query, 0, latency, cacheHit, err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "search failed")
		return
	}
	h.observe(query, len(results), latency, cacheHit, nil)
	span.SetAttr("results", len(results))

	log.Info("search completed",
		"query", query,
		"returned", len(results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:      query,
		Results:    results,
		Total:      len(results),
		CacheHit:   cacheHit,
		Generation: h.index.Generation(),
		LatencyMs:  float64(latency.Microseconds()) / 1000,
	})
}

func (h *Handler) execute(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Result, bool, error) {
	compute := func() ([]retrieval.Result, error) {
		_, span := tracing.StartChild(ctx, "retrieve")
		defer span.End()
		return h.index.Search(query, opts)
	}
	if h.cache == nil {
		results, err := compute()
		return results, false, err
	}
	_, span := tracing.StartChild(ctx, "cache")
	defer span.End()
	key := cache.Key{Query: query, Options: opts, Generation: h.index.Generation()}
	results, hit, err := h.cache.GetOrCompute(ctx, key, compute)
	span.SetAttr("hit", hit)
	return results, hit, err
}

func (h *Handler) observe(query string, n int, latency time.Duration, cacheHit bool, err error) {
	if h.metrics != nil {
		outcome := "ok"
		switch {
		case err != nil:
			outcome = "error"
		case n == 0:
			outcome = "empty"
		}
		status := "none"
		if h.cache != nil {
			status = "miss"
			if cacheHit {
				status = "hit"
			}
		}
		h.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
		h.metrics.SearchLatency.WithLabelValues(status).Observe(latency.Seconds())
		if err == nil {
			h.metrics.SearchResultsCount.Observe(float64(n))
		}
	}
	if h.collector != nil {
		h.collector.TrackSearch(analytics.SearchEvent{
			Query:     strings.ToLower(query),
			Results:   n,
			LatencyMs: float64(latency.Microseconds()) / 1000,
			CacheHit:  cacheHit,
			Failed:    err != nil,
		})
	}
}

// IndexStats serves GET /api/v1/index/stats.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	entries := h.index.Index()
	if len(entries) > termsLimit {
		entries = entries[:termsLimit]
	}
	h.writeJSON(w, http.StatusOK, IndexStatsResponse{
		Stats:  h.index.Stats(),
		Sample: entries,
	})
}

// CacheStats serves GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"enabled": true,
		"stats":   h.cache.Stats(),
	})
}

// CacheInvalidate serves POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"invalidated": 0})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"invalidated": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
