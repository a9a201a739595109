// Package router wires every API route and applies the middleware chain.
package router

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/auth/ratelimit"
	inghandler "github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/insights"
	searchhandler "github.com/Adithya-Monish-Kumar-K/document-query/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/middleware"
)

// Handlers groups the endpoint implementations. Limiter and Metrics may be
// nil. TrustedProxies lists the peers whose X-Forwarded-For the limiter
// believes.
type Handlers struct {
	Documents      *inghandler.Handler
	Search         *searchhandler.Handler
	Insights       *insights.Handler
	Analytics      *analytics.Handler
	Health         *health.Checker
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	TrustedProxies []netip.Prefix
	RequestTimeout time.Duration
}

// New builds the API handler.
//
// Route table:
//
//	POST   /api/v1/documents               upload (multipart "files")
//	GET    /api/v1/documents               list documents
//	DELETE /api/v1/documents               remove all documents
//	GET    /api/v1/documents/{id}          get document
//	DELETE /api/v1/documents/{id}          remove document
//	GET    /api/v1/documents/{id}/analysis document analysis
//	POST   /api/v1/documents/{id}/answer   answer a question from one document
//	GET    /api/v1/search                  ranked search with snippets
//	GET    /api/v1/index/stats             index size and term sample
//	GET    /api/v1/insights                cross-document insights
//	GET    /api/v1/analytics               aggregated search analytics
//	GET    /api/v1/cache/stats             query cache stats
//	POST   /api/v1/cache/invalidate        drop cached searches
//	GET    /health/live                    liveness
//	GET    /health/ready                   readiness
//
// Middleware chain (outermost first):
//
//	RequestID → Metrics → CORS → RateLimit → Timeout → mux
func New(h Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", h.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", h.Health.ReadyHandler())

	mux.HandleFunc("POST /api/v1/documents", h.Documents.Upload)
	mux.HandleFunc("GET /api/v1/documents", h.Documents.List)
	mux.HandleFunc("DELETE /api/v1/documents", h.Documents.Clear)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Documents.Get)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.Documents.Delete)

	mux.HandleFunc("GET /api/v1/documents/{id}/analysis", h.Insights.Analysis)
	mux.HandleFunc("POST /api/v1/documents/{id}/answer", h.Insights.Answer)
	mux.HandleFunc("GET /api/v1/insights", h.Insights.Insights)

	mux.HandleFunc("GET /api/v1/search", h.Search.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.Search.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.Search.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.Search.CacheInvalidate)

	mux.HandleFunc("GET /api/v1/analytics", h.Analytics.Stats)

	mws := []func(http.Handler) http.Handler{middleware.RequestID}
	if h.Metrics != nil {
		mws = append(mws, middleware.Metrics(h.Metrics))
	}
	if len(h.AllowedOrigins) > 0 {
		mws = append(mws, middleware.CORS(middleware.DefaultCORSConfig(h.AllowedOrigins)))
	}
	if h.Limiter != nil {
		mws = append(mws, middleware.RateLimit(h.Limiter, h.TrustedProxies...))
	}
	mws = append(mws, middleware.Timeout(h.RequestTimeout))

	return middleware.Chain(mux, mws...)
}
