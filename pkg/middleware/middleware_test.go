package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/metrics"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestMetricsRecordsNormalizedRoute(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/documents/abc123/analysis", nil))
	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/documents/{id}/analysis", "404"))
	assert.Equal(t, 1.0, got)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/api/v1/search", normalizePath("/api/v1/search"))
	assert.Equal(t, "/api/v1/documents/", normalizePath("/api/v1/documents/"))
	assert.Equal(t, "/api/v1/documents/{id}", normalizePath("/api/v1/documents/d1"))
	assert.Equal(t, "/api/v1/documents/{id}/answer", normalizePath("/api/v1/documents/d1/answer"))
}

func TestTimeout(t *testing.T) {
	slow := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		_, _ = w.Write([]byte("late"))
	}))
	rec := httptest.NewRecorder()
	slow.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "request timeout")

	fast := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Test", "1")
		okHandler(w, nil)
	}))
	rec = httptest.NewRecorder()
	fast.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCORS(t *testing.T) {
	h := CORS(DefaultCORSConfig([]string{"https://app.example"}))(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(ratelimit.New(ctx, 1, time.Minute))(http.HandlerFunc(okHandler))

	send := func(path, addr string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("/api/v1/search", "10.0.0.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, send("/api/v1/search", "10.0.0.1:5001"))
	assert.Equal(t, http.StatusOK, send("/api/v1/search", "10.0.0.2:5000"))
	assert.Equal(t, http.StatusOK, send("/health/live", "10.0.0.1:5000"))
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(ratelimit.New(ctx, 2, time.Minute))(http.HandlerFunc(okHandler))

	allowed := 0
	for i := range 50 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}

func TestRateLimitTrustedProxy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	h := RateLimit(ratelimit.New(ctx, 1, time.Minute), trusted...)(http.HandlerFunc(okHandler))

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
		req.RemoteAddr = "10.1.2.3:8000"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1"))
	// A client-supplied leftmost hop does not change the key.
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.9, 192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1, 10.9.9.9"))
	assert.Equal(t, http.StatusOK, send("192.0.2.2"))
}

func TestClientKey(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	tests := []struct {
		name    string
		remote  string
		xff     string
		trusted []netip.Prefix
		want    string
	}{
		{"peer without proxies", "192.0.2.1:5000", "198.51.100.1", nil, "192.0.2.1"},
		{"untrusted peer", "192.0.2.1:5000", "198.51.100.1", trusted, "192.0.2.1"},
		{"trusted peer", "10.0.0.5:5000", "198.51.100.1", trusted, "198.51.100.1"},
		{"trusted chain", "10.0.0.5:5000", "198.51.100.1, 10.0.0.6", trusted, "198.51.100.1"},
		{"trusted peer without header", "10.0.0.5:5000", "", trusted, "10.0.0.5"},
		{"remote without port", "192.0.2.1", "", nil, "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, clientKey(req, tt.trusted))
		})
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	Chain(http.HandlerFunc(okHandler), mk("outer"), mk("inner")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}
