// Package cache memoises search results per index generation. Concurrent
// identical queries are coalesced with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/resilience"
)

const keyPrefix = "search:"

// Key identifies one cached search.
type Key struct {
	Query      string
	Options    retrieval.Options
	Generation uint64
}

// Stats reports cache effectiveness since start.
type Stats struct {
	Backend string               `json:"backend"`
	Hits    int64                `json:"hits"`
	Misses  int64                `json:"misses"`
	HitRate float64              `json:"hit_rate"`
	Breaker *resilience.Snapshot `json:"breaker,omitempty"`
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps backend. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache", "backend", backend.Name()),
	}
}

func (c *QueryCache) Get(ctx context.Context, key Key) ([]retrieval.Result, bool) {
	k := buildKey(key)
	data, err := c.backend.Get(ctx, k)
	if err != nil {
		if !errors.Is(err, errMiss) {
			c.logger.Warn("cache get failed", "key", k, "error", err)
		}
		c.miss()
		return nil, false
	}
	var results []retrieval.Result
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", key.Query, "key", k)
	return results, true
}

func (c *QueryCache) Set(ctx context.Context, key Key, results []retrieval.Result) {
	k := buildKey(key)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	if err := c.backend.Set(ctx, k, string(data), c.ttl); err != nil {
		c.logger.Warn("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached results for key, or runs compute once for
// all concurrent callers and stores its result. The bool reports a hit.
// Errors from compute are not cached.
func (c *QueryCache) GetOrCompute(ctx context.Context, key Key, compute func() ([]retrieval.Result, error)) ([]retrieval.Result, bool, error) {
	if results, ok := c.Get(ctx, key); ok {
		return results, true, nil
	}
	val, err, _ := c.group.Do(buildKey(key), func() (any, error) {
		results, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]retrieval.Result), false, nil
}

// Invalidate drops every cached search and returns how many were removed.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	s := Stats{Backend: c.backend.Name(), Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	if b, ok := c.backend.(interface{ Breaker() resilience.Snapshot }); ok {
		snap := b.Breaker()
		s.Breaker = &snap
	}
	return s
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey hashes the lowercased, whitespace-collapsed query with every
// option that changes the result.
func buildKey(key Key) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(key.Query)), " ")
	raw := fmt.Sprintf("g=%d|q=%s|n=%d|s=%d|l=%d",
		key.Generation, normalized,
		key.Options.MaxResults, key.Options.NumSnippets, key.Options.SnippetLength)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
