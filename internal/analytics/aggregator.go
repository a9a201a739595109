// Package analytics tracks search and indexing activity. Events flow from a
// Collector to a Publisher, which is either Kafka or an Aggregator directly,
// and the Aggregator keeps running totals for the stats endpoint.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	FailedSearches    int64        `json:"failed_searches"`
	DocumentsIndexed  int64        `json:"documents_indexed"`
	DocumentsRemoved  int64        `json:"documents_removed"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	IndexGeneration   uint64       `json:"index_generation"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      float64      `json:"p50_latency_ms"`
	P95LatencyMs      float64      `json:"p95_latency_ms"`
	P99LatencyMs      float64      `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type Aggregator struct {
	mu                sync.RWMutex
	stats             AggregatedStats
	latencies         []float64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	topN              int
	startTime         time.Time
	now               func() time.Time
	logger            *slog.Logger
}

// NewAggregator keeps the topN most frequent queries. Latency percentiles are
// computed over the most recent samples only.
func NewAggregator(topN int) *Aggregator {
	if topN <= 0 {
		topN = 10
	}
	return &Aggregator{
		latencies:         make([]float64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		topN:              topN,
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// PublishBatch records events in process, making the Aggregator usable as
// the Collector's Publisher when Kafka is disabled.
func (a *Aggregator) PublishBatch(_ context.Context, events []kafka.Event) error {
	for _, e := range events {
		switch v := e.Value.(type) {
		case SearchEvent:
			a.RecordSearch(v)
		case IndexEvent:
			a.RecordIndex(v)
		default:
			a.logger.Warn("unknown analytics event", "type", e.Type)
		}
	}
	return nil
}

// HandleMessage decodes a Kafka message by its event-type header. Undecodable
// messages are logged and skipped so the consumer commits past them.
func (a *Aggregator) HandleMessage(_ context.Context, msg kafka.Message) error {
	var err error
	switch EventType(msg.Type) {
	case EventSearch:
		var e SearchEvent
		if e, err = kafka.DecodeJSON[SearchEvent](msg.Value); err == nil {
			a.RecordSearch(e)
		}
	case EventIndexDocument, EventRemoveDocument, EventClearDocuments:
		var e IndexEvent
		if e, err = kafka.DecodeJSON[IndexEvent](msg.Value); err == nil {
			a.RecordIndex(e)
		}
	default:
		err = fmt.Errorf("unknown event type %q", msg.Type)
	}
	if err != nil {
		a.logger.Error("failed to decode analytics event", "type", msg.Type, "error", err)
	}
	return nil
}

func (a *Aggregator) RecordSearch(e SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalSearches++
	if e.Failed {
		a.stats.FailedSearches++
		return
	}
	if e.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	a.addLatency(e.LatencyMs)
	a.queryCounts[e.Query]++
	if e.Results == 0 {
		a.stats.ZeroResultCount++
		a.zeroResultQueries[e.Query]++
	}
}

func (a *Aggregator) RecordIndex(e IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch e.Type {
	case EventIndexDocument:
		a.stats.DocumentsIndexed++
	case EventRemoveDocument, EventClearDocuments:
		a.stats.DocumentsRemoved++
	}
	if e.Generation > a.stats.IndexGeneration {
		a.stats.IndexGeneration = e.Generation
	}
}

// addLatency keeps a ring of the latest samples. Callers hold a.mu.
func (a *Aggregator) addLatency(ms float64) {
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, ms)
		return
	}
	a.latencies[a.next] = ms
	a.next = (a.next + 1) % maxLatencySamples
}

// Restore seeds the counters from a persisted snapshot.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalSearches = s.TotalSearches
	a.stats.FailedSearches = s.FailedSearches
	a.stats.DocumentsIndexed = s.DocumentsIndexed
	a.stats.DocumentsRemoved = s.DocumentsRemoved
	a.stats.CacheHits = s.CacheHits
	a.stats.CacheMisses = s.CacheMisses
	a.stats.ZeroResultCount = s.ZeroResultCount
	for _, q := range s.TopQueries {
		a.queryCounts[q.Query] += q.Count
	}
	for _, q := range s.ZeroResultQueries {
		a.zeroResultQueries[q.Query] += q.Count
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	if len(a.latencies) > 0 {
		sorted := make([]float64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Float64s(sorted)

		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, a.topN)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, a.topN)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
