package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
)

var defaultLoadQueries = []string{
	"document search",
	"inverted index",
	"query ranking",
	"snippet extraction",
	"text normalization",
	"stemming words",
	"cache hit rate",
	"analytics events",
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Drive concurrent searches against a running server",
	Long: `Loadtest cycles through a list of queries from several workers against
GET /api/v1/search for a fixed duration, then reports throughput, latency
percentiles, cache hits and status codes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL, _ := cmd.Flags().GetString("url")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		duration, _ := cmd.Flags().GetDuration("duration")
		queries, _ := cmd.Flags().GetStringSlice("query")
		if len(queries) == 0 {
			queries = defaultLoadQueries
		}
		if concurrency <= 0 {
			return fmt.Errorf("concurrency must be positive, got %d", concurrency)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "target %s, %d workers, %s, %d queries\n", baseURL, concurrency, duration, len(queries))

		ctx, cancel := context.WithTimeout(cmd.Context(), duration)
		defer cancel()
		start := time.Now()
		stats := runLoad(ctx, newLoadClient(concurrency), baseURL, queries, concurrency)
		stats.report(out, time.Since(start))
		if stats.total.Load() == 0 {
			return errors.New("no requests completed; is the server running?")
		}
		return nil
	},
}

func init() {
	loadtestCmd.Flags().String("url", "http://localhost:8080", "base URL of the server")
	loadtestCmd.Flags().IntP("concurrency", "c", 10, "number of concurrent workers")
	loadtestCmd.Flags().DurationP("duration", "d", 30*time.Second, "test duration")
	loadtestCmd.Flags().StringSliceP("query", "q", nil, "query to send (repeatable; defaults to a built-in list)")
	rootCmd.AddCommand(loadtestCmd)
}

type loadStats struct {
	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newLoadStats() *loadStats {
	return &loadStats{statusCodes: make(map[int]int64)}
}

func (s *loadStats) record(d time.Duration, status int, cacheHit bool, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.succeeded.Add(1)
	} else {
		s.failed.Add(1)
	}
	if cacheHit {
		s.cacheHits.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
	s.mu.Unlock()
}

func newLoadClient(concurrency int) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// runLoad keeps every worker issuing searches until ctx is done. Requests
// cut off by ctx itself are not counted.
func runLoad(ctx context.Context, client *http.Client, baseURL string, queries []string, concurrency int) *loadStats {
	stats := newLoadStats()
	var wg conc.WaitGroup
	for w := 0; w < concurrency; w++ {
		next := w
		wg.Go(func() {
			for ctx.Err() == nil {
				query := queries[next%len(queries)]
				next++
				start := time.Now()
				status, cacheHit, err := searchOnce(ctx, client, baseURL, query)
				if ctx.Err() != nil {
					return
				}
				stats.record(time.Since(start), status, cacheHit, err)
			}
		})
	}
	wg.Wait()
	return stats
}

func searchOnce(ctx context.Context, client *http.Client, baseURL, query string) (int, bool, error) {
	u := fmt.Sprintf("%s/api/v1/search?q=%s&limit=10", baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	if resp.StatusCode == http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(&body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, body.CacheHit, nil
}

func (s *loadStats) report(w io.Writer, elapsed time.Duration) {
	total := s.total.Load()
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %s\n", humanize.Comma(total))
	fmt.Fprintf(w, "Successful:      %s\n", humanize.Comma(s.succeeded.Load()))
	fmt.Fprintf(w, "Failed:          %s\n", humanize.Comma(s.failed.Load()))
	fmt.Fprintf(w, "Cache Hits:      %s\n", humanize.Comma(s.cacheHits.Load()))
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(s.failed.Load())/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/elapsed.Seconds())
	}

	s.mu.Lock()
	latencies := append([]time.Duration(nil), s.latencies...)
	codes := make([]int, 0, len(s.statusCodes))
	for code := range s.statusCodes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(s.statusCodes))
	for code, n := range s.statusCodes {
		counts[code] = n
	}
	s.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Fprintln(w, "\n=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", sum/time.Duration(len(latencies)))
		fmt.Fprintf(w, "P50:    %s\n", durationPercentile(latencies, 50))
		fmt.Fprintf(w, "P95:    %s\n", durationPercentile(latencies, 95))
		fmt.Fprintf(w, "P99:    %s\n", durationPercentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
	}

	sort.Ints(codes)
	fmt.Fprintln(w, "\n=== Status Codes ===")
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %s\n", code, humanize.Comma(counts[code]))
	}
}

func durationPercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
