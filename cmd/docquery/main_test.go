package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fox.txt"),
		[]byte("The quick brown fox jumps over the lazy dog. Foxes are quick."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat.txt"),
		[]byte("A cat sleeps all day. Cats ignore the dog."), 0o644))

	out := run(t, "search", "--files", dir, "fox")
	assert.Contains(t, out, "1. fox.txt")
	assert.Contains(t, out, "**fox**")
	assert.NotContains(t, out, "cat.txt")

	out = run(t, "search", "--files", dir, "zebra")
	assert.Contains(t, out, `No documents match "zebra".`)

	out = run(t, "ask", "--files", dir, "--doc", "cat.txt", "what", "does", "the", "cat", "do")
	assert.Contains(t, out, "cat.txt")
	assert.Contains(t, out, "A cat sleeps all day.")
	assert.NotContains(t, out, "fox.txt")

	out = run(t, "insights", "--files", dir)
	assert.Contains(t, out, "Common themes")
}

func TestFilterByName(t *testing.T) {
	docs := []ingestion.Document{
		{ID: "a1", Filename: "notes.txt"},
		{ID: "b2", Filename: "report.pdf"},
	}
	assert.Equal(t, docs[:1], filterByName(docs, "notes.txt"))
	assert.Equal(t, docs[1:], filterByName(docs, "b2"))
	assert.Empty(t, filterByName(docs, "missing.txt"))
}

func TestRunLoad(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		n := hits.Add(1)
		fmt.Fprintf(w, `{"cache_hit":%t}`, n%2 == 0)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	stats := runLoad(ctx, srv.Client(), srv.URL, []string{"fox", "broken"}, 2)

	total := stats.total.Load()
	require.Positive(t, total)
	assert.Equal(t, total, stats.succeeded.Load()+stats.failed.Load())
	assert.Positive(t, stats.failed.Load())
	assert.Positive(t, stats.cacheHits.Load())

	var out bytes.Buffer
	stats.report(&out, time.Second)
	assert.Contains(t, out.String(), "=== Latency ===")
	assert.Contains(t, out.String(), "  500: ")
}

func TestDurationPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), durationPercentile(sorted, 50))
	assert.Equal(t, time.Duration(10), durationPercentile(sorted, 99))
	assert.Equal(t, time.Duration(0), durationPercentile(nil, 50))
}

func TestRunServerWaitsForInFlightRequests(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		finished.Store(true)
		w.WriteHeader(http.StatusOK)
	})}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- runServer(ctx, server, ln, 5*time.Second) }()
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err == nil {
			resp.Body.Close()
		}
	}()

	<-entered
	cancel()
	select {
	case <-served:
		t.Fatal("server returned while a request was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-served)
	assert.True(t, finished.Load())
}
