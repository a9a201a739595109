package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/auth/ratelimit"
	inghandler "github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/insights"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/router"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/searcher/cache"
	searchhandler "github.com/Adithya-Monish-Kumar-K/document-query/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/session"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/document-query/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve starts the document query API. Redis, Kafka and Postgres are
optional: without Redis searches are cached in process, without Kafka
analytics events go straight to the in-memory aggregator, and without
Postgres analytics are not persisted across restarts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		preload, _ := cmd.Flags().GetStringSlice("load")
		return serve(preload)
	},
}

func init() {
	serveCmd.Flags().StringSlice("load", nil, "files or directories to ingest before serving")
	rootCmd.AddCommand(serveCmd)
}

func serve(preload []string) error {
	slog.Info("starting document query service", "port", cfg.Server.Port, "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.NewRegistry())
	tracer := tracing.NewTracer(cfg.Tracing.Enabled, cfg.Tracing.SampleRate, slog.Default())
	store := session.New(session.WithRebuildHook(func(s session.Stats) {
		m.ObserveIndex(s.Documents, s.Terms)
	}))

	checker := health.NewChecker(5 * time.Second)
	checker.Register("index", health.IndexCheck(store))

	queryCache := newQueryCache(ctx, checker, m)

	agg := analytics.NewAggregator(cfg.Analytics.TopN)
	var publisher analytics.Publisher = agg
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = producer

		consumer := kafka.NewConsumer(cfg.Kafka, agg.HandleMessage)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		slog.Info("analytics routed through kafka", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}
	collector := analytics.NewCollector(publisher, cfg.Analytics.BufferSize, cfg.Analytics.FlushInterval)
	collector.Start(ctx)
	defer collector.Close()

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			snapshots := aggregator.NewStore(db)
			if err := snapshots.Migrate(ctx); err != nil {
				return fmt.Errorf("migrating analytics schema: %w", err)
			}
			if err := snapshots.Restore(ctx, agg); err != nil {
				slog.Warn("analytics restore failed", "error", err)
			}
			snapshots.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
			checker.RegisterOptional("postgres", health.PingCheck(db))
		}
	}

	picker, err := insights.NewPicker(cfg.Insights.Picker, cfg.Insights.Seed)
	if err != nil {
		return err
	}
	generator := insights.NewGenerator(picker, cfg.Insights.SummaryLength)

	if len(preload) > 0 {
		if err := preloadDocuments(ctx, store, preload); err != nil {
			return err
		}
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ctx, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
	}
	trustedProxies, err := cfg.RateLimit.TrustedPrefixes()
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := m.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	handler := router.New(router.Handlers{
		Documents: inghandler.New(store, cfg.Ingestion,
			inghandler.WithMetrics(m),
			inghandler.WithCollector(collector),
			inghandler.WithTracer(tracer),
		),
		Search: searchhandler.New(store, cfg.Search,
			searchhandler.WithCache(queryCache),
			searchhandler.WithMetrics(m),
			searchhandler.WithCollector(collector),
			searchhandler.WithTracer(tracer),
		),
		Insights:       insights.NewHandler(store, generator),
		Analytics:      analytics.NewHandler(agg),
		Health:         checker,
		Limiter:        limiter,
		Metrics:        m,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: trustedProxies,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", server.Addr, err)
	}

	slog.Info("document query service listening", "addr", server.Addr)
	if err := runServer(ctx, server, ln, cfg.Server.ShutdownTimeout); err != nil {
		return err
	}
	slog.Info("document query service stopped")
	return nil
}

// runServer serves on ln until ctx is done, then shuts the server down and
// returns only once in-flight requests have finished or timeout has passed.
func runServer(ctx context.Context, server *http.Server, ln net.Listener, timeout time.Duration) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-shutdownDone
	return nil
}

// newQueryCache prefers Redis behind a circuit breaker and falls back to an
// in-process cache when Redis is disabled or unreachable.
func newQueryCache(ctx context.Context, checker *health.Checker, m *metrics.Metrics) *cache.QueryCache {
	ttl := cfg.Redis.CacheTTL
	if !cfg.Redis.Enabled {
		slog.Info("search cache in process", "ttl", ttl)
		return cache.New(cache.NewLocalBackend(ttl), ttl, m)
	}

	client, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, caching searches in process", "error", err)
		return cache.New(cache.NewLocalBackend(ttl), ttl, m)
	}
	context.AfterFunc(ctx, func() { _ = client.Close() })

	breakerCfg := resilience.CircuitBreakerConfig{
		FailureThreshold:    5,
		ResetTimeout:        30 * time.Second,
		HalfOpenMaxRequests: 1,
		OnStateChange: func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}
	checker.RegisterOptional("redis", health.PingCheck(client))
	slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", ttl)
	return cache.New(cache.NewRedisBackend(client, breakerCfg), ttl, m)
}

func preloadDocuments(ctx context.Context, store *session.Store, paths []string) error {
	sources, err := pipeline.FileSources(paths)
	if err != nil {
		return err
	}
	outcomes := pipeline.ProcessAll(ctx, sources, cfg.Ingestion, 0)
	for _, o := range outcomes {
		if o.Err != nil {
			slog.Warn("preload skipped file", "file", o.Result.Filename, "reason", pipeline.FailureReason(o.Err), "error", o.Err)
		}
	}
	if docs := pipeline.Documents(outcomes); len(docs) > 0 {
		stats := store.Add(docs...)
		slog.Info("documents preloaded", "documents", stats.Documents, "terms", stats.Terms)
	}
	return nil
}
