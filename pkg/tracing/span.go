// Package tracing keeps a small span tree in the request context. Finished
// root spans are written to slog, one record per span.
package tracing

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

type contextKey struct{}

// Span is a timed operation within a trace.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any

	mu     sync.Mutex
	tracer *Tracer
	root   bool
}

// Tracer decides which requests are traced and where spans are logged.
type Tracer struct {
	enabled    bool
	sampleRate float64
	logger     *slog.Logger
	sample     func() float64
}

// NewTracer returns a tracer that records the given fraction of root spans.
// A disabled tracer records nothing.
func NewTracer(enabled bool, sampleRate float64, logger *slog.Logger) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{
		enabled:    enabled,
		sampleRate: sampleRate,
		logger:     logger.With("component", "tracing"),
		sample:     rand.Float64,
	}
}

// Start opens a root span when the request is sampled, or a child span when
// ctx already carries one. Unsampled calls return ctx and a nil span; every
// Span method is safe on nil.
func (t *Tracer) Start(ctx context.Context, name, traceID string) (context.Context, *Span) {
	if parent := FromContext(ctx); parent != nil {
		return StartChild(ctx, name)
	}
	if t == nil || !t.enabled || t.sample() >= t.sampleRate {
		return ctx, nil
	}
	span := &Span{
		Name:      name,
		TraceID:   traceID,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
		tracer:    t,
		root:      true,
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChild opens a span under the one in ctx. Without a parent it is a
// no-op.
func StartChild(ctx context.Context, name string) (context.Context, *Span) {
	parent := FromContext(ctx)
	if parent == nil {
		return ctx, nil
	}
	child := &Span{
		Name:      name,
		TraceID:   parent.TraceID,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
		tracer:    parent.tracer,
	}
	parent.mu.Lock()
	parent.Children = append(parent.Children, child)
	parent.mu.Unlock()
	return context.WithValue(ctx, contextKey{}, child), child
}

// End records the duration. Ending a root span logs the whole tree.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.Duration = time.Since(s.StartTime)
	s.mu.Unlock()
	if s.root {
		s.log(s.tracer.logger, 0)
	}
}

// SetAttr attaches a key-value attribute.
func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// FromContext returns the current span, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

func (s *Span) log(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", float64(s.Duration.Microseconds()) / 1000,
		"depth", depth,
	}
	for k, v := range s.Attrs {
		attrs = append(attrs, k, v)
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	logger.Debug("span", attrs...)
	for _, child := range children {
		child.log(logger, depth+1)
	}
}
