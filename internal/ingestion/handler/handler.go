// Package handler serves the document upload and management endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/session"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/document-query/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/tracing"
)

const (
	formField         = "files"
	maxMemory         = 32 << 20
	multipartOverhead = 1 << 20
)

// Store is the part of the session store the document endpoints use.
type Store interface {
	Add(docs ...ingestion.Document) session.Stats
	Remove(id string) (session.Stats, error)
	Clear() session.Stats
	Get(id string) (ingestion.Document, error)
	Documents() []ingestion.DocumentSummary
}

type Handler struct {
	store     Store
	cfg       config.IngestionConfig
	collector *analytics.Collector
	metrics   *metrics.Metrics
	tracer    *tracing.Tracer
	workers   int
	logger    *slog.Logger
}

type Option func(*Handler)

func WithCollector(c *analytics.Collector) Option { return func(h *Handler) { h.collector = c } }
func WithMetrics(m *metrics.Metrics) Option { return func(h *Handler) { h.metrics = m } }
func WithTracer(t *tracing.Tracer) Option { return func(h *Handler) { h.tracer = t } }

func New(store Store, cfg config.IngestionConfig, opts ...Option) *Handler {
	h := &Handler{
		store:   store,
		cfg:     cfg,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default().With("component", "ingestion-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Upload serves POST /api/v1/documents with one or more multipart "files".
// Files are extracted concurrently; every successful one is added to the
// store in a single rebuild. The response lists each file's outcome and is
// 422 only when no file could be ingested.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.cfg.MaxFiles > 0 && h.cfg.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(h.cfg.MaxFiles)*h.cfg.MaxFileSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[formField]
	if len(files) == 0 {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("no files in form field %q", formField))
		return
	}
	if h.cfg.MaxFiles > 0 && len(files) > h.cfg.MaxFiles {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d files per upload", h.cfg.MaxFiles))
		return
	}

	ctx, span := h.tracer.Start(ctx, "upload", logger.RequestID(ctx))
	defer span.End()
	span.SetAttr("files", len(files))

	sources := make([]pipeline.Source, len(files))
	for i, fh := range files {
		sources[i] = pipeline.Source{
			Name: filepath.Base(fh.Filename),
			Open: func() ([]byte, error) { return readFile(fh, h.cfg.MaxFileSize) },
		}
	}
	_, extract := tracing.StartChild(ctx, "extract")
	outcomes := pipeline.ProcessAll(ctx, sources, h.cfg, h.workers)
	extract.End()

	resp := ingestion.UploadResponse{Files: make([]ingestion.FileResult, 0, len(outcomes))}
	for _, o := range outcomes {
		resp.Files = append(resp.Files, o.Result)
		if o.Err == nil {
			continue
		}
		reason := pipeline.FailureReason(o.Err)
		log.Warn("file rejected", "filename", o.Result.Filename, "reason", reason, "error", o.Err)
		if h.metrics != nil {
			h.metrics.DocsFailedTotal.WithLabelValues(reason).Inc()
		}
	}

	docs := pipeline.Documents(outcomes)
	if len(docs) == 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	_, rebuild := tracing.StartChild(ctx, "rebuild")
	stats := h.store.Add(docs...)
	rebuild.SetAttr("terms", stats.Terms)
	rebuild.End()

	resp.Documents = stats.Documents
	resp.Terms = stats.Terms
	resp.Generation = stats.Generation
	for _, doc := range docs {
		h.trackIndex(analytics.EventIndexDocument, doc.ID, doc.Filename, len([]rune(doc.RawText)), stats.Generation)
	}
	if h.metrics != nil {
		h.metrics.DocsIngestedTotal.Add(float64(len(docs)))
	}
	log.Info("documents ingested",
		"accepted", len(docs),
		"rejected", len(files)-len(docs),
		"generation", stats.Generation,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()
	var r io.Reader = f
	if maxSize > 0 {
		r = io.LimitReader(f, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}

// List serves GET /api/v1/documents.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs := h.store.Documents()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

// Get serves GET /api/v1/documents/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

// Delete serves DELETE /api/v1/documents/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	stats, err := h.store.Remove(id)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.trackIndex(analytics.EventRemoveDocument, id, "", 0, stats.Generation)
	logger.FromContext(r.Context()).Info("document deleted", "doc_id", id)
	h.writeJSON(w, http.StatusOK, stats)
}

// Clear serves DELETE /api/v1/documents.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Clear()
	h.trackIndex(analytics.EventClearDocuments, "", "", 0, stats.Generation)
	logger.FromContext(r.Context()).Info("documents cleared", "generation", stats.Generation)
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) trackIndex(typ analytics.EventType, id, filename string, chars int, generation uint64) {
	if h.collector == nil {
		return
	}
	h.collector.TrackIndex(analytics.IndexEvent{
		Type:       typ,
		DocumentID: id,
		Filename:   filename,
		Characters: chars,
		Generation: generation,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
