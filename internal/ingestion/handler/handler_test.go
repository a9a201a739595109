package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/session"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/document-query/pkg/metrics"
)

var ingestCfg = config.IngestionConfig{MaxFileSize: 1 << 20, MaxFiles: 3, ExtractTimeout: 5 * time.Second}

type upload struct {
	name string
	body string
}

func uploadRequest(t *testing.T, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(formField, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeUpload(t *testing.T, rec *httptest.ResponseRecorder) ingestion.UploadResponse {
	t.Helper()
	var resp ingestion.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUpload(t *testing.T) {
	store := session.New()
	m := metrics.New(prometheus.NewRegistry())
	h := New(store, ingestCfg, WithMetrics(m))

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t,
		upload{"notes.txt", "The quick brown fox jumps."},
		upload{"image.png", "not a document"},
		upload{"fake.pdf", "MZ this is not a pdf"},
	))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeUpload(t, rec)
	require.Len(t, resp.Files, 3)
	assert.Equal(t, pipeline.StatusProcessed, resp.Files[0].Status)
	assert.Equal(t, ingestion.DocumentID("notes.txt", 26), resp.Files[0].DocumentID)
	assert.Equal(t, pipeline.StatusFailed, resp.Files[1].Status)
	assert.Contains(t, resp.Files[1].Error, "unsupported extension")
	assert.Equal(t, pipeline.StatusFailed, resp.Files[2].Status)
	assert.Contains(t, resp.Files[2].Error, "content")
	assert.Equal(t, 1, resp.Documents)
	assert.EqualValues(t, 1, resp.Generation)
	assert.Positive(t, resp.Terms)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsIngestedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsFailedTotal.WithLabelValues("validation")))
}

func TestUploadAllRejected(t *testing.T) {
	store := session.New()
	h := New(store, ingestCfg)

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, upload{"blank.txt", "   \n\t "}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeUpload(t, rec)
	assert.Contains(t, resp.Files[0].Error, "no text could be extracted")
	assert.Zero(t, store.Generation())
}

func TestUploadRequestErrors(t *testing.T) {
	h := New(session.New(), ingestCfg)

	rec := httptest.NewRecorder()
	h.Upload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/documents", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t,
		upload{"a.txt", "a"}, upload{"b.txt", "b"}, upload{"c.txt", "c"}, upload{"d.txt", "d"},
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at most 3 files")
}

func TestDocumentEndpoints(t *testing.T) {
	store := session.New()
	store.Add(
		ingestion.Document{ID: "d1", Filename: "b.txt", RawText: "beta text"},
		ingestion.Document{ID: "d2", Filename: "a.txt", RawText: "alpha text"},
	)
	h := New(store, ingestCfg)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/documents", h.List)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.Delete)
	mux.HandleFunc("DELETE /api/v1/documents", h.Clear)

	do := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec
	}

	rec := do(http.MethodGet, "/api/v1/documents")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Documents []ingestion.DocumentSummary `json:"documents"`
		Total     int                         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, "a.txt", list.Documents[0].Filename)

	rec = do(http.MethodGet, "/api/v1/documents/d1")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc ingestion.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "beta text", doc.RawText)

	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/api/v1/documents/nope").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodDelete, "/api/v1/documents/d1").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodDelete, "/api/v1/documents/d1").Code)
	assert.Equal(t, 1, store.Len())

	rec = do(http.MethodDelete, "/api/v1/documents")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats session.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.Documents)
	assert.Zero(t, store.Len())
}
