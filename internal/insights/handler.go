package insights

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/document-query/pkg/errors"
)

const maxQuestionBytes = 4 << 10

// Documents gives the handler read access to stored documents.
type Documents interface {
	Get(id string) (ingestion.Document, error)
	All() []ingestion.Document
}

type AnalysisResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Analysis
}

type AnswerRequest struct {
	Question string `json:"question"`
}

type AnswerResponse struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

type Handler struct {
	docs      Documents
	generator *Generator
	logger    *slog.Logger
}

func NewHandler(docs Documents, generator *Generator) *Handler {
	return &Handler{
		docs:      docs,
		generator: generator,
		logger:    slog.Default().With("component", "insights-handler"),
	}
}

// Analysis serves GET /api/v1/documents/{id}/analysis.
func (h *Handler) Analysis(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, AnalysisResponse{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Analysis:   h.generator.Analyze(doc.RawText, doc.Metadata),
	})
}

// Answer serves POST /api/v1/documents/{id}/answer with a JSON question.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	var req AnswerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "question too long")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		h.writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	h.writeJSON(w, http.StatusOK, AnswerResponse{
		DocumentID: doc.ID,
		Question:   question,
		Answer:     h.generator.Answer(question, doc.RawText),
	})
}

// Insights serves GET /api/v1/insights across every stored document.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	docs := h.docs.All()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": len(docs),
		"insights":  h.generator.CrossInsights(docs),
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
