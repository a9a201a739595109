// Package retrieval composes the normalizer, index builder, scorer and snippet
// extractor into the two operations the rest of the service uses: building
// an index for a document set and searching it.
//
// The package holds no state. Callers own the documents and the index and
// must rebuild the index whenever the document set changes.
package retrieval

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval/index"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval/normalizer"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval/scorer"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval/snippet"
	apperrors "github.com/Adithya-Monish-Kumar-K/document-query/pkg/errors"
)

const (
	DefaultMaxResults    = 10
	DefaultNumSnippets   = 3
	DefaultSnippetLength = 200
)

// Result is one ranked document with its highlighted excerpts.
type Result struct {
	DocID    string         `json:"doc_id"`
	Filename string         `json:"filename"`
	Score    float64        `json:"score"`
	Snippets []string       `json:"snippets"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Options struct {
	MaxResults    int
	NumSnippets   int
	SnippetLength int
}

func DefaultOptions() Options {
	return Options{
		MaxResults:    DefaultMaxResults,
		NumSnippets:   DefaultNumSnippets,
		SnippetLength: DefaultSnippetLength,
	}
}

// BuildIndex returns a new index over the full document set.
func BuildIndex(docs map[string]ingestion.Document) index.Index {
	return index.Build(docs)
}

// Search ranks docs against query using idx and returns at most maxResults
// results with default snippet settings.
func Search(query string, idx index.Index, docs map[string]ingestion.Document, maxResults int) ([]Result, error) {
	opts := DefaultOptions()
	opts.MaxResults = maxResults
	return SearchWithOptions(query, idx, docs, opts)
}

func SearchWithOptions(query string, idx index.Index, docs map[string]ingestion.Document, opts Options) ([]Result, error) {
	if opts.MaxResults < 0 {
		return nil, fmt.Errorf("max results %d: %w", opts.MaxResults, apperrors.ErrInvalidInput)
	}
	tokens := normalizer.Normalize(query)
	if len(tokens) == 0 || opts.MaxResults == 0 {
		return []Result{}, nil
	}

	ranked := scorer.Score(tokens, idx)
	for _, sd := range ranked {
		if _, ok := docs[sd.DocID]; !ok {
			return nil, fmt.Errorf("scored document %q: %w", sd.DocID, apperrors.ErrIndexInconsistent)
		}
	}

	top := scorer.Top(ranked, opts.MaxResults)
	results := make([]Result, 0, len(top))
	for _, sd := range top {
		doc := docs[sd.DocID]
		results = append(results, Result{
			DocID:    sd.DocID,
			Filename: doc.Filename,
			Score:    sd.Score,
			Snippets: snippet.Extract(doc.RawText, tokens, opts.NumSnippets, opts.SnippetLength),
			Metadata: doc.Metadata,
		})
	}
	return results, nil
}
