// Package session owns the documents of the running process together with
// the index built over them. Every mutation rebuilds the whole index, so
// readers always see documents and index from the same generation.
package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/document-query/pkg/errors"
)

// Stats describes the store after its latest rebuild.
type Stats struct {
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	Postings   int       `json:"postings"`
	Generation uint64    `json:"generation"`
	RebuiltAt  time.Time `json:"rebuilt_at"`
}

type Option func(*Store)

// WithRebuildHook registers fn to run after every rebuild, outside the store
// lock. Hooks run one at a time and see generations in increasing order; a
// rebuild already overtaken by a newer one is not reported.
func WithRebuildHook(fn func(Stats)) Option {
	return func(s *Store) {
		s.hooks = append(s.hooks, fn)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

type Store struct {
	mu         sync.RWMutex
	docs       map[string]ingestion.Document
	ingestedAt map[string]time.Time
	idx        index.Index
	generation uint64
	rebuiltAt  time.Time
	hooks      []func(Stats)
	now        func() time.Time
	logger     *slog.Logger

	hookMu   sync.Mutex
	notified uint64
}

func New(opts ...Option) *Store {
	s := &Store{
		docs:       make(map[string]ingestion.Document),
		ingestedAt: make(map[string]time.Time),
		idx:        make(index.Index),
		now:        time.Now,
		logger:     slog.Default().With("component", "session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add stores docs, replacing any with the same id, and rebuilds the index.
func (s *Store) Add(docs ...ingestion.Document) Stats {
	s.mu.Lock()
	now := s.now()
	for _, doc := range docs {
		s.docs[doc.ID] = doc
		s.ingestedAt[doc.ID] = now
	}
	stats := s.rebuildLocked()
	s.mu.Unlock()

	s.logger.Info("documents added",
		"added", len(docs),
		"documents", stats.Documents,
		"terms", stats.Terms,
		"generation", stats.Generation,
	)
	s.notify(stats)
	return stats
}

func (s *Store) Remove(id string) (Stats, error) {
	s.mu.Lock()
	if _, ok := s.docs[id]; !ok {
		s.mu.Unlock()
		return Stats{}, fmt.Errorf("removing %s: %w", id, apperrors.ErrDocumentNotFound)
	}
	delete(s.docs, id)
	delete(s.ingestedAt, id)
	stats := s.rebuildLocked()
	s.mu.Unlock()

	s.logger.Info("document removed", "doc_id", id, "documents", stats.Documents)
	s.notify(stats)
	return stats, nil
}

func (s *Store) Clear() Stats {
	s.mu.Lock()
	s.docs = make(map[string]ingestion.Document)
	s.ingestedAt = make(map[string]time.Time)
	stats := s.rebuildLocked()
	s.mu.Unlock()

	s.logger.Info("session cleared", "generation", stats.Generation)
	s.notify(stats)
	return stats
}

func (s *Store) Get(id string) (ingestion.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return ingestion.Document{}, fmt.Errorf("document %s: %w", id, apperrors.ErrDocumentNotFound)
	}
	return doc, nil
}

// Documents lists stored documents ordered by filename, then id.
func (s *Store) Documents() []ingestion.DocumentSummary {
	s.mu.RLock()
	out := make([]ingestion.DocumentSummary, 0, len(s.docs))
	for id, doc := range s.docs {
		out = append(out, ingestion.DocumentSummary{
			ID:         id,
			Filename:   doc.Filename,
			Characters: len([]rune(doc.RawText)),
			Metadata:   doc.Metadata,
			IngestedAt: s.ingestedAt[id],
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Filename != out[j].Filename {
			return out[i].Filename < out[j].Filename
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// All returns the stored documents sorted by id.
func (s *Store) All() []ingestion.Document {
	s.mu.RLock()
	out := make([]ingestion.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Search(query string, opts retrieval.Options) ([]retrieval.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return retrieval.SearchWithOptions(query, s.idx, s.docs, opts)
}

// Index returns a sorted copy of the current index.
func (s *Store) Index() []index.TermEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.Snapshot()
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}

// Generation increases on every rebuild. Cached search results are keyed by
// it so a rebuild makes earlier entries unreachable.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Store) rebuildLocked() Stats {
	s.idx = retrieval.BuildIndex(s.docs)
	s.generation++
	s.rebuiltAt = s.now()
	return s.statsLocked()
}

func (s *Store) statsLocked() Stats {
	is := s.idx.Stats()
	return Stats{
		Documents:  len(s.docs),
		Terms:      is.Terms,
		Postings:   is.Postings,
		Generation: s.generation,
		RebuiltAt:  s.rebuiltAt,
	}
}

func (s *Store) notify(stats Stats) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	if stats.Generation <= s.notified {
		return
	}
	s.notified = stats.Generation
	for _, fn := range s.hooks {
		fn(stats)
	}
}
