// Package index builds the inverted index used by the scorer. Each term maps
// to the documents containing it, weighted by term frequency divided by the
// frequency of the most common term in the same document.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval/normalizer"
)

// Index is term -> document id -> weight. Weights are in (0,1].
type Index map[string]Postings

// Build normalizes every document and returns a fresh index. Documents that
// produce no tokens contribute nothing. The result is never nil.
func Build(docs map[string]ingestion.Document) Index {
	idx := make(Index)
	for docID, doc := range docs {
		counts := termCounts(normalizer.Normalize(doc.RawText))
		if len(counts) == 0 {
			continue
		}
		maxCount := 0
		for _, c := range counts {
			if c > maxCount {
				maxCount = c
			}
		}
		for term, c := range counts {
			postings, exists := idx[term]
			if !exists {
				postings = make(Postings)
				idx[term] = postings
			}
			postings[docID] = float64(c) / float64(maxCount)
		}
	}
	return idx
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}

// Lookup returns the postings for term, or nil when the term is unknown.
func (idx Index) Lookup(term string) Postings {
	return idx[term]
}

// Terms returns every indexed term in ascending order.
func (idx Index) Terms() []string {
	terms := make([]string, 0, len(idx))
	for term := range idx {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Snapshot returns a deterministic copy of the index with terms sorted and
// postings sorted by document id.
func (idx Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(idx))
	for term, docs := range idx {
		postings := make(PostingList, 0, len(docs))
		for docID, w := range docs {
			postings = append(postings, Posting{DocID: docID, Weight: w})
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (idx Index) Stats() Stats {
	docs := make(map[string]struct{})
	postings := 0
	for _, p := range idx {
		postings += len(p)
		for docID := range p {
			docs[docID] = struct{}{}
		}
	}
	return Stats{
		Terms:     len(idx),
		Documents: len(docs),
		Postings:  postings,
	}
}
