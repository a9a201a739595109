// Package scorer ranks documents by summing the index weights of the query
// terms they contain.
package scorer

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval/index"
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Score adds index[term][doc] for every distinct query token and returns the
// matching documents ordered by descending score, then ascending id.
// Documents that share no term with the query are never returned.
func Score(queryTokens []string, idx index.Index) []ScoredDoc {
	if len(queryTokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(queryTokens))
	scores := make(map[string]float64)
	for _, term := range queryTokens {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		for docID, w := range idx.Lookup(term) {
			scores[docID] += w
		}
	}
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Top returns at most limit entries of ranked.
func Top(ranked []ScoredDoc, limit int) []ScoredDoc {
	if limit <= 0 {
		return nil
	}
	if len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}
