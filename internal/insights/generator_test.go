package insights

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
)

const report = "Search quality depends on indexing. " +
	"The most important step is building a clean inverted index over every document. " +
	"Indexing runs whenever documents change. " +
	"Queries are normalized with the same rules as documents. " +
	"Snippets show where the query terms appear."

func TestCommonTerms(t *testing.T) {
	got := CommonTerms("Index the index; index documents and documents, then search.", 3)
	assert.Equal(t, []string{"index", "documents", "then"}, got)
	assert.Empty(t, CommonTerms("a an of to", 5))
}

func TestCommonTermsSkipsAccentedWords(t *testing.T) {
	got := CommonTerms("Café naïveté déjà vu, plain coffee and café au lait with coffee.", 5)
	assert.Equal(t, []string{"coffee", "plain", "lait"}, got)
}

func TestWords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"café", nil},
		{"naïveté", nil},
		{"über alles", []string{"alles"}},
		{"abc123 abc_def abc", []string{"abc"}},
		{"東京abc and abc東京", []string{"and"}},
		{"fox·dog", []string{"fox", "dog"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, words(tt.text))
		})
	}
}

func TestKeyPhrases(t *testing.T) {
	got := KeyPhrases(report, 5)
	require.NotEmpty(t, got)
	assert.Equal(t, "The most important step is building a clean inverted index over every document.", got[0])
	assert.Contains(t, got, "Search quality depends on indexing.")
	assert.LessOrEqual(t, len(got), 5)
}

func TestSummary(t *testing.T) {
	g := NewGenerator(FirstPicker{}, 0)

	assert.Equal(t, MsgTooShort, g.Summary("too short", 200))

	got := g.Summary(report, 1000)
	assert.True(t, strings.HasPrefix(got, "In summary, this document discusses indexing, documents, search."), got)
	assert.Contains(t, got, "Additionally,")

	cut := g.Summary(report, 40)
	assert.Len(t, []rune(cut), 40)
	assert.True(t, strings.HasSuffix(cut, "..."))
}

func TestAnalyze(t *testing.T) {
	g := NewGenerator(FirstPicker{}, 0)

	tests := []struct {
		name     string
		metadata map[string]any
		want     string
	}{
		{"no metadata", nil, "This document appears to be a technical report."},
		{"manual title", map[string]any{"Title": "Operator Manual"}, "This document appears to be a technical manual."},
		{"author and title", map[string]any{"Title": "Findings", "Author": "R. Lee"}, "This document appears to be a academic paper."},
		{"empty author", map[string]any{"Title": "Findings", "Author": ""}, "This document appears to be a technical report."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := g.Analyze(report, tt.metadata)
			assert.Equal(t, tt.want, a.DocumentType)
			assert.Equal(t, "1 minute", a.ReadingTime)
			assert.Equal(t, []string{"indexing", "documents", "search", "quality", "depends"}, a.KeyTopics)
		})
	}
}

func TestReadingTime(t *testing.T) {
	assert.Equal(t, "1 minute", ReadingTime(""))
	assert.Equal(t, "1 minute", ReadingTime(strings.Repeat("word ", 299)))
	assert.Equal(t, "2 minutes", ReadingTime(strings.Repeat("word ", 301)))
	assert.Equal(t, "5 minutes", ReadingTime(strings.Repeat("word ", 1000)))
}

func TestAnswer(t *testing.T) {
	g := NewGenerator(FirstPicker{}, 0)

	assert.Equal(t, MsgMissingInput, g.Answer("", report))
	assert.Equal(t, MsgNoAnswer, g.Answer("What about zebras?", report))

	got := g.Answer("When does indexing run?", report)
	assert.Equal(t, "Based on the document content, Search quality depends on indexing. Indexing runs whenever documents change.", got)
}

func TestCrossInsights(t *testing.T) {
	g := NewGenerator(FirstPicker{}, 0)

	empty := g.CrossInsights(nil)
	assert.Empty(t, empty.CommonThemes)
	assert.Empty(t, empty.Recommendations)

	docs := []ingestion.Document{
		{ID: "1", Filename: "a.txt", RawText: "Search engines rank documents. Search results need snippets."},
		{ID: "2", Filename: "b.txt", RawText: "Documents are indexed before search. Search is fast."},
	}
	got := g.CrossInsights(docs)
	assert.Equal(t, []string{"search", "documents"}, got.CommonThemes)
	assert.Equal(t, []string{
		"Consider exploring the relationship between search and documents.",
		"Documents frequently mention search, which may be a key area for further research.",
		"The analysis suggests potential connections between multiple topics that could be examined in more detail.",
	}, got.Recommendations)
	require.Len(t, got.Connections, 2)
	assert.Equal(t, "Both a.txt and b.txt address similar themes.", got.Connections[0])

	single := g.CrossInsights(docs[:1])
	assert.Empty(t, single.CommonThemes)
}

func TestPickers(t *testing.T) {
	rr := &RoundRobinPicker{}
	assert.Equal(t, []int{0, 1, 2, 0}, []int{rr.Pick(3), rr.Pick(3), rr.Pick(3), rr.Pick(3)})

	a, b := NewSeededPicker(42), NewSeededPicker(42)
	for i := 0; i < 10; i++ {
		v := a.Pick(7)
		assert.Equal(t, v, b.Pick(7))
		assert.True(t, v >= 0 && v < 7)
	}

	p, err := NewPicker("round-robin", 0)
	require.NoError(t, err)
	assert.IsType(t, &RoundRobinPicker{}, p)
	_, err = NewPicker("random", 0)
	assert.Error(t, err)
}
