package normalizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace", "  \t\n ", nil},
		{"only stopwords", "The and of it", nil},
		{"sentence", "The quick brown fox jumps.", []string{"quick", "brown", "fox", "jump"}},
		{"keeps duplicates and order", "Running runs 42 times, don't stop!", []string{"run", "run", "time", "stop"}},
		{"drops alphanumeric tokens", "version2 v3 release", []string{"releas"}},
		{"uppercase", "FOXES", []string{"fox"}},
		{"underscore joins", "snake_case word", []string{"word"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.text))
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	text := "Distributed search engines process queries across multiple shards."
	assert.Equal(t, Normalize(text), Normalize(text))
}

func TestNormalizeUnicodeLetters(t *testing.T) {
	tokens := Normalize("Café naïve über")
	assert.Len(t, tokens, 3)
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"state", "of", "the", "art", "x_1"}, Words("state-of-the-art, x_1!"))
	assert.Empty(t, Words(" .,;"))
}

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Document search tools extract text from uploaded files and build an
        inverted index over the normalized terms. Each query is normalized the
        same way, and documents are ranked by the summed weight of the terms
        they share with it. Matching sentences are returned as highlighted
        snippets so the reader can judge relevance at a glance.`,
}

func BenchmarkNormalize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Normalize(text)
			}
		})
	}
}

func BenchmarkNormalizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 1000, 5000}
	baseWord := "documents indexing searching snippets highlighted "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Normalize(text)
			}
		})
	}
}
