// Package insights produces template-based summaries, document type guesses,
// question answers and cross-document observations from word frequencies.
// It works on raw document text only and never consults the search index.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval/snippet"
)

const (
	DefaultSummaryLength = 200
	minSummaryInput      = 50
	wordsPerMinute       = 200

	MsgTooShort     = "The provided text is too short to generate a meaningful summary."
	MsgNoAnswer     = "Based on the document content, I couldn't find specific information to answer this question."
	MsgMissingInput = "Unable to generate an answer. Please provide both a question and document content."
)

var (
	documentTypes = []string{
		"This document appears to be a",
		"Based on the content, this is a",
		"The text suggests this is a",
		"This content is characteristic of a",
	}
	documentCategories = []string{
		"technical report", "research paper", "business memo",
		"article", "academic publication", "manual", "guide",
		"analysis", "case study", "review",
	}
	summaryOpeners = []string{
		"In summary, this document discusses",
		"The main points of this document are",
		"Key takeaways from this text include",
		"This document primarily focuses on",
		"The core content of this text revolves around",
	}
	answerPrefixes = []string{
		"Based on the document content,",
		"According to the text,",
		"The document suggests that",
		"From analyzing the content,",
	}
	transitions = []string{
		"Additionally,", "Furthermore,", "Moreover,",
		"Also,", "In addition,", "What's more,",
	}
)

type Analysis struct {
	DocumentType string   `json:"document_type"`
	Summary      string   `json:"summary"`
	KeyTopics    []string `json:"key_topics"`
	ReadingTime  string   `json:"reading_time"`
}

type Insights struct {
	CommonThemes    []string `json:"common_themes"`
	Recommendations []string `json:"recommendations"`
	Connections     []string `json:"connections"`
}

type Generator struct {
	picker        Picker
	summaryLength int
}

func NewGenerator(picker Picker, summaryLength int) *Generator {
	if picker == nil {
		picker = FirstPicker{}
	}
	if summaryLength <= 0 {
		summaryLength = DefaultSummaryLength
	}
	return &Generator{picker: picker, summaryLength: summaryLength}
}

func (g *Generator) pick(options []string) string {
	return options[g.picker.Pick(len(options))]
}

// Summary opens with the three most common terms and follows with up to
// three key phrases. Output longer than maxLength runes is cut and ends in
// "...".
func (g *Generator) Summary(text string, maxLength int) string {
	if len([]rune(text)) < minSummaryInput {
		return MsgTooShort
	}
	phrases := KeyPhrases(text, 5)
	terms := CommonTerms(text, 8)
	if len(terms) > 3 {
		terms = terms[:3]
	}

	parts := []string{fmt.Sprintf("%s %s.", g.pick(summaryOpeners), strings.Join(terms, ", "))}
	for i, phrase := range phrases {
		if i == 3 {
			break
		}
		if i > 0 {
			parts = append(parts, g.pick(transitions)+" "+phrase)
			continue
		}
		parts = append(parts, phrase)
	}

	summary := []rune(strings.Join(parts, " "))
	if len(summary) > maxLength {
		cut := maxLength - 3
		if cut < 0 {
			cut = 0
		}
		return string(summary[:cut]) + "..."
	}
	return string(summary)
}

func (g *Generator) Analyze(content string, metadata map[string]any) Analysis {
	prefix := g.pick(documentTypes)
	category := g.pick(documentCategories)

	title, _ := metadata["Title"].(string)
	switch {
	case title != "" && strings.Contains(strings.ToLower(title), "manual"):
		category = "technical manual"
	case truthy(metadata["Author"]) && truthy(metadata["Title"]):
		category = "academic paper"
	}

	return Analysis{
		DocumentType: fmt.Sprintf("%s %s.", prefix, category),
		Summary:      g.Summary(content, g.summaryLength),
		KeyTopics:    CommonTerms(content, 5),
		ReadingTime:  ReadingTime(content),
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case int:
		return t != 0
	case bool:
		return t
	default:
		return true
	}
}

// ReadingTime estimates reading time at 200 words per minute, never less
// than one minute.
func ReadingTime(content string) string {
	words := len(strings.Fields(content))
	minutes := int(math.RoundToEven(float64(words) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// Answer quotes the sentences sharing the most words with question.
func (g *Generator) Answer(question, content string) string {
	if question == "" || content == "" {
		return MsgMissingInput
	}
	keywords := wordSet(question)

	type scored struct {
		sentence string
		overlap  int
	}
	var relevant []scored
	for _, sentence := range snippet.Sentences(content) {
		overlap := 0
		for w := range wordSet(sentence) {
			if _, ok := keywords[w]; ok {
				overlap++
			}
		}
		if overlap > 0 {
			relevant = append(relevant, scored{sentence, overlap})
		}
	}
	if len(relevant) == 0 {
		return MsgNoAnswer
	}
	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].overlap > relevant[j].overlap
	})
	if len(relevant) > 3 {
		relevant = relevant[:3]
	}
	quoted := make([]string, len(relevant))
	for i, r := range relevant {
		quoted[i] = r.sentence
	}
	return g.pick(answerPrefixes) + " " + strings.Join(quoted, " ")
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range words(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

// CrossInsights looks for terms that rank highly in more than one document.
// Connections name the first two documents in the order given.
func (g *Generator) CrossInsights(docs []ingestion.Document) Insights {
	out := Insights{
		CommonThemes:    []string{},
		Recommendations: []string{},
		Connections:     []string{},
	}
	if len(docs) == 0 {
		return out
	}

	counts := make(map[string]int)
	var order []string
	for _, doc := range docs {
		for _, term := range CommonTerms(doc.RawText, 10) {
			if counts[term] == 0 {
				order = append(order, term)
			}
			counts[term]++
		}
	}
	ranked := rankByCount(order, counts)
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	for _, tc := range ranked {
		if tc.count > 1 {
			out.CommonThemes = append(out.CommonThemes, tc.term)
		}
	}
	if len(out.CommonThemes) == 0 {
		return out
	}

	themes := out.CommonThemes
	if len(themes) >= 2 {
		out.Recommendations = append(out.Recommendations,
			fmt.Sprintf("Consider exploring the relationship between %s and %s.", themes[0], themes[1]))
	}
	out.Recommendations = append(out.Recommendations,
		fmt.Sprintf("Documents frequently mention %s, which may be a key area for further research.", themes[0]),
		"The analysis suggests potential connections between multiple topics that could be examined in more detail.",
	)

	if len(docs) > 1 {
		out.Connections = []string{
			fmt.Sprintf("Both %s and %s address similar themes.", docs[0].Filename, docs[1].Filename),
			"Consider cross-referencing information between documents to get a more complete understanding.",
		}
	}
	return out
}
