// Package snippet picks the sentences of a document that mention the query and
// marks the matching words.
//
// Stemmed tokens cannot be mapped back to the words they came from, so a word
// of the document counts as a match when it starts with the first three
// characters of a query token and continues with ASCII letters only. This
// over-matches unrelated words that share the prefix.
package snippet

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval/normalizer"
)

const (
	prefixLength = 3
	ellipsis     = "..."
	markOpen     = "**"
	markClose    = "**"
)

// Extract returns up to numSnippets highlighted sentences of rawText, in
// document order. When nothing in the text resembles a query token a single
// leading excerpt of maxLength runes is returned instead.
func Extract(rawText string, queryTokens []string, numSnippets, maxLength int) []string {
	forms := SurfaceForms(rawText, queryTokens)
	if len(forms) == 0 {
		return []string{leading(rawText, maxLength)}
	}

	var matched []string
	for _, sentence := range Sentences(rawText) {
		lower := strings.ToLower(sentence)
		for _, form := range forms {
			if strings.Contains(lower, form) {
				matched = append(matched, sentence)
				break
			}
		}
	}
	if len(matched) == 0 {
		return []string{leading(rawText, maxLength)}
	}
	if numSnippets < 0 {
		numSnippets = 0
	}
	if len(matched) > numSnippets {
		matched = matched[:numSnippets]
	}

	highlighter := compileHighlighter(forms)
	snippets := make([]string, 0, len(matched))
	for _, sentence := range matched {
		marked := highlighter.ReplaceAllString(sentence, markOpen+"$0"+markClose)
		snippets = append(snippets, truncate(marked, maxLength))
	}
	return snippets
}

// SurfaceForms returns the distinct lowercased words of rawText that match a
// query token prefix, in order of first appearance.
func SurfaceForms(rawText string, queryTokens []string) []string {
	if len(queryTokens) == 0 {
		return nil
	}
	prefixes := make([]string, 0, len(queryTokens))
	for _, tok := range queryTokens {
		p := tok
		if utf8.RuneCountInString(p) > prefixLength {
			p = string([]rune(p)[:prefixLength])
		}
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}

	seen := make(map[string]struct{})
	var forms []string
	for _, word := range normalizer.Words(strings.ToLower(rawText)) {
		if _, dup := seen[word]; dup {
			continue
		}
		for _, p := range prefixes {
			if strings.HasPrefix(word, p) && isASCIILetters(word[len(p):]) {
				seen[word] = struct{}{}
				forms = append(forms, word)
				break
			}
		}
	}
	return forms
}

func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// Sentences splits text after '.', '!' or '?' when followed by whitespace.
// The whitespace run is dropped; the punctuation stays with its sentence.
func Sentences(text string) []string {
	var sentences []string
	start := 0
	i := 0
	for i < len(text) {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			i++
			continue
		}
		j := i + 1
		for j < len(text) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(r) {
				break
			}
			j += size
		}
		if j == i+1 {
			i++
			continue
		}
		sentences = append(sentences, text[start:i+1])
		start = j
		i = j
	}
	return append(sentences, text[start:])
}

// compileHighlighter matches any form case-insensitively. Longer forms are
// tried first so a form that extends another is marked as a whole.
func compileHighlighter(forms []string) *regexp.Regexp {
	ordered := append([]string(nil), forms...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i]) > len(ordered[j])
	})
	quoted := make([]string, len(ordered))
	for i, f := range ordered {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}

func leading(text string, maxLength int) string {
	runes := []rune(text)
	if maxLength < 0 {
		maxLength = 0
	}
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength]) + ellipsis
}

// truncate cuts s to maxLength runes, preferring the last space in the
// second half of the allowed length.
func truncate(s string, maxLength int) string {
	runes := []rune(s)
	if maxLength < 0 {
		maxLength = 0
	}
	if len(runes) <= maxLength {
		return s
	}
	cut := maxLength
	for i := maxLength - 1; i >= maxLength/2; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}
	return string(runes[:cut]) + ellipsis
}
