package insights

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/retrieval/snippet"
)

var (
	termPattern       = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

var commonStopWords = map[string]struct{}{
	"the": {}, "and": {}, "a": {}, "an": {}, "in": {}, "to": {}, "for": {},
	"of": {}, "on": {}, "with": {}, "by": {}, "at": {}, "from": {}, "as": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "but": {}, "or": {}, "not": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "it": {}, "they": {}, "them": {}, "their": {},
	"its": {},
}

var keyIndicators = []string{
	"important", "significant", "key", "main", "primary",
	"essential", "critical", "fundamental", "crucial",
}

// words lists the termPattern matches in text that do not touch a non-ASCII
// letter or digit, so "café" yields nothing rather than "caf".
func words(text string) []string {
	var out []string
	for _, loc := range termPattern.FindAllStringIndex(text, -1) {
		before, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
		after, _ := utf8.DecodeRuneInString(text[loc[1]:])
		if isWordRune(before) || isWordRune(after) {
			continue
		}
		out = append(out, text[loc[0]:loc[1]])
	}
	return out
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

type termCount struct {
	term  string
	count int
}

// rankByCount orders terms by descending count. Equal counts keep the order
// in which the terms were first seen.
func rankByCount(order []string, counts map[string]int) []termCount {
	ranked := make([]termCount, len(order))
	for i, term := range order {
		ranked[i] = termCount{term: term, count: counts[term]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count > ranked[j].count
	})
	return ranked
}

// CommonTerms returns up to count of the most frequent words of three or more
// ASCII letters in text, skipping a short list of function words.
func CommonTerms(text string, count int) []string {
	counts := make(map[string]int)
	var order []string
	for _, word := range words(strings.ToLower(text)) {
		if _, stop := commonStopWords[word]; stop {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}
	ranked := rankByCount(order, counts)
	if len(ranked) > count {
		ranked = ranked[:count]
	}
	terms := make([]string, len(ranked))
	for i, tc := range ranked {
		terms[i] = tc.term
	}
	return terms
}

// KeyPhrases picks sentences that look informative: six to twenty-four words
// containing an indicator such as "important" or "key". When fewer than
// count qualify, the first, middle and closing sentences fill the gap.
func KeyPhrases(text string, count int) []string {
	text = strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
	sentences := snippet.Sentences(text)

	var candidates []string
	contains := func(s string) bool {
		for _, c := range candidates {
			if c == s {
				return true
			}
		}
		return false
	}

	for _, sentence := range sentences {
		n := len(strings.Fields(sentence))
		if n <= 5 || n >= 25 {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, kw := range keyIndicators {
			if strings.Contains(lower, kw) {
				candidates = append(candidates, sentence)
				break
			}
		}
	}

	if len(candidates) < count {
		if !contains(sentences[0]) {
			candidates = append(candidates, sentences[0])
		}
		mid := len(sentences) / 2
		if !contains(sentences[mid]) {
			candidates = append(candidates, sentences[mid])
		}
		if len(sentences) > 3 {
			for i := len(sentences) - 3; i < len(sentences); i++ {
				if !contains(sentences[i]) {
					candidates = append(candidates, sentences[i])
					if len(candidates) >= count {
						break
					}
				}
			}
		}
	}

	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}
