// Package normalizer turns raw text into search tokens. Input is lowercased,
// split on word boundaries, filtered to purely alphabetic words, stripped of
// English stopwords and reduced with the Snowball English stemmer.
package normalizer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Normalize returns the stemmed tokens of text in input order. Duplicates are
// kept so callers can count frequencies.
func Normalize(text string) []string {
	words := Words(strings.ToLower(text))
	if len(words) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if !isAlpha(word) {
			continue
		}
		if IsStopWord(word) {
			continue
		}
		tokens = append(tokens, english.Stem(word, true))
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// Words splits text into maximal runs of letters, digits and underscore.
func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isAlpha(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return word != ""
}
