// Package extractor turns uploaded PDF, DOCX and plain-text files into clean
// text plus format-specific metadata.
package extractor

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/document-query/pkg/errors"
)

// Metadata keys shared with the insights package.
const (
	MetaTitle      = "Title"
	MetaAuthor     = "Author"
	MetaCreated    = "Created"
	MetaModified   = "Modified"
	MetaPageCount  = "PageCount"
	MetaParagraphs = "Paragraphs"
	MetaFileSize   = "FileSize"
	MetaLineCount  = "LineCount"
	MetaEncoding   = "Encoding"
)

type extractFunc func(data []byte) (string, map[string]any, error)

var extractors = map[string]extractFunc{
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".txt":  extractTXT,
}

// Supported reports whether filename has an extension Extract can handle.
func Supported(filename string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// SupportedExtensions lists the accepted extensions in a stable order.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".txt"}
}

// Extract dispatches on the file extension and returns cleaned text. A file
// that yields no text fails with ErrEmptyDocument; nothing partial is ever
// returned alongside an error.
func Extract(filename string, data []byte) (string, map[string]any, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	fn, ok := extractors[ext]
	if !ok {
		return "", nil, fmt.Errorf("%s (%q): %w", filename, ext, apperrors.ErrUnsupportedFormat)
	}
	raw, metadata, err := fn(data)
	if err != nil {
		return "", nil, fmt.Errorf("extracting %s: %w: %w", filename, apperrors.ErrExtractionFailed, err)
	}
	text := CleanText(raw)
	if text == "" {
		return "", nil, fmt.Errorf("extracting %s: %w", filename, apperrors.ErrEmptyDocument)
	}
	return text, metadata, nil
}

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// CleanText collapses whitespace runs, non-breaking spaces included, to
// single spaces, trims the result and drops control characters.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.Join(strings.Fields(text), " ")
	return controlChars.ReplaceAllString(text, "")
}
