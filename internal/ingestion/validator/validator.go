// Package validator checks uploaded files before extraction and reports
// every failing field at once.
package validator

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Adithya-Monish-Kumar-K/document-query/internal/ingestion/extractor"
)

const maxFilenameLength = 255

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateUpload checks the name, extension and size of one uploaded file.
// maxSize <= 0 disables the size ceiling.
func ValidateUpload(filename string, size int64, maxSize int64) error {
	errs := make(map[string]string)

	name := strings.TrimSpace(filename)
	switch {
	case name == "":
		errs["filename"] = "filename is required"
	case len(name) > maxFilenameLength:
		errs["filename"] = fmt.Sprintf("filename must be at most %d characters", maxFilenameLength)
	case !extractor.Supported(name):
		errs["format"] = fmt.Sprintf("unsupported extension %q, expected one of %s",
			strings.ToLower(filepath.Ext(name)), strings.Join(extractor.SupportedExtensions(), ", "))
	}

	switch {
	case size <= 0:
		errs["size"] = "file is empty"
	case maxSize > 0 && size > maxSize:
		errs["size"] = fmt.Sprintf("file must be at most %d bytes", maxSize)
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// contentTypes maps an extension to the MIME type its payload must be or
// descend from. Plain text has no reliable signature and is not sniffed.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/zip",
}

// ValidateContent sniffs data and rejects payloads whose content does not
// match the file extension, such as a renamed executable.
func ValidateContent(filename string, data []byte) error {
	want, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return nil
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(want) {
			return nil
		}
	}
	return &ValidationError{Fields: map[string]string{
		"content": fmt.Sprintf("content type %s does not match extension", detected.String()),
	}}
}
