// Package ingestion defines the document model handed to the retrieval core
// and the request/response types used by the upload endpoint.
package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Document is an extracted, immutable unit of text. RawText is the cleaned
// extraction output; Metadata carries format-specific fields such as
// PageCount or Author.
type Document struct {
	ID       string         `json:"id"`
	Filename string         `json:"filename"`
	RawText  string         `json:"raw_text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentID derives a stable identifier from the uploaded file name and its
// byte size. Re-uploading the same file replaces the earlier copy.
func DocumentID(filename string, size int64) string {
	sum := sha256.Sum256([]byte(filename + strconv.FormatInt(size, 10)))
	return hex.EncodeToString(sum[:])[:16]
}

// FileResult reports the outcome of ingesting a single uploaded file.
type FileResult struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"document_id,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// UploadResponse is returned after a multipart upload has been processed.
type UploadResponse struct {
	Files      []FileResult `json:"files"`
	Documents  int          `json:"documents"`
	Terms      int          `json:"terms"`
	Generation uint64       `json:"generation"`
}

// DocumentSummary is the listing view of a stored document.
type DocumentSummary struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename"`
	Characters int            `json:"characters"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IngestedAt time.Time      `json:"ingested_at"`
}
