package analytics

import "time"

type EventType string

const (
	EventSearch         EventType = "search"
	EventIndexDocument  EventType = "index_document"
	EventRemoveDocument EventType = "remove_document"
	EventClearDocuments EventType = "clear_documents"
)

// SearchEvent is emitted once per answered query.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Results   int       `json:"results"`
	LatencyMs float64   `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Failed    bool      `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IndexEvent is emitted when the document set changes.
type IndexEvent struct {
	Type       EventType `json:"type"`
	DocumentID string    `json:"document_id,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	Characters int       `json:"characters,omitempty"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
}
