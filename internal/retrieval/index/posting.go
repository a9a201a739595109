package index

// Postings maps a document id to the normalized weight of one term in that
// document.
type Postings map[string]float64

// Posting is a single (document, weight) pair in a sorted snapshot.
type Posting struct {
	DocID  string  `json:"doc_id"`
	Weight float64 `json:"weight"`
}

type PostingList []Posting

type TermEntry struct {
	Term     string      `json:"term"`
	Postings PostingList `json:"postings"`
}

// Stats summarizes the size of an index.
type Stats struct {
	Terms     int `json:"terms"`
	Documents int `json:"documents"`
	Postings  int `json:"postings"`
}
