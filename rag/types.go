package rag

import "time"

// Chunk of a document
type Chunk struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Source     string `json:"source"` // filename of the uploaded document
	DocumentID string `json:"document_id"`
	Seq        int    `json:"seq"` // position within the document
}

// IndexEntry is what the index actually stores. Entries are append-only:
// once inserted they are never mutated.
type IndexEntry struct {
	Chunk   Chunk
	Vector  []float32
	AddedAt time.Time
}

// SearchResult pairs an entry with its similarity to the query.
type SearchResult struct {
	Entry IndexEntry
	Score float64
}

// IngestionResult reports what a single upload did to the index.
type IngestionResult struct {
	DocumentID string
	Filename   string
	ChunkCount int
	Duplicate  bool // true when dedup is on and the document was already indexed
}

// Answer is produced fresh per question and never stored.
type Answer struct {
	Text    string
	Context []Chunk // the chunks the answer was grounded in
}
