package rag

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Index is the vector store: append-only entries behind a RWMutex so
// searches run concurrently while inserts are serialized. With a backing
// database attached (see Open) every insert is written through before it
// becomes visible to readers, so the in-memory view never gets ahead of
// what would survive a restart.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries []IndexEntry
	docs    map[string]string // content hash -> document ID
	db      *sql.DB           // nil for a memory-only index
}

// NewIndex creates a memory-only index with a fixed dimensionality.
func NewIndex(dim int) *Index {
	return &Index{
		dim:  dim,
		docs: make(map[string]string),
	}
}

// Dimension reports the fixed vector size this index accepts.
func (x *Index) Dimension() int { return x.dim }

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Insert appends a single entry and returns its stable identifier.
func (x *Index) Insert(chunk Chunk, vector []float32) (string, error) {
	if len(vector) != x.dim {
		return "", fmt.Errorf("%w: got %d, index holds %d", ErrDimensionMismatch, len(vector), x.dim)
	}

	entry := IndexEntry{Chunk: chunk, Vector: vector, AddedAt: time.Now().UTC()}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.db != nil {
		if err := x.writeEntries([]IndexEntry{entry}); err != nil {
			return "", err
		}
	}
	x.entries = append(x.entries, entry)
	return chunk.ID, nil
}

// InsertDocument commits all chunks of one document or none of them.
// With a backing database the rows go in a single transaction; the
// in-memory entries are only appended after it commits, so a failure
// partway through leaves both views untouched.
func (x *Index) InsertDocument(documentID, contentHash string, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", ErrDimensionMismatch, len(chunks), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != x.dim {
			return fmt.Errorf("%w: got %d, index holds %d", ErrDimensionMismatch, len(v), x.dim)
		}
	}

	now := time.Now().UTC()
	entries := make([]IndexEntry, len(chunks))
	for i := range chunks {
		entries[i] = IndexEntry{Chunk: chunks[i], Vector: vectors[i], AddedAt: now}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.db != nil {
		if err := x.writeDocument(documentID, contentHash, entries); err != nil {
			return err
		}
	}
	x.entries = append(x.entries, entries...)
	x.docs[contentHash] = documentID
	return nil
}

// HasDocument reports whether a document with this content hash was
// already ingested, for the optional dedup policy.
func (x *Index) HasDocument(contentHash string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.docs[contentHash]
	return id, ok
}

// Search returns up to k entries ranked by descending cosine similarity.
// Exact score ties keep insertion order, so results are deterministic for
// a given index state.
func (x *Index) Search(query []float32, k int) []SearchResult {
	x.mu.RLock()
	defer x.mu.RUnlock()

	results := make([]SearchResult, 0, len(x.entries))
	for _, e := range x.entries {
		results = append(results, SearchResult{Entry: e, Score: cosine(query, e.Vector)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	if k < 0 {
		k = 0
	}
	return results[:k]
}

// cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
