package rag

import (
	"fmt"
	"strconv"
)

// Chunker splits extracted text into overlapping fixed-size windows.
// The unit is runes, so multi-byte text never splits mid-character.
type Chunker struct {
	Window  int // runes per chunk
	Overlap int // runes shared between consecutive chunks
}

// NewChunker validates the window/overlap pair up front so a bad
// configuration fails at startup, not on the first upload.
func NewChunker(window, overlap int) (*Chunker, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", ErrInvalidConfig, window)
	}
	if overlap < 0 || overlap >= window {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, window %d)", ErrInvalidConfig, overlap, window)
	}
	return &Chunker{Window: window, Overlap: overlap}, nil
}

// Chunk covers the whole text: consecutive chunks from the same document
// share exactly Overlap runes, and the last chunk may be shorter than
// Window. Empty input yields no chunks.
func (c *Chunker) Chunk(text, source, documentID string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.Window - c.Overlap
	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + c.Window
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			ID:         source + "-" + strconv.Itoa(len(chunks)+1),
			Content:    string(runes[start:end]),
			Source:     source,
			DocumentID: documentID,
			Seq:        len(chunks),
		})
		if end == len(runes) {
			return chunks
		}
	}
}
