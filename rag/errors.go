package rag

import "errors"

// Failure kinds surfaced by the pipeline. Callers match them with errors.Is;
// the wrapped message carries the human-readable detail.
var (
	ErrInvalidConfig        = errors.New("invalid chunking configuration")
	ErrEmptyDocument        = errors.New("no extractable text in document")
	ErrDimensionMismatch    = errors.New("embedding dimension mismatch")
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")
	ErrStorageUnavailable   = errors.New("vector storage unavailable")
	ErrModelUnavailable     = errors.New("language model unavailable")
)
