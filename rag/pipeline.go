package rag

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Ingestor runs the ingestion pipeline: extract text, chunk, embed,
// insert. All chunks of a document are committed to the index together
// or not at all, so a failure mid-document never leaves orphaned entries.
type Ingestor struct {
	chunker  *Chunker
	embedder Embedder
	index    *Index
	logger   *zap.Logger

	// DedupeByHash skips re-ingestion when a document with identical
	// extracted text was already indexed. Off by default: re-uploading
	// the same file appends duplicate entries, matching the original
	// system's behavior.
	DedupeByHash bool
}

func NewIngestor(chunker *Chunker, embedder Embedder, index *Index, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// IngestPDF extracts the text layer from a PDF and feeds it through the
// pipeline. Documents with no extractable text fail with ErrEmptyDocument.
func (g *Ingestor) IngestPDF(ctx context.Context, data []byte, filename string) (IngestionResult, error) {
	text, err := extractPDFText(data)
	if err != nil {
		return IngestionResult{}, err
	}
	return g.IngestText(ctx, text, filename)
}

// IngestText is the extraction-independent part of the pipeline, also
// used directly for plain-text uploads.
func (g *Ingestor) IngestText(ctx context.Context, text, filename string) (IngestionResult, error) {
	if strings.TrimSpace(text) == "" {
		return IngestionResult{}, fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}

	hash := contentHash(filename, text)
	if g.DedupeByHash {
		if docID, ok := g.index.HasDocument(hash); ok {
			g.logger.Info("skipping duplicate document",
				zap.String("filename", filename),
				zap.String("document_id", docID))
			return IngestionResult{DocumentID: docID, Filename: filename, Duplicate: true}, nil
		}
	}

	docID := uuid.NewString()
	chunks := g.chunker.Chunk(text, filename, docID)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := g.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return IngestionResult{}, fmt.Errorf("embedding document %s: %w", filename, err)
	}

	if err := g.index.InsertDocument(docID, hash, chunks, vectors); err != nil {
		return IngestionResult{}, fmt.Errorf("indexing document %s: %w", filename, err)
	}

	g.logger.Info("document ingested",
		zap.String("filename", filename),
		zap.String("document_id", docID),
		zap.Int("chunks", len(chunks)))

	return IngestionResult{DocumentID: docID, Filename: filename, ChunkCount: len(chunks)}, nil
}

func extractPDFText(data []byte) (string, error) {
	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: unreadable pdf: %v", ErrEmptyDocument, err)
	}
	plain, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: no text layer: %v", ErrEmptyDocument, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: reading text layer: %v", ErrEmptyDocument, err)
	}
	return buf.String(), nil
}

func contentHash(filename, text string) string {
	h := sha256.New()
	h.Write([]byte(filename))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
