package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEmbedder is a tiny deterministic embedder for pipeline tests.
type testEmbedder struct {
	dim  int
	fail bool
}

func (e *testEmbedder) Dimension() int { return e.dim }

func (e *testEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, fmt.Errorf("%w: backend down", ErrEmbeddingUnavailable)
	}
	v := make([]float32, e.dim)
	v[len(text)%e.dim] = 1
	return v, nil
}

func (e *testEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

func newTestIngestor(t *testing.T, embedder Embedder, index *Index) *Ingestor {
	t.Helper()
	chunker, err := NewChunker(20, 5)
	require.NoError(t, err)
	return NewIngestor(chunker, embedder, index, zap.NewNop())
}

func TestIngestText_AddsAllChunks(t *testing.T) {
	index := NewIndex(4)
	g := newTestIngestor(t, &testEmbedder{dim: 4}, index)

	res, err := g.IngestText(context.Background(), "Este documento tiene bastante texto para generar varios fragmentos.", "doc.pdf")
	require.NoError(t, err)
	require.Greater(t, res.ChunkCount, 1)
	require.NotEmpty(t, res.DocumentID)
	require.Equal(t, "doc.pdf", res.Filename)
	require.False(t, res.Duplicate)
	require.Equal(t, res.ChunkCount, index.Len())
}

func TestIngestText_EmptyDocument(t *testing.T) {
	index := NewIndex(4)
	g := newTestIngestor(t, &testEmbedder{dim: 4}, index)

	_, err := g.IngestText(context.Background(), "   \n\t ", "blank.pdf")
	require.ErrorIs(t, err, ErrEmptyDocument)
	require.Zero(t, index.Len())
}

func TestIngestText_EmbeddingFailureLeavesIndexUnchanged(t *testing.T) {
	index := NewIndex(4)

	ok := newTestIngestor(t, &testEmbedder{dim: 4}, index)
	_, err := ok.IngestText(context.Background(), "documento previo que sí se indexa correctamente", "prev.pdf")
	require.NoError(t, err)
	before := index.Len()

	failing := newTestIngestor(t, &testEmbedder{dim: 4, fail: true}, index)
	_, err = failing.IngestText(context.Background(), "este documento no debe dejar rastro", "fail.pdf")
	require.ErrorIs(t, err, ErrEmbeddingUnavailable)
	require.Equal(t, before, index.Len(), "prior documents keep their entries, failed one adds none")
}

func TestIngestText_IndexFailureLeavesIndexUnchanged(t *testing.T) {
	index := NewIndex(4)
	// embedder dimensionality disagrees with the index
	g := newTestIngestor(t, &testEmbedder{dim: 3}, index)

	_, err := g.IngestText(context.Background(), "texto que produce vectores del tamaño equivocado", "bad.pdf")
	require.ErrorIs(t, err, ErrDimensionMismatch)
	require.Zero(t, index.Len())
}

func TestIngestText_DedupePolicy(t *testing.T) {
	text := "contenido idéntico subido dos veces seguidas"

	t.Run("default appends duplicates", func(t *testing.T) {
		index := NewIndex(4)
		g := newTestIngestor(t, &testEmbedder{dim: 4}, index)

		first, err := g.IngestText(context.Background(), text, "dup.pdf")
		require.NoError(t, err)
		second, err := g.IngestText(context.Background(), text, "dup.pdf")
		require.NoError(t, err)
		require.False(t, second.Duplicate)
		require.Equal(t, first.ChunkCount+second.ChunkCount, index.Len())
	})

	t.Run("dedupe by hash skips re-ingestion", func(t *testing.T) {
		index := NewIndex(4)
		g := newTestIngestor(t, &testEmbedder{dim: 4}, index)
		g.DedupeByHash = true

		first, err := g.IngestText(context.Background(), text, "dup.pdf")
		require.NoError(t, err)
		second, err := g.IngestText(context.Background(), text, "dup.pdf")
		require.NoError(t, err)
		require.True(t, second.Duplicate)
		require.Equal(t, first.DocumentID, second.DocumentID)
		require.Zero(t, second.ChunkCount)
		require.Equal(t, first.ChunkCount, index.Len())
	})
}

func TestIngestPDF_GarbageBytes(t *testing.T) {
	index := NewIndex(4)
	g := newTestIngestor(t, &testEmbedder{dim: 4}, index)

	_, err := g.IngestPDF(context.Background(), []byte("this is not a pdf"), "fake.pdf")
	require.ErrorIs(t, err, ErrEmptyDocument)
	require.Zero(t, index.Len())
}
