package rag

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_RoundTripSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	x, err := Open(path, 2)
	require.NoError(t, err)

	err = x.InsertDocument("doc-1", "hash-1",
		[]Chunk{
			{ID: "a", Content: "primero", Source: "f.pdf", DocumentID: "doc-1", Seq: 0},
			{ID: "b", Content: "segundo", Source: "f.pdf", DocumentID: "doc-1", Seq: 1},
		},
		[][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	query := []float32{0.9, 0.1}
	before := x.Search(query, 2)
	require.NoError(t, x.Close())

	// fresh instance over the same file
	x2, err := Open(path, 2)
	require.NoError(t, err)
	defer x2.Close()

	require.Equal(t, 2, x2.Len())
	after := x2.Search(query, 2)
	require.Len(t, after, len(before))
	for i := range before {
		require.Equal(t, before[i].Entry.Chunk, after[i].Entry.Chunk)
		require.Equal(t, before[i].Entry.Vector, after[i].Entry.Vector)
		require.InDelta(t, before[i].Score, after[i].Score, 1e-9)
	}

	id, ok := x2.HasDocument("hash-1")
	require.True(t, ok, "document hash must survive restart")
	require.Equal(t, "doc-1", id)
}

func TestOpen_SingleInsertIsDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	x, err := Open(path, 2)
	require.NoError(t, err)

	_, err = x.Insert(Chunk{ID: "solo", Content: "único", Source: "s.pdf"}, []float32{1, 1})
	require.NoError(t, err)
	require.NoError(t, x.Close())

	x2, err := Open(path, 2)
	require.NoError(t, err)
	defer x2.Close()

	require.Equal(t, 1, x2.Len())
	results := x2.Search([]float32{1, 1}, 1)
	require.Len(t, results, 1)
	require.Equal(t, "solo", results[0].Entry.Chunk.ID)
	require.Equal(t, "único", results[0].Entry.Chunk.Content)
}

func TestOpen_DimensionChangeIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	x, err := Open(path, 2)
	require.NoError(t, err)
	_, err = x.Insert(Chunk{ID: "a", Content: "x"}, []float32{1, 0})
	require.NoError(t, err)
	require.NoError(t, x.Close())

	_, err = Open(path, 5)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}
