package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder()
	ctx := context.Background()

	text := "Go es excelente para servicios concurrentes."
	v1, err := e.Embed(ctx, text)
	require.NoError(t, err)
	v2, err := e.Embed(ctx, text)
	require.NoError(t, err)

	require.Equal(t, v1, v2, "same text must produce the same vector")
}

func TestHashEmbedder_FixedDimension(t *testing.T) {
	e := NewHashEmbedder()
	ctx := context.Background()

	for _, text := range []string{"", "corto", "un texto bastante más largo que el anterior"} {
		v, err := e.Embed(ctx, text)
		require.NoError(t, err)
		require.Len(t, v, e.Dimension())
	}
}

func TestHashEmbedder_DifferentTextsDiffer(t *testing.T) {
	e := NewHashEmbedder()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "gatos y perros")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "astronomía cuántica")
	require.NoError(t, err)

	require.NotEqual(t, v1, v2)
}

func TestHashEmbedder_BatchMatchesSingleCalls(t *testing.T) {
	e := NewHashEmbedder()
	ctx := context.Background()

	texts := []string{"primero", "segundo", "tercero"}
	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		require.Equal(t, single, batch[i], "batch order must match input order")
	}
}

func TestHashEmbedder_SharedWordsScoreHigher(t *testing.T) {
	e := NewHashEmbedder()
	ctx := context.Background()

	base, err := e.Embed(ctx, "el gato duerme en la alfombra")
	require.NoError(t, err)
	related, err := e.Embed(ctx, "el gato come en la cocina")
	require.NoError(t, err)
	unrelated, err := e.Embed(ctx, "física de partículas subatómicas")
	require.NoError(t, err)

	require.Greater(t, cosine(base, related), cosine(base, unrelated),
		"texts sharing words must be closer than unrelated texts")
}
