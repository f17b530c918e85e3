package rag

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder is an interface so the embedding backend can be swapped
// (local hashing model vs. a hosted API) without touching the pipeline.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch preserves input order: vector i belongs to texts[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// HashEmbedder is a local, deterministic embedder: hashed unigram and
// bigram features folded into a fixed 384-dim vector (the dimensionality
// of the MiniLM family), L2-normalized. It needs no network and always
// produces the same vector for the same text, which is what the rest of
// the pipeline relies on.
type HashEmbedder struct {
	dim int
}

const hashEmbedderDim = 384

func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{dim: hashEmbedderDim}
}

func (e *HashEmbedder) Dimension() int { return e.dim }

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	tokens := tokenize(text)
	for i, tok := range tokens {
		e.fold(vec, tok)
		if i > 0 {
			e.fold(vec, tokens[i-1]+" "+tok)
		}
	}
	normalize(vec)
	return vec, nil
}

func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (e *HashEmbedder) fold(vec []float32, feature string) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dim))
	if (sum>>63)&1 == 0 {
		vec[idx]++
	} else {
		vec[idx]--
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

// OpenAIEmbedder calls a hosted embeddings API. Same text, same model
// version, same vector; failures surface as ErrEmbeddingUnavailable.
type OpenAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
	dim    int
}

func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.EmbeddingModelTextEmbedding3Small,
		dim:    1536,
	}
}

func (e *OpenAIEmbedder) Dimension() int { return e.dim }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbeddingUnavailable, len(resp.Data), len(texts))
	}
	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		vecs[int(d.Index)] = vec
	}
	return vecs, nil
}
