package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// NoInformation is the fixed fallback returned whenever the knowledge
// base cannot ground an answer. It is a business outcome, not an error.
const NoInformation = "No tengo esa información"

// Answerer runs the retrieval-augmented query path: embed the question,
// retrieve the closest chunks, and ask the model to answer from those
// chunks alone. When retrieval comes back empty the model is never
// called; the grounding guarantee cannot be delegated to a prompt.
type Answerer struct {
	embedder Embedder
	index    *Index
	model    ChatModel
	logger   *zap.Logger

	TopK     int           // chunks of context per question
	MinScore float64       // relevance floor; weaker matches are discarded
	Timeout  time.Duration // hard deadline on the model call
}

func NewAnswerer(embedder Embedder, index *Index, model ChatModel, logger *zap.Logger) *Answerer {
	return &Answerer{
		embedder: embedder,
		index:    index,
		model:    model,
		logger:   logger,
		TopK:     3,
		MinScore: 0.15,
		Timeout:  30 * time.Second,
	}
}

func (a *Answerer) Answer(ctx context.Context, question string) (Answer, error) {
	qvec, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("embedding question: %w", err)
	}

	results := a.index.Search(qvec, a.TopK)
	chunks := make([]Chunk, 0, len(results))
	for _, r := range results {
		if r.Score < a.MinScore {
			continue
		}
		chunks = append(chunks, r.Entry.Chunk)
	}

	if len(chunks) == 0 {
		a.logger.Info("no relevant context, returning fallback",
			zap.Int("index_size", a.index.Len()))
		return Answer{Text: NoInformation}, nil
	}

	system, user := buildPrompt(question, chunks)
	text, err := a.complete(ctx, system, user)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	text = strings.TrimSpace(text)
	if declinesToAnswer(text) {
		text = NoInformation
	}
	return Answer{Text: text, Context: chunks}, nil
}

// complete calls the model under the configured deadline, retrying once
// on a transient failure.
func (a *Answerer) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	text, err := a.model.Complete(ctx, system, user)
	if err == nil {
		return text, nil
	}
	if !isTransient(err) {
		return "", err
	}
	a.logger.Warn("model call failed, retrying once", zap.Error(err))
	return a.model.Complete(ctx, system, user)
}

func buildPrompt(question string, chunks []Chunk) (system, user string) {
	var ctxText strings.Builder
	for i, c := range chunks {
		if i > 0 {
			ctxText.WriteString("\n\n")
		}
		ctxText.WriteString(c.Content)
	}

	system = "Eres Suriel, un asistente que responde SOLO con la información de la base de datos privada proporcionada. " +
		"Tu objetivo es ser conciso y útil. No inventes ni uses conocimiento externo. " +
		"Si la respuesta NO está en el contexto, tu ÚNICA respuesta debe ser: \"" + NoInformation + "\"."

	user = fmt.Sprintf("Contexto relevante de la base de datos:\n---\n%s\n---\n\nPregunta: %s\nRespuesta:",
		ctxText.String(), question)
	return system, user
}

// declinesToAnswer detects the model reporting that the context does not
// contain the answer, so callers always see the exact fallback string.
func declinesToAnswer(text string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(NoInformation))
}
