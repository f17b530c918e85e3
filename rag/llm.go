package rag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// ChatModel generates a completion for a system/user prompt pair.
type ChatModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// GroqClient talks to the Groq API, which speaks the OpenAI wire
// protocol. Temperature stays low so answers stick to the retrieved
// context.
type GroqClient struct {
	client      openai.Client
	model       string
	temperature float64
	logger      *zap.Logger
}

const groqBaseURL = "https://api.groq.com/openai/v1"

func NewGroqClient(apiKey, model string, logger *zap.Logger) *GroqClient {
	return &GroqClient{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(groqBaseURL),
		),
		model:       model,
		temperature: 0.2,
		logger:      logger,
	}
}

func (c *GroqClient) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", err
	}
	c.logger.Debug("completion finished",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)))
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// isTransient reports whether a model call failure is worth one retry:
// network timeouts, rate limits and server-side errors. Deadline
// expiration is not retried, the budget is already spent.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
