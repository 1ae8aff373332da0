// Package answer produces assistant replies for repository questions.
package answer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// ErrNotConfigured is returned when no answer backend is configured.
var ErrNotConfigured = errors.New("answer service not configured")

// Answerer turns a repository locator and a free-text query into a
// reply. Implementations own their own timeouts and never panic.
type Answerer interface {
	Answer(ctx context.Context, repoLocator, query string) (string, error)
}

// Disabled rejects every query. Used when no API key is configured so
// sends surface a readable in-band error instead of crashing.
type Disabled struct{}

// Answer implements Answerer.
func (Disabled) Answer(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

// LLM answers queries through an OpenAI-compatible chat API.
type LLM struct {
	client *openai.Client
	model  string
}

// NewLLM creates an answerer for the given credentials. baseURL may
// point at any OpenAI-compatible endpoint (Mistral by default). The
// timeout bounds every completion call: an unresponsive upstream
// fails the send instead of leaving it in flight forever.
func NewLLM(apiKey, model, baseURL string, timeout time.Duration) *LLM {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &LLM{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Answer implements Answerer.
func (l *LLM) Answer(ctx context.Context, repoLocator, query string) (string, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You answer questions about the GitHub repository at " +
					repoLocator + ". Be concise and ground every claim in the repository.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: query,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
