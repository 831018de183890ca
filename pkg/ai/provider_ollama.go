package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaProvider is a synchronous backend for a local Ollama server. Local
// models cost nothing, so no pricing is applied.
type OllamaProvider struct {
	client *api.Client
	model  string
}

// NewOllamaProvider creates a provider talking to the Ollama server at
// baseURL.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", baseURL, err)
	}
	return &OllamaProvider{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

// Complete sends a non-streaming chat request.
func (p *OllamaProvider) Complete(ctx context.Context, prompt string) (Completion, error) {
	stream := false
	req := &api.ChatRequest{
		Model: p.model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
	}

	var sb strings.Builder
	var usage Usage
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		if resp.Done {
			usage = Usage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			}
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return Completion{}, NewError(ErrorTypeTimeout, "ollama request canceled", err)
		}
		return Completion{}, NewError(ErrorTypeUnavailable, "ollama request failed", err)
	}

	content := sb.String()
	if content == "" {
		return Completion{}, &Error{
			Type:    ErrorTypeEmpty,
			Message: "ollama returned no content",
			Usage:   usage,
		}
	}

	return Completion{Content: content, Usage: usage}, nil
}
