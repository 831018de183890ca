package ai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider is a synchronous backend using the official OpenAI client.
// With a custom base URL it also serves OpenAI-compatible gateways
// (OpenRouter and similar).
type OpenAIProvider struct {
	client  openai.Client
	model   string
	pricing Pricing
}

// NewOpenAIProvider creates a provider for the given model. baseURL may be
// empty for the default API endpoint.
func NewOpenAIProvider(apiKey, model, baseURL string, pricing Pricing) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		model:   model,
		pricing: pricing,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends a single-turn chat completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (Completion, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return Completion{}, NewError(ErrorTypeTimeout, "openai request canceled", err)
		}
		return Completion{}, NewError(ErrorTypeUnavailable, "openai request failed", err)
	}

	usage := Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	usage.CostUSD = p.pricing.Cost(usage.PromptTokens, usage.CompletionTokens)

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Completion{}, &Error{
			Type:    ErrorTypeEmpty,
			Message: "openai returned no content",
			Usage:   usage,
		}
	}

	return Completion{Content: resp.Choices[0].Message.Content, Usage: usage}, nil
}
