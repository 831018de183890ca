package ai

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxOutputTokens = 4096

// AnthropicProvider is a synchronous backend using the official Anthropic
// client.
type AnthropicProvider struct {
	client  anthropic.Client
	model   anthropic.Model
	pricing Pricing
}

// NewAnthropicProvider creates a provider for the given model.
func NewAnthropicProvider(apiKey, model string, pricing Pricing) *AnthropicProvider {
	return &AnthropicProvider{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   anthropic.Model(model),
		pricing: pricing,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete sends a single-turn message request and concatenates the text
// blocks of the response.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (Completion, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: anthropicMaxOutputTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return Completion{}, NewError(ErrorTypeTimeout, "anthropic request canceled", err)
		}
		return Completion{}, NewError(ErrorTypeUnavailable, "anthropic request failed", err)
	}

	usage := Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	usage.CostUSD = p.pricing.Cost(usage.PromptTokens, usage.CompletionTokens)

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	content := sb.String()
	if content == "" {
		return Completion{}, &Error{
			Type:    ErrorTypeEmpty,
			Message: "anthropic returned no text content",
			Usage:   usage,
		}
	}

	return Completion{Content: content, Usage: usage}, nil
}
