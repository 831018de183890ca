package ai

import (
	"fmt"

	"resumebot/pkg/config"
)

// NewProviderFromConfig constructs the backend selected in the configuration.
func NewProviderFromConfig(cfg *config.AIConfig) (Provider, error) {
	pricing := Pricing{
		PromptTokenUSD:     cfg.PromptTokenCostUSD,
		CompletionTokenUSD: cfg.CompletionTokenCostUSD,
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, pricing), nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, pricing), nil
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case config.ProviderGenAPI:
		return NewGenAPIProvider(GenAPIConfig{
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.BaseURL,
			Model:           cfg.Model,
			PollInterval:    cfg.PollInterval.Std(),
			MaxPollAttempts: cfg.MaxPollAttempts,
		}), nil
	case config.ProviderMock:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
