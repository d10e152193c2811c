package llm

import (
	"context"

	"github.com/sandevgo/tuskagent/internal/config"
	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/pkg/log"
)

// NewProvider creates the chat provider selected by cfg. The config is
// validated first so a missing key fails at startup, not on the first
// customer message.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (core.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var provider core.AIProvider
	switch cfg.Provider {
	case config.ProviderOpenAI:
		provider = NewOpenAI(cfg.OpenAIAPIKey, cfg.Model)
	case config.ProviderAnthropic:
		provider = NewAnthropic(cfg.AnthropicAPIKey, cfg.Model)
	case config.ProviderOpenRouter:
		provider = NewOpenRouter(cfg.OpenRouterAPIKey, cfg.Model)
	case config.ProviderOllama:
		provider = NewOllama(cfg.OllamaBaseURL, cfg.OllamaAPIKey, cfg.Model)
	case config.ProviderCustom:
		provider = NewCustomOpenAI(cfg.CustomBaseURL, cfg.CustomAPIKey, cfg.Model, cfg.CustomJSONMode)
	}

	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("llm provider ready")
	return provider, nil
}

// NewLanguageModel wraps the configured provider as the order engine's
// single-prompt language model.
func NewLanguageModel(ctx context.Context, cfg *config.LLMConfig, opts ...GeneratorOption) (core.LanguageModel, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewGenerator(provider, cfg.Provider, opts...), nil
}
