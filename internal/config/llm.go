package config

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/tuskagent/pkg/log"
)

// Supported LLM_PROVIDER values.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderCustom     = "custom"
)

type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"openrouter"`
	Model    string `env:"LLM_MODEL,required,notEmpty"`

	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`

	OllamaBaseURL string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaAPIKey  string `env:"OLLAMA_API_KEY"`

	CustomBaseURL  string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomAPIKey   string `env:"CUSTOM_OPENAI_API_KEY"`
	CustomJSONMode bool   `env:"CUSTOM_OPENAI_JSON_MODE" envDefault:"false"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	c, err := ParseLLMConfig()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	return c
}

func ParseLLMConfig() (*LLMConfig, error) {
	c := &LLMConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the selected provider has its credentials.
func (c LLMConfig) Validate() error {
	var missing string
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			missing = "OPENAI_API_KEY"
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			missing = "ANTHROPIC_API_KEY"
		}
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			missing = "OPENROUTER_API_KEY"
		}
	case ProviderOllama:
		if c.OllamaBaseURL == "" {
			missing = "OLLAMA_BASE_URL"
		}
	case ProviderCustom:
		if c.CustomBaseURL == "" {
			missing = "CUSTOM_OPENAI_BASE_URL"
		}
	default:
		return fmt.Errorf("unknown llm provider: %q", c.Provider)
	}
	if missing != "" {
		return fmt.Errorf("llm provider %s requires %s", c.Provider, missing)
	}
	return nil
}
