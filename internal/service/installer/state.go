package installer

import (
	"strconv"

	"github.com/sandevgo/tuskagent/pkg/env"
)

// InstallState collects answers keyed by the environment variable they set.
type InstallState struct {
	EnvVars map[string]string
}

func NewInstallState() *InstallState {
	return &InstallState{
		EnvVars: make(map[string]string),
	}
}

func (s *InstallState) Get(key string) string {
	return s.EnvVars[key]
}

// EnvFile is the shape of the generated .env file. Field order is file order.
type EnvFile struct {
	TenantID      string `env:"TENANT_ID"`
	StoreName     string `env:"STORE_NAME"`
	Language      string `env:"AGENT_LANGUAGE"`
	Personality   string `env:"AGENT_PERSONALITY"`
	StorageDriver string `env:"STORAGE_DRIVER"`
	DatabaseURL   string `env:"DATABASE_URL"`

	Provider         string `env:"LLM_PROVIDER"`
	Model            string `env:"LLM_MODEL"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	OllamaBaseURL    string `env:"OLLAMA_BASE_URL"`
	OllamaAPIKey     string `env:"OLLAMA_API_KEY"`
	CustomBaseURL    string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomAPIKey     string `env:"CUSTOM_OPENAI_API_KEY"`

	EnableTelegram bool   `env:"ENABLE_TELEGRAM"`
	EnableCLI      bool   `env:"ENABLE_CLI"`
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
}

func (s *InstallState) EnvFile() *EnvFile {
	telegram, _ := strconv.ParseBool(s.Get("ENABLE_TELEGRAM"))
	return &EnvFile{
		TenantID:         s.Get("TENANT_ID"),
		StoreName:        s.Get("STORE_NAME"),
		Language:         s.Get("AGENT_LANGUAGE"),
		Personality:      s.Get("AGENT_PERSONALITY"),
		StorageDriver:    s.Get("STORAGE_DRIVER"),
		DatabaseURL:      s.Get("DATABASE_URL"),
		Provider:         s.Get("LLM_PROVIDER"),
		Model:            s.Get("LLM_MODEL"),
		OpenAIAPIKey:     s.Get("OPENAI_API_KEY"),
		AnthropicAPIKey:  s.Get("ANTHROPIC_API_KEY"),
		OpenRouterAPIKey: s.Get("OPENROUTER_API_KEY"),
		OllamaBaseURL:    s.Get("OLLAMA_BASE_URL"),
		OllamaAPIKey:     s.Get("OLLAMA_API_KEY"),
		CustomBaseURL:    s.Get("CUSTOM_OPENAI_BASE_URL"),
		CustomAPIKey:     s.Get("CUSTOM_OPENAI_API_KEY"),
		EnableTelegram:   telegram,
		EnableCLI:        !telegram,
		TelegramToken:    s.Get("TELEGRAM_TOKEN"),
	}
}

// Render produces the .env file content.
func (s *InstallState) Render() (string, error) {
	return env.MarshalEnv(s.EnvFile())
}
