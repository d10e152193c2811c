package llm

import "github.com/sandevgo/tuskagent/internal/core"

const (
	openAIBaseURL     = "https://api.openai.com"
	openRouterBaseURL = "https://openrouter.ai/api"
)

// NewOpenAI talks to the hosted OpenAI API.
func NewOpenAI(apiKey, model string) *OpenAICompatible {
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:  openAIBaseURL,
		APIKey:   apiKey,
		Model:    model,
		JSONMode: true,
	})
}

// NewOpenRouter identifies the agent through OpenRouter's attribution
// headers.
func NewOpenRouter(apiKey, model string) *OpenAICompatible {
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL: openRouterBaseURL,
		APIKey:  apiKey,
		Model:   model,
		ExtraHeaders: map[string]string{
			"HTTP-Referer": core.AgentRepositoryURL,
			"X-Title":      core.AgentName,
		},
		JSONMode: true,
	})
}

// NewCustomOpenAI targets any self-hosted chat completions server. JSON
// mode is opt-in since many of them reject response_format.
func NewCustomOpenAI(baseURL, apiKey, model string, jsonMode bool) *OpenAICompatible {
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Model:    model,
		JSONMode: jsonMode,
	})
}
