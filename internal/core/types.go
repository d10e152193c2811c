package core

import "encoding/json"

const (
	AgentName          = "TuskAgent"
	AgentUserAgent     = "TuskAgent/0.1"
	AgentRepositoryURL = "https://github.com/sandevgo/tuskagent"
	AgentVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length,omitempty"`
}

// GenerateOptions tune a single language-model request.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON-only response when it supports it.
	JSON bool
}

type Generation struct {
	Content string          `json:"content"`
	Raw     json.RawMessage `json:"-"`
}
