package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
)

const ollamaContextLength = 32768

// Ollama serves chat through its OpenAI-compatible endpoint but lists
// models through the native tags API.
type Ollama struct {
	*OpenAICompatible
}

func NewOllama(baseURL, apiKey, model string) *Ollama {
	return &Ollama{
		OpenAICompatible: NewOpenAICompatible(OpenAICompatibleConfig{
			BaseURL:  baseURL,
			APIKey:   apiKey,
			Model:    model,
			JSONMode: true,
		}),
	}
}

func (o *Ollama) Models(ctx context.Context) ([]core.Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: "ollama tags"}
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	models := make([]core.Model, 0, len(result.Models))
	for _, m := range result.Models {
		models = append(models, core.Model{ID: m.Name, Name: m.Name, ContextLength: ollamaContextLength})
	}
	return models, nil
}
