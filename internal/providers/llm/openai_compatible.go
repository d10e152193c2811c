package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sandevgo/tuskagent/internal/core"
)

type OpenAICompatible struct {
	baseProvider
	authHeader   string
	authPrefix   string
	extraHeaders map[string]string
	// jsonMode is false for servers that reject response_format.
	jsonMode bool
}

type OpenAICompatibleConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// AuthHeader and AuthPrefix default to a bearer token.
	AuthHeader   string
	AuthPrefix   string
	ExtraHeaders map[string]string
	JSONMode     bool
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	if cfg.AuthHeader == "" {
		cfg.AuthHeader, cfg.AuthPrefix = "Authorization", "Bearer "
	}
	return &OpenAICompatible{
		baseProvider: newBaseProvider(cfg.BaseURL, cfg.APIKey, cfg.Model),
		authHeader:   cfg.AuthHeader,
		authPrefix:   cfg.AuthPrefix,
		extraHeaders: cfg.ExtraHeaders,
		jsonMode:     cfg.JSONMode,
	}
}

func (o *OpenAICompatible) Chat(ctx context.Context, history []core.Message, opts core.GenerateOptions) (core.Message, error) {
	payload := map[string]any{
		"model":       o.model,
		"messages":    history,
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		payload["max_tokens"] = opts.MaxTokens
	}
	if opts.JSON && o.jsonMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	resp, err := o.doRequest(ctx, http.MethodPost, "/v1/chat/completions", payload, o.headers())
	if err != nil {
		return core.Message{}, err
	}
	defer resp.Body.Close()

	return parseOpenAIResponse(resp)
}

func (o *OpenAICompatible) Models(ctx context.Context) ([]core.Model, error) {
	resp, err := o.doRequest(ctx, http.MethodGet, "/v1/models", nil, o.headers())
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var apiResp struct {
		Data []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			ContextLength int    `json:"context_length"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}

	models := make([]core.Model, 0, len(apiResp.Data))
	for _, m := range apiResp.Data {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		models = append(models, core.Model{ID: m.ID, Name: name, ContextLength: m.ContextLength})
	}
	return models, nil
}

func (o *OpenAICompatible) headers() map[string]string {
	headers := make(map[string]string, len(o.extraHeaders)+1)
	if o.authHeader != "" && o.apiKey != "" {
		headers[o.authHeader] = o.authPrefix + o.apiKey
	}
	for k, v := range o.extraHeaders {
		headers[k] = v
	}
	return headers
}

func parseOpenAIResponse(resp *http.Response) (core.Message, error) {
	data, err := readBody(resp)
	if err != nil {
		return core.Message{}, err
	}

	var result struct {
		Choices []struct {
			Message core.Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Message{}, fmt.Errorf("decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return core.Message{}, fmt.Errorf("empty choices: %s", string(data))
	}
	return result.Choices[0].Message, nil
}
