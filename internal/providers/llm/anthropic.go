package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sandevgo/tuskagent/internal/core"
)

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4096
)

type Anthropic struct {
	baseProvider
}

func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		baseProvider: newBaseProvider("https://api.anthropic.com", apiKey, model),
	}
}

// Chat maps system messages onto the top-level system field. JSON mode is
// emulated by prefilling the assistant turn with an opening brace.
func (a *Anthropic) Chat(ctx context.Context, history []core.Message, opts core.GenerateOptions) (core.Message, error) {
	var (
		system   []string
		messages []core.Message
	)
	for _, m := range history {
		if m.Role == core.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		messages = append(messages, m)
	}

	prefill := ""
	if opts.JSON {
		prefill = "{"
		messages = append(messages, core.Message{Role: core.RoleAssistant, Content: prefill})
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}

	payload := map[string]any{
		"model":       a.model,
		"max_tokens":  maxTokens,
		"messages":    messages,
		"temperature": opts.Temperature,
	}
	if len(system) > 0 {
		payload["system"] = strings.Join(system, "\n\n")
	}

	resp, err := a.doRequest(ctx, http.MethodPost, "/v1/messages", payload, a.headers())
	if err != nil {
		return core.Message{}, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return core.Message{}, err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Message{}, fmt.Errorf("decode: %w", err)
	}

	var text strings.Builder
	text.WriteString(prefill)
	for _, c := range result.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	return core.Message{Role: core.RoleAssistant, Content: text.String()}, nil
}

func (a *Anthropic) Models(ctx context.Context) ([]core.Model, error) {
	var models []core.Model
	afterID := ""

	for {
		path := "/v1/models?limit=1000"
		if afterID != "" {
			path = fmt.Sprintf("%s&after_id=%s", path, url.QueryEscape(afterID))
		}

		resp, err := a.doRequest(ctx, http.MethodGet, path, nil, a.headers())
		if err != nil {
			return nil, err
		}
		data, err := readBody(resp)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		var result struct {
			Data []struct {
				ID          string `json:"id"`
				DisplayName string `json:"display_name"`
				Type        string `json:"type"`
			} `json:"data"`
			HasMore bool   `json:"has_more"`
			LastID  string `json:"last_id"`
		}
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}

		for _, m := range result.Data {
			if m.Type == "model" {
				models = append(models, core.Model{ID: m.ID, Name: m.DisplayName})
			}
		}

		if !result.HasMore {
			break
		}
		afterID = result.LastID
	}

	return models, nil
}

func (a *Anthropic) headers() map[string]string {
	return map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}
}
