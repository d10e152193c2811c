package order

import (
	"encoding/json"
	"strings"

	"github.com/sandevgo/tuskagent/internal/core"
)

// modelOutput is the JSON shape the model is instructed to produce.
type modelOutput struct {
	Order         *core.OrderDraft `json:"order"`
	MissingFields []string         `json:"missingFields"`
	Status        core.OrderStatus `json:"status"`
	Response      string           `json:"response"`
	Intent        string           `json:"intent"`
	Sentiment     string           `json:"sentiment"`
}

// Parse decodes model output. It returns nil for anything that is not a
// usable JSON object; callers must not create an order from a nil result.
func Parse(output string) *core.ExtractionResult {
	raw := extractJSONObject(stripFences(output))
	if raw == "" {
		return nil
	}

	var out modelOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	if out.Status == "" && out.Order == nil && strings.TrimSpace(out.Response) == "" {
		return nil
	}

	return &core.ExtractionResult{
		Order:         out.Order,
		MissingFields: out.MissingFields,
		Status:        core.OrderStatus(strings.ToLower(strings.TrimSpace(string(out.Status)))),
		Response:      strings.TrimSpace(out.Response),
		Intent:        out.Intent,
		Sentiment:     out.Sentiment,
	}
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	return strings.ReplaceAll(s, "```", "")
}

func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content[start:], "}")
	if end == -1 {
		return ""
	}

	return content[start : start+end+1]
}
