package order

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandevgo/tuskagent/internal/core"
)

const DefaultLanguage = "Egyptian Arabic"

// SystemPrompt is sent ahead of every extraction prompt.
const SystemPrompt = "You are the order-taking assistant of an online store. " +
	"You never invent products, prices or policies. You answer with a single JSON object and nothing else."

// PromptInput is everything one extraction prompt is built from.
type PromptInput struct {
	Message   string
	History   []core.MemoryTurn
	Hints     Hints
	Customer  core.CustomerProfile
	Tenant    core.TenantProfile
	Knowledge string
}

const outputSchema = `{
  "order": {
    "customerName": "string",
    "customerPhone": "string",
    "customerAddress": "string",
    "city": "string",
    "items": [{"product": "string", "size": "string", "color": "string", "quantity": 1}]
  } | null,
  "missingFields": ["customerName" | "customerPhone" | "customerAddress" | "city" | "product"],
  "status": "collecting_data" | "complete" | "confirmed" | "clarification_needed",
  "response": "string",
  "intent": "string",
  "sentiment": "positive" | "neutral" | "negative"
}`

const statusRules = `Status rules:
1. "collecting_data" while any of customerName, customerPhone, customerAddress, city or a product is unknown. Ask for what is missing.
2. "complete" when every field is known but the CURRENT message does not explicitly confirm. Summarize the order and ask the customer to confirm.
3. "confirmed" only when every field is known AND the CURRENT message explicitly confirms. Earlier confirmations in the history do not count.
4. "clarification_needed" when the request is ambiguous.
Never invent order numbers, prices or delivery dates.`

// BuildPrompt assembles the single extraction instruction.
func BuildPrompt(in PromptInput) string {
	language := strings.TrimSpace(in.Tenant.Language)
	if language == "" {
		language = DefaultLanguage
	}

	var sb strings.Builder

	sb.WriteString("You are the sales assistant")
	if in.Tenant.StoreName != "" {
		fmt.Fprintf(&sb, " of %q", in.Tenant.StoreName)
	}
	sb.WriteString(". You take orders through chat.\n")
	if p := strings.TrimSpace(in.Tenant.Personality); p != "" {
		fmt.Fprintf(&sb, "Personality and tone: %s\n", p)
	}
	fmt.Fprintf(&sb, "Always write the \"response\" field in %s.\n", language)

	if in.Customer.Name != "" || in.Customer.Phone != "" {
		sb.WriteString("\n### Known Customer\n")
		if in.Customer.Name != "" {
			fmt.Fprintf(&sb, "Name: %s\n", in.Customer.Name)
		}
		if in.Customer.Phone != "" {
			fmt.Fprintf(&sb, "Phone: %s\n", in.Customer.Phone)
		}
	}

	if k := strings.TrimSpace(in.Knowledge); k != "" {
		sb.WriteString("\n### Store Knowledge\n")
		sb.WriteString(k)
		sb.WriteString("\n")
	}

	sb.WriteString("\n### Conversation\n")
	if len(in.History) == 0 {
		sb.WriteString("(no previous messages)\n")
	}
	for _, turn := range in.History {
		role := "AGENT"
		if turn.IsFromCustomer {
			role = "CUSTOMER"
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, turn.Content)
	}

	sb.WriteString("\n### Current Message\n")
	fmt.Fprintf(&sb, "CUSTOMER: %s\n", in.Message)

	if !in.Hints.Empty() {
		hints, _ := json.Marshal(in.Hints)
		sb.WriteString("\n### Detected Fields\n")
		sb.WriteString("These values were matched in the current message. Treat them as authoritative when the conversation is unclear:\n")
		sb.Write(hints)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(statusRules)
	sb.WriteString("\n\nOutput JSON only, no prose and no code fences, in this schema:\n")
	sb.WriteString(outputSchema)
	sb.WriteString("\n")

	return sb.String()
}
