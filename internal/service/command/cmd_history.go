package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sandevgo/tuskagent/internal/core"
)

const (
	defaultHistoryTurns = 6
	maxHistoryTurns     = 20
	previewRunes        = 120
)

type HistoryCommand struct {
	memory    core.Memory
	formatter *ResponseFormatter
}

func NewHistoryCommand(memory core.Memory) *HistoryCommand {
	return &HistoryCommand{
		memory:    memory,
		formatter: NewResponseFormatter(),
	}
}

func (c *HistoryCommand) Name() string {
	return "history"
}

func (c *HistoryCommand) Description() string {
	return "Show what the assistant remembers from this conversation"
}

func (c *HistoryCommand) Execute(ctx context.Context, key core.TenantKey, args []string) (string, error) {
	limit := defaultHistoryTurns
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return c.formatter.Usage("/history [turns]", "/history", "/history 10"), nil
		}
		limit = min(n, maxHistoryTurns)
	}

	turns, err := c.memory.GetRecent(ctx, key, limit)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}
	if len(turns) == 0 {
		return c.formatter.Heading("Nothing remembered yet"), nil
	}

	items := make([]string, 0, len(turns))
	for _, t := range turns {
		who := "Assistant"
		if t.IsFromCustomer {
			who = "You"
		}
		items = append(items, fmt.Sprintf("%s: %s", who, Escape(preview(t.Content))))
	}

	return c.formatter.Join(
		c.formatter.Heading(fmt.Sprintf("Last %d messages", len(turns))),
		c.formatter.Bullets(items),
	), nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "…"
}
