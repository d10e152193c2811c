package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/tuskagent/internal/core"
)

type ForgetCommand struct {
	memory    core.Memory
	formatter *ResponseFormatter
}

func NewForgetCommand(memory core.Memory) *ForgetCommand {
	return &ForgetCommand{
		memory:    memory,
		formatter: NewResponseFormatter(),
	}
}

func (c *ForgetCommand) Name() string {
	return "forget"
}

func (c *ForgetCommand) Description() string {
	return "Erase everything the assistant remembers about you"
}

func (c *ForgetCommand) Execute(ctx context.Context, key core.TenantKey, args []string) (string, error) {
	deleted, err := c.memory.WipeParticipant(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to erase memory: %w", err)
	}

	return c.formatter.Join(
		c.formatter.Done("Your conversation history was erased"),
		c.formatter.Field("Records removed", fmt.Sprintf("%d", deleted)),
	), nil
}
