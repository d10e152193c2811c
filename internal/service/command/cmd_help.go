package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/tuskagent/internal/core"
)

type commandLister interface {
	ListCommands() []core.Command
}

type HelpCommand struct {
	lister    commandLister
	formatter *ResponseFormatter
}

func NewHelpCommand(lister commandLister) *HelpCommand {
	return &HelpCommand{
		lister:    lister,
		formatter: NewResponseFormatter(),
	}
}

func (c *HelpCommand) Name() string {
	return "help"
}

func (c *HelpCommand) Description() string {
	return "List available commands"
}

func (c *HelpCommand) Execute(ctx context.Context, key core.TenantKey, args []string) (string, error) {
	cmds := c.lister.ListCommands()
	items := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		items = append(items, fmt.Sprintf("/%s - %s", cmd.Name(), cmd.Description()))
	}

	return c.formatter.Join(
		c.formatter.Heading("Commands"),
		c.formatter.Bullets(items),
		c.formatter.Note("Just write your order in plain words, no command needed."),
	), nil
}
