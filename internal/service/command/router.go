package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/pkg/log"
)

type Router struct {
	commands map[string]core.Command
}

func New(commands []core.Command) *Router {
	c := &Router{
		commands: make(map[string]core.Command),
	}

	for _, cmd := range commands {
		c.Register(cmd)
	}
	c.Register(NewHelpCommand(c))
	return c
}

func (c *Router) Register(cmd core.Command) {
	c.commands[cmd.Name()] = cmd
}

// Execute runs input as a command. handled is false for ordinary messages.
func (c *Router) Execute(ctx context.Context, key core.TenantKey, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", false
	}

	parts := strings.Fields(input)
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	// telegram appends the bot name in groups: /help@tusk_bot
	name, _, _ = strings.Cut(name, "@")
	args := parts[1:]

	cmd, ok := c.commands[name]
	if !ok {
		return fmt.Sprintf("Unknown command: /%s", name), true
	}

	result, err := cmd.Execute(ctx, key, args)
	if err != nil {
		// storage errors stay in the log, never in the chat
		log.FromCtx(ctx).Error().Err(err).Str("command", name).Msg("command failed")
		return fmt.Sprintf("Sorry, /%s failed. Please try again in a moment.", name), true
	}
	return result, true
}

// ListCommands returns the registered commands sorted by name.
func (c *Router) ListCommands() []core.Command {
	res := make([]core.Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		res = append(res, cmd)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name() < res[j].Name()
	})
	return res
}
