package core

import "context"

// Command is a chat slash command.
type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, key TenantKey, args []string) (string, error)
}
