package command

import (
	"github.com/sandevgo/tuskagent/internal/core"
)

func NewCommands(memory core.Memory) []core.Command {
	return []core.Command{
		NewForgetCommand(memory),
		NewHistoryCommand(memory),
	}
}
