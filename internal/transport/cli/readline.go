package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/tuskagent/internal/config"
	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/internal/service/agent"
	"github.com/sandevgo/tuskagent/pkg/log"
)

const (
	defaultParticipant  = "cli-local"
	defaultConversation = "cli"
)

type Handler interface {
	Handle(ctx context.Context, in agent.Inbound) (agent.Reply, error)
	Tenant() core.TenantProfile
}

type ReadLine struct {
	cfg     *config.AppConfig
	handler Handler
	rl      *readline.Instance
	key     core.TenantKey
}

func NewReadLine(handler Handler, cfg *config.AppConfig) (*ReadLine, error) {
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     cfg.GetHistoryPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:     cfg,
		handler: handler,
		rl:      rl,
		key:     core.NewTenantKey(handler.Tenant().TenantID, defaultConversation, defaultParticipant),
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Str("key", r.key.String()).Msg("ReadLine chat started. Type 'exit' to quit.")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		r.exchange(ctx, r.rl.Stdout(), line)
	}
}

func (r *ReadLine) exchange(ctx context.Context, out io.Writer, line string) {
	reply, err := r.handler.Handle(ctx, agent.Inbound{Key: r.key, Text: line})
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("agent run failed")
	}

	if reply.Text != "" {
		fmt.Fprintf(out, "%s\n", reply.Text)
	}
	if reply.Result != nil {
		fmt.Fprintf(out, "\033[38;5;240m[%s] missing: %s\033[0m\n",
			reply.Result.Status, strings.Join(reply.Result.MissingFields, ", "))
	}
	if err != nil && reply.Text == "" {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
