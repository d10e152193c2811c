package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/tuskagent/internal/transport/mcpadmin"
	"github.com/sandevgo/tuskagent/pkg/log"
	"github.com/sandevgo/tuskagent/pkg/srv"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve memory and knowledge admin tools over MCP stdio",
	Long: `Runs the memory store with its sweeper and exposes maintenance and knowledge
tools to an MCP client on stdin/stdout. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)

		cfg := loadAppConfig(ctx)
		repos, err := initStorage(ctx, cfg)
		if err != nil {
			return err
		}

		store, sweeper := initMemory(cfg, repos)
		admin := mcpadmin.NewServer(store, repos.knowledge, os.Stdin, os.Stdout)

		services := []srv.Service{srv.NewCleanup("storage", repos.close), sweeper}
		srv.StartServices(ctx, services)

		if err := admin.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("mcp server stopped")
		}
		stop()

		srv.ShutdownServices(ctx, services)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
