package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/tuskagent/pkg/log"
	"github.com/sandevgo/tuskagent/pkg/srv"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the agent services",
	Long:  `Initializes storage, memory and the language model, then starts the configured transports (Telegram, CLI) and background workers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting tuskagent")

		services := NewServices(ctx)

		srv.StartServices(ctx, services)

		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("tuskagent has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
