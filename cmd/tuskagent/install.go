package main

import (
	"context"

	"github.com/sandevgo/tuskagent/internal/config"
	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/internal/providers/llm"
	"github.com/sandevgo/tuskagent/internal/service/installer"
	"github.com/sandevgo/tuskagent/pkg/log"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:          "install",
	Short:        "Create the runtime .env interactively",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		runtimePath := config.GetRuntimePath()
		log.FromCtx(ctx).Info().Str("path", runtimePath).Msg("starting setup")

		if _, err := installer.RunWizard(runtimePath, listModels); err != nil {
			return err
		}

		log.FromCtx(ctx).Info().Msg("setup complete, run `tuskagent start`")
		return nil
	},
}

// listModels asks the provider chosen in the wizard for its models.
func listModels(ctx context.Context, state *installer.InstallState) ([]core.Model, error) {
	cfg := &config.LLMConfig{
		Provider:         state.Get("LLM_PROVIDER"),
		OpenAIAPIKey:     state.Get("OPENAI_API_KEY"),
		AnthropicAPIKey:  state.Get("ANTHROPIC_API_KEY"),
		OpenRouterAPIKey: state.Get("OPENROUTER_API_KEY"),
		OllamaBaseURL:    state.Get("OLLAMA_BASE_URL"),
		CustomBaseURL:    state.Get("CUSTOM_OPENAI_BASE_URL"),
	}
	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return provider.Models(ctx)
}

func init() {
	rootCmd.AddCommand(installCmd)
}
