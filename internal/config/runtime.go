package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/tuskagent/pkg/log"
)

const runtimeEnv = "TUSKAGENT_RUNTIME_PATH"

func GetRuntimePath() string {
	return resolveRuntimePath(os.Getenv(runtimeEnv))
}

func resolveRuntimePath(path string) string {
	if path == "" {
		path = ".tuskagent"
	}
	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}

// LoadEnv reads <runtime>/.env if present. Variables already set in the
// process environment win.
func LoadEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
