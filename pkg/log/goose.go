package log

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// GooseLogger adapts zerolog to goose's Logger interface. Migration
// progress is debug noise; only failures surface at higher levels.
type GooseLogger struct {
	logger zerolog.Logger
}

func (g *GooseLogger) Fatalf(format string, v ...any) {
	g.logger.Fatal().Msgf(format, v...)
}

func (g *GooseLogger) Printf(format string, v ...any) {
	g.logger.Debug().Msgf(strings.TrimSuffix(format, "\n"), v...)
}

func NewGooseLoggerFromCtx(ctx context.Context) *GooseLogger {
	return &GooseLogger{
		logger: FromCtx(ctx).With().Str("component", "migrations").Logger(),
	}
}
