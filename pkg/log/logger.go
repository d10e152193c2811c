package log

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
)

func NewContextWithLogger(ctx context.Context, debug bool) (context.Context, func()) {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return ""
	}

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Use a diode (ring buffer) for non-blocking logging
	wr := diode.NewWriter(os.Stderr, 1000, 5*time.Millisecond, func(missed int) {
		fmt.Fprintf(os.Stderr, "Logger Dropped %d messages\n", missed)
	})

	output := zerolog.ConsoleWriter{
		Out:        wr,
		TimeFormat: time.DateTime,
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		},
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		CallerWithSkipFrameCount(2).
		Logger()

	log.Logger = logger

	return log.With().Logger().WithContext(ctx), func() {
		wr.Close()
	}
}

// FromCtx returns the context logger, or the global one when ctx has none.
func FromCtx(ctx context.Context) *zerolog.Logger {
	return log.Ctx(ctx)
}

// Scope identifies the tenant-scoped subject of a log line.
type Scope interface {
	LogFields() (tenantID, participantID, conversationID string)
}

// WithScope returns a context whose logger carries the scope's ids.
func WithScope(ctx context.Context, s Scope) context.Context {
	tenantID, participantID, conversationID := s.LogFields()
	lc := FromCtx(ctx).With().
		Str("tenant_id", tenantID).
		Str("participant_id", participantID)
	if conversationID != "" {
		lc = lc.Str("conversation_id", conversationID)
	}
	logger := lc.Logger()
	return logger.WithContext(ctx)
}

func WithComponent(ctx context.Context, name string) context.Context {
	logger := FromCtx(ctx).With().Str("component", name).Logger()
	return logger.WithContext(ctx)
}
