package srv

import (
	"context"
	"time"

	"github.com/sandevgo/tuskagent/pkg/log"
)

// ShutdownTimeout bounds how long each service may take to stop once the
// run context is done.
const ShutdownTimeout = 10 * time.Second

type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// StartServices launches every service on its own goroutine. A start error
// is fatal: the process cannot serve customers with a component missing.
func StartServices(ctx context.Context, services []Service) {
	for _, service := range services {
		go func(service Service) {
			if err := service.Start(ctx); err != nil && ctx.Err() == nil {
				log.FromCtx(ctx).Fatal().Err(err).Msgf("%T failed to start", service)
			}
		}(service)
	}
}

// ShutdownServices waits for ctx to end, then stops services in reverse
// start order so workers finish before the storage they write to closes.
// Each Shutdown gets a fresh deadline because ctx is already cancelled.
func ShutdownServices(ctx context.Context, services []Service) {
	<-ctx.Done()
	logger := log.FromCtx(ctx)
	base := context.WithoutCancel(ctx)

	for i := len(services) - 1; i >= 0; i-- {
		sctx, cancel := context.WithTimeout(base, ShutdownTimeout)
		if err := services[i].Shutdown(sctx); err != nil {
			logger.Error().Err(err).Msgf("%T failed to shutdown", services[i])
		}
		cancel()
	}
}
