package memory

import (
	"context"
	"time"

	"github.com/sandevgo/tuskagent/pkg/log"
)

const DefaultSweepInterval = 15 * time.Minute

// SweepWorker runs Store.Sweep for all tenants on a fixed interval.
type SweepWorker struct {
	store    *Store
	interval time.Duration
}

func NewSweepWorker(store *Store, interval time.Duration) *SweepWorker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &SweepWorker{
		store:    store,
		interval: interval,
	}
}

func (w *SweepWorker) Start(ctx context.Context) error {
	ctx = log.WithComponent(ctx, "memory_sweeper")
	logger := log.FromCtx(ctx)
	logger.Info().Dur("interval", w.interval).Msg("starting memory sweeper")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down memory sweeper")
			return nil
		case <-ticker.C:
			if _, err := w.store.Sweep(ctx, ""); err != nil {
				logger.Error().Err(err).Msg("memory sweep failed")
			}
		}
	}
}

func (w *SweepWorker) Shutdown(ctx context.Context) error {
	return nil
}
