package sweep

import (
	"context"
	"log/slog"
	"time"
)

const DefaultInterval = 30 * time.Minute

// Runner drives periodic sweeps until the context is cancelled.
type Runner struct {
	Sweeper  *Sweeper
	Interval time.Duration
	Logger   *slog.Logger
}

func (r *Runner) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("hold sweeper started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("hold sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			count, err := r.Sweeper.SweepOnce(ctx)
			if err != nil {
				logger.Error("hold sweep failed", "error", err)
				continue
			}
			if count > 0 {
				logger.Info("expired stale holds", "count", count)
			}
		}
	}
}
