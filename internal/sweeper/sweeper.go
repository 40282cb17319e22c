// Package sweeper runs the periodic reclamation of expired revocation
// records. Revoked tokens only need to stay blacklisted until they expire;
// after that the records are dead weight, and the sweeper removes them.
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// Purger removes expired revocation records, returning the number removed.
type Purger interface {
	PurgeExpiredRevocations(ctx context.Context) (int64, error)
}

// Sweeper periodically purges expired revocation records.
type Sweeper struct {
	purger       Purger
	interval     time.Duration
	sweepTimeout time.Duration
	logger       *slog.Logger
}

// New creates a sweeper that purges on the given interval. Each sweep is
// bounded by a timeout of the interval, capped at one minute.
func New(purger Purger, interval time.Duration, logger *slog.Logger) *Sweeper {
	timeout := interval
	if timeout > time.Minute {
		timeout = time.Minute
	}

	return &Sweeper{
		purger:       purger,
		interval:     interval,
		sweepTimeout: timeout,
		logger:       logger,
	}
}

// Run sweeps on the configured interval until ctx is cancelled. A failed
// sweep is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("revocation sweeper started",
		slog.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("revocation sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.sweepTimeout)
	defer cancel()

	purged, err := s.purger.PurgeExpiredRevocations(sweepCtx)
	if err != nil {
		s.logger.Error("revocation sweep failed",
			slog.String("error", err.Error()),
		)
		return
	}

	if purged > 0 {
		s.logger.Info("revocation sweep complete",
			slog.Int64("purged", purged),
		)
	}
}
