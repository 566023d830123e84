package corabooks

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner runs one cleanup sweep.
type Cleaner interface {
	Cleanup(ctx context.Context, opts CleanupOptions) (CleanupResult, error)
}

// Sweeper runs Cleanup periodically until its context is cancelled.
type Sweeper struct {
	cleaner   Cleaner
	interval  time.Duration
	threshold time.Duration
	logger    *slog.Logger
}

func NewSweeper(cleaner Cleaner, interval, threshold time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cleaner:   cleaner,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

// Run blocks until ctx is done. It returns immediately when the interval is not positive.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("cleanup sweeper started", "interval", s.interval, "threshold", s.threshold)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cleanup sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	result, err := s.cleaner.Cleanup(ctx, CleanupOptions{Threshold: s.threshold})
	if err != nil {
		s.logger.Error("cleanup sweep failed", "error", err)
		return
	}

	s.logger.Info("cleanup sweep finished",
		"scanned", result.Scanned,
		"kept", result.Kept,
		"removed", result.Removed,
		"promoted", result.Promoted,
		"deleted_objects", result.DeletedObjects,
	)
}
