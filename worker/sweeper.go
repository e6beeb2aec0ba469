package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/seralyne/cardex/database/repositories"
)

// Sweeper garbage-collects finished trade requests past the retention
// window. Pending requests are never touched no matter how old they are.
type Sweeper struct {
	requests  repositories.TradeRequestRepository
	interval  time.Duration
	retention time.Duration
}

func NewSweeper(requests repositories.TradeRequestRepository, interval, retention time.Duration) *Sweeper {
	return &Sweeper{
		requests:  requests,
		interval:  interval,
		retention: retention,
	}
}

// Run sweeps on a ticker until the context is cancelled. One sweep runs
// immediately so restarts do not postpone overdue cleanup.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	deleted, err := s.requests.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Trade request sweep failed", slog.Any("error", err))
		return
	}
	if deleted > 0 {
		slog.Info("Trade request sweep",
			slog.Int64("deleted", deleted),
			slog.Time("cutoff", cutoff))
	}
}
