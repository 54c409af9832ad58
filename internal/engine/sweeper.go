package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/efreitasn/escrowauction/internal/domain"
)

// SweeperCaller is the address recorded as the caller of finalizations the
// sweeper triggers.
const SweeperCaller domain.Address = "sweeper"

// Sweeper periodically finalizes listings whose end time has passed.
// Finalize is permissionless, so the sweeper holds no privileges beyond
// what any caller has; it only saves participants the round trip.
type Sweeper struct {
	interval time.Duration
	engine   *Engine
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper that ticks every interval.
func NewSweeper(interval time.Duration, engine *Engine, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		interval: interval,
		engine:   engine,
		logger:   logger,
	}
}

// Run ticks at the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx, s.engine.now())
		}
	}
}

// tick finalizes every listing due at now and returns how many settled.
func (s *Sweeper) tick(ctx context.Context, now time.Time) int {
	settled := 0
	for _, key := range s.engine.deadlines.Due(now) {
		if ctx.Err() != nil {
			return settled
		}
		_, err := s.engine.Finalize(ctx, key, SweeperCaller)
		switch {
		case err == nil:
			settled++
		case errors.Is(err, domain.ErrNotValidAuctionSale):
			// Settled or cancelled by someone else since Due returned.
			s.engine.deadlines.Remove(key)
		case errors.Is(err, domain.ErrAuctionNotEnded):
			// Extended by a late bid; the index already holds the new time.
		default:
			s.logger.Error("sweeper failed to finalize",
				slog.String("listing", key.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return settled
}
