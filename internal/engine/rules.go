package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/escrowauction/internal/domain"
)

// Rules are the configurable auction parameters.
type Rules struct {
	// MinReserve is the lowest reserve price a listing may set.
	MinReserve domain.Amount
	// MinIncrement is the absolute minimum raise over the top bid.
	MinIncrement domain.Amount
	// MinIncrementBps is the proportional minimum raise, in basis points of
	// the top bid. The larger of the two increments applies.
	MinIncrementBps int64
	// AntiSnipeWindow: a bid landing with less than this much time left
	// pushes the deadline out.
	AntiSnipeWindow time.Duration
	// AntiSnipeExtension is how far past the bid the deadline is pushed.
	AntiSnipeExtension time.Duration
}

// DefaultRules returns the parameters used when nothing is configured.
func DefaultRules() Rules {
	return Rules{
		MinReserve:         domain.Wei(1000),
		MinIncrement:       domain.Wei(1),
		MinIncrementBps:    500,
		AntiSnipeWindow:    15 * time.Minute,
		AntiSnipeExtension: 15 * time.Minute,
	}
}

// Validate rejects parameter sets that would allow degenerate auctions.
func (r Rules) Validate() error {
	if r.MinReserve.IsNegative() || !r.MinReserve.IsInteger() {
		return fmt.Errorf("min reserve must be a non-negative integer, got %s", r.MinReserve)
	}
	if !r.MinIncrement.IsPositive() || !r.MinIncrement.IsInteger() {
		return fmt.Errorf("min increment must be a positive integer, got %s", r.MinIncrement)
	}
	if r.MinIncrementBps < 0 || r.MinIncrementBps > 10_000 {
		return fmt.Errorf("min increment bps must be within [0, 10000], got %d", r.MinIncrementBps)
	}
	if r.AntiSnipeWindow < 0 || r.AntiSnipeExtension < 0 {
		return fmt.Errorf("anti-sniping window and extension must be >= 0")
	}
	return nil
}

// MinNextBid returns the smallest amount that outbids top.
func (r Rules) MinNextBid(top domain.Amount) domain.Amount {
	inc := top.Mul(decimal.NewFromInt(r.MinIncrementBps)).Div(decimal.NewFromInt(10_000)).Ceil()
	if inc.LessThan(r.MinIncrement) {
		inc = r.MinIncrement
	}
	return top.Add(inc)
}

// ExtendedEnd applies the anti-sniping rule to a bid placed at now. It
// returns the new end time and whether it moved; the end time never
// decreases.
func (r Rules) ExtendedEnd(end, now time.Time) (time.Time, bool) {
	if end.Sub(now) > r.AntiSnipeWindow {
		return end, false
	}
	pushed := now.Add(r.AntiSnipeExtension)
	if !pushed.After(end) {
		return end, false
	}
	return pushed, true
}
