// Package royalty splits settled auction proceeds between the seller, the
// marketplace fee recipient and the asset creator.
package royalty

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/efreitasn/escrowauction/internal/payment"
)

// MaxBps is 100% in basis points.
const MaxBps = 10_000

// EntrySource resolves the per-contract creator royalty. domain.Allowlist
// satisfies it.
type EntrySource interface {
	Entry(contract domain.Address) (domain.AllowlistEntry, bool)
}

// Router takes the platform fee and the creator royalty off the top and
// pays the remainder to the seller. Shares round down; rounding dust goes
// to the seller so payouts always sum to the sale amount.
type Router struct {
	platformFeeBps int64
	feeRecipient   domain.Address
	entries        EntrySource
}

// NewRouter validates the fee configuration.
func NewRouter(platformFeeBps int64, feeRecipient domain.Address, entries EntrySource) (*Router, error) {
	if platformFeeBps < 0 || platformFeeBps > MaxBps {
		return nil, fmt.Errorf("platform fee must be within [0, %d] bps, got %d", MaxBps, platformFeeBps)
	}
	if platformFeeBps > 0 && feeRecipient.IsZero() {
		return nil, fmt.Errorf("platform fee requires a fee recipient")
	}
	return &Router{
		platformFeeBps: platformFeeBps,
		feeRecipient:   feeRecipient,
		entries:        entries,
	}, nil
}

// Split computes the payouts for a sale of asset by seller for amount.
func (r *Router) Split(asset domain.AssetRef, seller domain.Address, amount domain.Amount) ([]payment.Payout, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("sale amount must be >= 0")
	}

	var payouts []payment.Payout
	remaining := amount

	if r.platformFeeBps > 0 {
		fee := share(amount, r.platformFeeBps)
		if fee.IsPositive() {
			payouts = append(payouts, payment.Payout{Recipient: r.feeRecipient, Amount: fee, Reason: "platform_fee"})
			remaining = remaining.Sub(fee)
		}
	}

	if r.entries != nil {
		if e, ok := r.entries.Entry(asset.Contract); ok && e.RoyaltyBps > 0 && !e.RoyaltyRecipient.IsZero() {
			if r.platformFeeBps+e.RoyaltyBps > MaxBps {
				return nil, fmt.Errorf("fee %d bps and royalty %d bps exceed 100%%", r.platformFeeBps, e.RoyaltyBps)
			}
			roy := share(amount, e.RoyaltyBps)
			if roy.IsPositive() {
				payouts = append(payouts, payment.Payout{Recipient: e.RoyaltyRecipient, Amount: roy, Reason: "royalty"})
				remaining = remaining.Sub(roy)
			}
		}
	}

	payouts = append(payouts, payment.Payout{Recipient: seller, Amount: remaining, Reason: "seller"})
	return payouts, nil
}

// share returns floor(amount * bps / 10000).
func share(amount domain.Amount, bps int64) domain.Amount {
	return amount.Mul(decimal.NewFromInt(bps)).Div(decimal.NewFromInt(MaxBps)).Floor()
}
