// Package payment holds native-currency balances: account wallets and the
// per-listing escrow slots the marketplace keeps on behalf of bidders.
package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/efreitasn/escrowauction/internal/domain"
)

// Payout is one transfer out of an escrow slot.
type Payout struct {
	Recipient domain.Address
	Amount    domain.Amount
	Reason    string // "seller", "platform_fee", "royalty", "refund"
}

// Ledger is a thread-safe in-memory currency ledger. Escrowed funds are
// only moved by Deposit, Release and ReleaseBatch.
type Ledger struct {
	mu      sync.Mutex
	wallets map[domain.Address]domain.Amount
	escrow  map[domain.ListingKey]domain.Amount
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		wallets: make(map[domain.Address]domain.Amount),
		escrow:  make(map[domain.ListingKey]domain.Amount),
	}
}

// Credit adds amount to addr's wallet. It is the funding entry point.
func (l *Ledger) Credit(addr domain.Address, amount domain.Amount) error {
	if amount.IsNegative() {
		return fmt.Errorf("credit must be >= 0")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wallets[addr] = l.wallets[addr].Add(amount)
	return nil
}

// Balance returns addr's wallet balance.
func (l *Ledger) Balance(addr domain.Address) domain.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wallets[addr]
}

// Held returns the amount escrowed for slot.
func (l *Ledger) Held(slot domain.ListingKey) domain.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.escrow[slot]
}

// TotalHeld returns the sum of all escrow slots.
func (l *Ledger) TotalHeld() domain.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := domain.Zero
	for _, a := range l.escrow {
		total = total.Add(a)
	}
	return total
}

// Supply returns the sum of every wallet and escrow slot. Deposits and
// releases never change it.
func (l *Ledger) Supply() domain.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := domain.Zero
	for _, a := range l.wallets {
		total = total.Add(a)
	}
	for _, a := range l.escrow {
		total = total.Add(a)
	}
	return total
}

// Deposit moves amount from from's wallet into slot.
func (l *Ledger) Deposit(ctx context.Context, slot domain.ListingKey, from domain.Address, amount domain.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("deposit must be > 0")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.wallets[from].LessThan(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", domain.ErrInsufficientFunds, from, l.wallets[from], amount)
	}
	l.wallets[from] = l.wallets[from].Sub(amount)
	l.escrow[slot] = l.escrow[slot].Add(amount)
	return nil
}

// Release moves amount out of slot to to's wallet. It never releases more
// than the slot holds.
func (l *Ledger) Release(ctx context.Context, slot domain.ListingKey, to domain.Address, amount domain.Amount) error {
	return l.ReleaseBatch(ctx, slot, []Payout{{Recipient: to, Amount: amount}})
}

// ReleaseBatch applies every payout or none of them.
func (l *Ledger) ReleaseBatch(ctx context.Context, slot domain.ListingKey, payouts []Payout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	total := domain.Zero
	for _, p := range payouts {
		if p.Amount.IsNegative() {
			return fmt.Errorf("payout to %s must be >= 0", p.Recipient)
		}
		if p.Recipient.IsZero() {
			return fmt.Errorf("payout of %s has no recipient", p.Amount)
		}
		total = total.Add(p.Amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	held := l.escrow[slot]
	if held.LessThan(total) {
		return fmt.Errorf("%w: slot %s holds %s, release of %s requested", domain.ErrEscrowUnderflow, slot, held, total)
	}
	for _, p := range payouts {
		l.wallets[p.Recipient] = l.wallets[p.Recipient].Add(p.Amount)
	}
	if rest := held.Sub(total); rest.IsZero() {
		delete(l.escrow, slot)
	} else {
		l.escrow[slot] = rest
	}
	return nil
}
