package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/escrowauction/internal/custody"
	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/efreitasn/escrowauction/internal/payment"
	"github.com/efreitasn/escrowauction/internal/store"
)

// AllowlistGate decides which asset contracts may be listed and which
// ownership model applies to them.
type AllowlistGate interface {
	IsApproved(contract domain.Address) (bool, domain.OwnershipModel)
}

// CustodySelector returns the custody adapter for an ownership model.
type CustodySelector interface {
	For(model domain.OwnershipModel) (custody.Adapter, error)
}

// PaymentCustody holds bidder funds in per-listing escrow slots.
type PaymentCustody interface {
	Deposit(ctx context.Context, slot domain.ListingKey, from domain.Address, amount domain.Amount) error
	Release(ctx context.Context, slot domain.ListingKey, to domain.Address, amount domain.Amount) error
	ReleaseBatch(ctx context.Context, slot domain.ListingKey, payouts []payment.Payout) error
	Held(slot domain.ListingKey) domain.Amount
}

// PayoutRouter splits settled proceeds between the seller and any fee or
// royalty recipients.
type PayoutRouter interface {
	Split(asset domain.AssetRef, seller domain.Address, amount domain.Amount) ([]payment.Payout, error)
}

// Notifier receives a record of every committed operation. Implementations
// must not block.
type Notifier interface {
	Notify(n domain.Notification)
}

// ListParams are the seller's terms for a new listing.
type ListParams struct {
	Asset        domain.AssetRef
	Quantity     int64
	Duration     time.Duration
	ReservePrice domain.Amount
}

// UpdateParams are the replacement terms for an unbid listing.
type UpdateParams struct {
	Quantity     int64
	Duration     time.Duration
	ReservePrice domain.Amount
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// Engine runs the auction lifecycle: listing, amending, cancelling,
// bidding and settlement. It owns the listing store and is the only writer
// of the escrow ledger and of marketplace asset custody.
type Engine struct {
	listings  *store.ListingStore
	allowlist AllowlistGate
	custody   CustodySelector
	payments  PaymentCustody
	payouts   PayoutRouter
	rules     Rules
	deadlines *DeadlineIndex
	locks     *assetLocks
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates an Engine with the given dependencies.
func NewEngine(
	listings *store.ListingStore,
	allowlist AllowlistGate,
	custody CustodySelector,
	payments PaymentCustody,
	payouts PayoutRouter,
	rules Rules,
	opts ...Option,
) *Engine {
	e := &Engine{
		listings:  listings,
		allowlist: allowlist,
		custody:   custody,
		payments:  payments,
		payouts:   payouts,
		rules:     rules,
		deadlines: NewDeadlineIndex(),
		locks:     newAssetLocks(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's auction parameters.
func (e *Engine) Rules() Rules {
	return e.rules
}

// Deadlines exposes the end-time index the sweeper walks.
func (e *Engine) Deadlines() *DeadlineIndex {
	return e.deadlines
}

// ListAuctionSale pulls the asset from the seller into custody and opens a
// new listing for it.
//
// Checks, in order: contract allowlisted, quantity > 0, reserve at least
// MinReserve, quantity 1 for exclusive-unit assets, duration > 0.
func (e *Engine) ListAuctionSale(ctx context.Context, p ListParams, seller domain.Address) (*domain.Listing, error) {
	// Step 1: Validate.
	approved, model := e.allowlist.IsApproved(p.Asset.Contract)
	if !approved {
		return nil, &domain.ContractNotApprovedError{Contract: p.Asset.Contract}
	}
	if err := e.validateTerms(model, p.Quantity, p.Duration, p.ReservePrice); err != nil {
		return nil, err
	}
	adapter, err := e.custody.For(model)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(p.Asset)
	defer unlock()

	// Step 2: Take custody. The sale index is only consumed once the
	// transfer has succeeded.
	index := e.listings.NextSaleIndex(p.Asset)
	if err := adapter.TransferIn(ctx, p.Asset, p.Quantity, seller); err != nil {
		return nil, fmt.Errorf("list %s: %w", p.Asset, err)
	}

	// Step 3: Record the listing.
	now := e.now()
	l := &domain.Listing{
		Key:          domain.ListingKey{Asset: p.Asset, SaleIndex: index},
		Seller:       seller,
		Model:        model,
		Quantity:     p.Quantity,
		ReservePrice: p.ReservePrice,
		Duration:     p.Duration,
		EndTime:      now.Add(p.Duration),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.listings.Create(l); err != nil {
		e.unwind(ctx, "list", l.Key, func(ctx context.Context) error {
			return adapter.TransferOut(ctx, p.Asset, p.Quantity, seller)
		})
		return nil, fmt.Errorf("list %s: %w", p.Asset, err)
	}
	e.deadlines.Set(l.Key, l.EndTime)

	e.logger.Info("auction listed",
		slog.String("listing", l.Key.String()),
		slog.String("seller", seller.String()),
		slog.Int64("quantity", l.Quantity),
		slog.String("reserve", l.ReservePrice.String()),
		slog.Time("end_time", l.EndTime),
	)
	e.notify(domain.ListingCreated{
		Contract:     p.Asset.Contract,
		TokenID:      p.Asset.TokenID,
		SaleIndex:    index,
		Quantity:     l.Quantity,
		Duration:     int64(l.Duration / time.Second),
		ReservePrice: l.ReservePrice,
		Seller:       seller,
	})
	return l.Clone(), nil
}

// UpdateAuctionSale replaces the terms of a listing that has not been bid
// on. A larger quantity pulls the difference from the seller, a smaller
// one returns it. The new duration counts from now; the end time never
// moves earlier than it already is.
func (e *Engine) UpdateAuctionSale(ctx context.Context, key domain.ListingKey, p UpdateParams, caller domain.Address) (*domain.Listing, error) {
	unlock := e.locks.lock(key.Asset)
	defer unlock()

	// Step 1: Validate.
	l, err := e.listings.Get(key)
	if err != nil {
		return nil, err
	}
	if caller != l.Seller {
		return nil, domain.ErrOnlySellerCanUpdate
	}
	if l.HasBid() {
		return nil, domain.ErrAuctionHasBids
	}
	approved, model := e.allowlist.IsApproved(key.Asset.Contract)
	if !approved {
		return nil, &domain.ContractNotApprovedError{Contract: key.Asset.Contract}
	}
	if model != l.Model {
		return nil, fmt.Errorf("%w: %s changed ownership model from %s to %s",
			domain.ErrCustodyTransfer, key.Asset.Contract, l.Model, model)
	}
	if err := e.validateTerms(model, p.Quantity, p.Duration, p.ReservePrice); err != nil {
		return nil, err
	}
	adapter, err := e.custody.For(l.Model)
	if err != nil {
		return nil, err
	}

	// Step 2: Move the quantity difference.
	var undo func(ctx context.Context) error
	switch delta := p.Quantity - l.Quantity; {
	case delta > 0:
		if err := adapter.TransferIn(ctx, key.Asset, delta, l.Seller); err != nil {
			return nil, fmt.Errorf("update %s: %w", key, err)
		}
		undo = func(ctx context.Context) error { return adapter.TransferOut(ctx, key.Asset, delta, l.Seller) }
	case delta < 0:
		if err := adapter.TransferOut(ctx, key.Asset, -delta, l.Seller); err != nil {
			return nil, fmt.Errorf("update %s: %w", key, err)
		}
		undo = func(ctx context.Context) error { return adapter.TransferIn(ctx, key.Asset, -delta, l.Seller) }
	}

	// Step 3: Apply the new terms.
	now := e.now()
	end := now.Add(p.Duration)
	if end.Before(l.EndTime) {
		end = l.EndTime
	}
	l.Quantity = p.Quantity
	l.ReservePrice = p.ReservePrice
	l.Duration = p.Duration
	l.EndTime = end
	l.UpdatedAt = now
	if err := e.listings.Put(l); err != nil {
		if undo != nil {
			e.unwind(ctx, "update", key, undo)
		}
		return nil, fmt.Errorf("update %s: %w", key, err)
	}
	e.deadlines.Set(key, l.EndTime)

	e.logger.Info("auction updated",
		slog.String("listing", key.String()),
		slog.Int64("quantity", l.Quantity),
		slog.String("reserve", l.ReservePrice.String()),
		slog.Time("end_time", l.EndTime),
	)
	e.notify(domain.ListingUpdated{
		Contract:     key.Asset.Contract,
		TokenID:      key.Asset.TokenID,
		SaleIndex:    key.SaleIndex,
		Quantity:     l.Quantity,
		Duration:     int64(l.Duration / time.Second),
		ReservePrice: l.ReservePrice,
	})
	return l.Clone(), nil
}

// CancelAuctionSale returns the full listed quantity to the seller and
// deletes a listing that has not been bid on.
func (e *Engine) CancelAuctionSale(ctx context.Context, key domain.ListingKey, caller domain.Address) error {
	unlock := e.locks.lock(key.Asset)
	defer unlock()

	l, err := e.listings.Get(key)
	if err != nil {
		return err
	}
	if caller != l.Seller {
		return domain.ErrOnlySellerCanCancel
	}
	if l.HasBid() {
		return domain.ErrAuctionHasBids
	}
	adapter, err := e.custody.For(l.Model)
	if err != nil {
		return err
	}

	if err := adapter.TransferOut(ctx, key.Asset, l.Quantity, l.Seller); err != nil {
		return fmt.Errorf("cancel %s: %w", key, err)
	}
	if err := e.listings.Delete(key); err != nil {
		e.unwind(ctx, "cancel", key, func(ctx context.Context) error {
			return adapter.TransferIn(ctx, key.Asset, l.Quantity, l.Seller)
		})
		return fmt.Errorf("cancel %s: %w", key, err)
	}
	e.deadlines.Remove(key)

	e.logger.Info("auction cancelled",
		slog.String("listing", key.String()),
		slog.String("seller", l.Seller.String()),
	)
	e.notify(domain.ListingCancelled{
		Contract:  key.Asset.Contract,
		TokenID:   key.Asset.TokenID,
		SaleIndex: key.SaleIndex,
		Quantity:  l.Quantity,
		Seller:    l.Seller,
	})
	return nil
}

// Bid escrows amount from bidder and makes it the listing's top bid,
// refunding the bid it displaces. The deposit, the refund and the state
// change commit together or not at all.
//
// Checks, in order: listing exists and has not ended, bidder is not the
// seller, the first bid exceeds the reserve, later bids clear MinNextBid.
func (e *Engine) Bid(ctx context.Context, key domain.ListingKey, amount domain.Amount, bidder domain.Address) (*domain.Listing, error) {
	unlock := e.locks.lock(key.Asset)
	defer unlock()

	// Step 1: Validate.
	l, err := e.listings.Get(key)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if l.Ended(now) {
		return nil, domain.ErrAuctionEnded
	}
	if bidder == l.Seller {
		return nil, domain.ErrSellerCannotBid
	}
	prev := l.TopBid
	if prev == nil {
		if !amount.GreaterThan(l.ReservePrice) {
			return nil, domain.ErrPriceTooLow
		}
	} else if amount.LessThan(e.rules.MinNextBid(prev.Amount)) {
		return nil, domain.ErrBidTooLow
	}

	// Step 2: Escrow the new bid.
	if err := e.payments.Deposit(ctx, key, bidder, amount); err != nil {
		return nil, fmt.Errorf("bid on %s: %w", key, err)
	}
	refundDeposit := func(ctx context.Context) error {
		return e.payments.Release(ctx, key, bidder, amount)
	}

	// Step 3: Refund the displaced bid.
	if prev != nil {
		if err := e.payments.Release(ctx, key, prev.Bidder, prev.Amount); err != nil {
			e.unwind(ctx, "bid", key, refundDeposit)
			return nil, fmt.Errorf("bid on %s: refund %s: %w", key, prev.Bidder, err)
		}
	}

	// Step 4: Advance the top bid and apply anti-sniping.
	l.TopBid = &domain.Bid{Bidder: bidder, Amount: amount, PlacedAt: now}
	end, extended := e.rules.ExtendedEnd(l.EndTime, now)
	if extended {
		l.EndTime = end
		l.Extensions++
	}
	l.UpdatedAt = now
	if err := e.listings.Put(l); err != nil {
		undo := []func(ctx context.Context) error{refundDeposit}
		if prev != nil {
			undo = append(undo, func(ctx context.Context) error {
				return e.payments.Deposit(ctx, key, prev.Bidder, prev.Amount)
			})
		}
		e.unwind(ctx, "bid", key, undo...)
		return nil, fmt.Errorf("bid on %s: %w", key, err)
	}
	if extended {
		e.deadlines.Set(key, l.EndTime)
	}

	ev := domain.BidPlaced{
		Contract:       key.Asset.Contract,
		TokenID:        key.Asset.TokenID,
		SaleIndex:      key.SaleIndex,
		PreviousAmount: domain.Zero,
		Bidder:         bidder,
		Amount:         amount,
	}
	if prev != nil {
		prevBidder := prev.Bidder
		ev.PreviousBidder = &prevBidder
		ev.PreviousAmount = prev.Amount
	}

	e.logger.Info("bid placed",
		slog.String("listing", key.String()),
		slog.String("bidder", bidder.String()),
		slog.String("amount", amount.String()),
		slog.Bool("extended", extended),
		slog.Time("end_time", l.EndTime),
	)
	e.notify(ev)
	return l.Clone(), nil
}

// Finalize settles a listing whose end time has passed. Anyone may call
// it. With a top bid the asset goes to the winner and the escrowed amount
// is paid out; without one the asset returns to the seller. The listing
// is removed, so a second call fails with ErrNotValidAuctionSale.
func (e *Engine) Finalize(ctx context.Context, key domain.ListingKey, caller domain.Address) (*domain.AuctionSettled, error) {
	unlock := e.locks.lock(key.Asset)
	defer unlock()

	// Step 1: Validate.
	l, err := e.listings.Get(key)
	if err != nil {
		return nil, err
	}
	if !l.Ended(e.now()) {
		return nil, domain.ErrAuctionNotEnded
	}
	adapter, err := e.custody.For(l.Model)
	if err != nil {
		return nil, err
	}

	ev := &domain.AuctionSettled{
		Contract:  key.Asset.Contract,
		TokenID:   key.Asset.TokenID,
		SaleIndex: key.SaleIndex,
		Quantity:  l.Quantity,
		Seller:    l.Seller,
		Amount:    domain.Zero,
	}

	if l.TopBid == nil {
		// Step 2a: Unsold. Return the asset.
		if err := adapter.TransferOut(ctx, key.Asset, l.Quantity, l.Seller); err != nil {
			return nil, fmt.Errorf("finalize %s: %w", key, err)
		}
	} else {
		// Step 2b: Sold. Plan the payouts before anything moves.
		win := l.TopBid
		payouts, err := e.payouts.Split(key.Asset, l.Seller, win.Amount)
		if err != nil {
			return nil, fmt.Errorf("finalize %s: %w", key, err)
		}
		total := domain.Zero
		for _, p := range payouts {
			total = total.Add(p.Amount)
		}
		if !total.Equal(win.Amount) {
			return nil, fmt.Errorf("finalize %s: payouts sum to %s, top bid is %s", key, total, win.Amount)
		}
		if held := e.payments.Held(key); !held.Equal(win.Amount) {
			e.logger.Error("escrow does not match top bid",
				slog.String("listing", key.String()),
				slog.String("held", held.String()),
				slog.String("top_bid", win.Amount.String()),
			)
			return nil, fmt.Errorf("finalize %s: %w: holds %s, top bid %s", key, domain.ErrEscrowUnderflow, held, win.Amount)
		}

		// Step 3: Deliver the asset, then the proceeds. Past this point a
		// cancelled caller must not leave the asset delivered and the
		// proceeds unpaid: the winner never approves the marketplace, so
		// the delivery cannot be taken back.
		ctx = context.WithoutCancel(ctx)
		if err := adapter.TransferOut(ctx, key.Asset, l.Quantity, win.Bidder); err != nil {
			return nil, fmt.Errorf("finalize %s: %w", key, err)
		}
		if err := e.payments.ReleaseBatch(ctx, key, payouts); err != nil {
			e.unwind(ctx, "finalize", key, func(ctx context.Context) error {
				return adapter.TransferIn(ctx, key.Asset, l.Quantity, win.Bidder)
			})
			return nil, fmt.Errorf("finalize %s: %w", key, err)
		}
		ev.Winner = win.Bidder
		ev.Amount = win.Amount
	}

	// Step 4: Close the listing. The lock is held, so the key is present.
	if err := e.listings.Delete(key); err != nil {
		e.logger.Error("settled listing missing from store",
			slog.String("listing", key.String()),
			slog.String("error", err.Error()),
		)
	}
	e.deadlines.Remove(key)

	e.logger.Info("auction settled",
		slog.String("listing", key.String()),
		slog.String("winner", ev.Winner.String()),
		slog.String("amount", ev.Amount.String()),
		slog.String("caller", caller.String()),
	)
	e.notify(*ev)
	return ev, nil
}

// Get returns a snapshot of a listing.
func (e *Engine) Get(key domain.ListingKey) (*domain.Listing, error) {
	return e.listings.Get(key)
}

// List returns active listings ordered by end time. See store.ListingStore.List.
func (e *Engine) List(seller *domain.Address, page, limit int) ([]*domain.Listing, int) {
	return e.listings.List(seller, page, limit)
}

// MinNextBid returns the smallest amount the listing currently accepts:
// one unit above the reserve before the first bid, MinNextBid of the top
// bid afterwards.
func (e *Engine) MinNextBid(key domain.ListingKey) (domain.Amount, error) {
	l, err := e.listings.Get(key)
	if err != nil {
		return domain.Zero, err
	}
	return e.BidFloor(l), nil
}

// BidFloor is MinNextBid for a listing snapshot already in hand.
func (e *Engine) BidFloor(l *domain.Listing) domain.Amount {
	if l.TopBid == nil {
		return l.ReservePrice.Add(domain.Wei(1))
	}
	return e.rules.MinNextBid(l.TopBid.Amount)
}

// validateTerms checks listing terms shared by list and update.
func (e *Engine) validateTerms(model domain.OwnershipModel, qty int64, d time.Duration, reserve domain.Amount) error {
	if qty <= 0 {
		return domain.ErrAmountCannotBeZero
	}
	if reserve.LessThan(e.rules.MinReserve) {
		return domain.ErrPriceTooLow
	}
	if model == domain.ExclusiveUnit && qty != 1 {
		return domain.ErrInvalidQuantity
	}
	if d <= 0 {
		return domain.ErrInvalidDuration
	}
	return nil
}

// unwind runs compensating steps in reverse order after a failure midway
// through an operation. Compensation ignores caller cancellation.
func (e *Engine) unwind(ctx context.Context, op string, key domain.ListingKey, steps ...func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i](ctx); err != nil {
			e.logger.Error("rollback step failed",
				slog.String("op", op),
				slog.String("listing", key.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// notify runs under the asset lock so notifications for an asset are
// emitted in commit order.
func (e *Engine) notify(n domain.Notification) {
	if e.notifier != nil {
		e.notifier.Notify(n)
	}
}
