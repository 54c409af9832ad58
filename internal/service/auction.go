package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/efreitasn/escrowauction/internal/engine"
)

// maxPageLimit bounds list page sizes.
const maxPageLimit = 200

// ListAuctionRequest represents the input for opening a listing.
type ListAuctionRequest struct {
	Seller          string
	Contract        string
	TokenID         string
	Quantity        int64
	DurationSeconds int64
	ReservePrice    string
}

// UpdateAuctionRequest represents the input for amending a listing.
type UpdateAuctionRequest struct {
	Caller          string
	Contract        string
	TokenID         string
	SaleIndex       string
	Quantity        int64
	DurationSeconds int64
	ReservePrice    string
}

// ListingRef identifies a listing by its raw path components.
type ListingRef struct {
	Contract  string
	TokenID   string
	SaleIndex string
}

// ListingView is a listing together with the next acceptable bid.
type ListingView struct {
	*domain.Listing
	MinNextBid domain.Amount
}

// AuctionService validates transport input and drives the engine.
type AuctionService struct {
	engine *engine.Engine
}

// NewAuctionService creates a new AuctionService.
func NewAuctionService(e *engine.Engine) *AuctionService {
	return &AuctionService{engine: e}
}

// List validates the request and opens a listing.
func (s *AuctionService) List(ctx context.Context, req ListAuctionRequest) (*ListingView, error) {
	seller, err := ParseAddress("caller", req.Seller)
	if err != nil {
		return nil, err
	}
	asset, err := ParseAsset(req.Contract, req.TokenID)
	if err != nil {
		return nil, err
	}
	reserve, err := ParseAmount("reserve_price", req.ReservePrice)
	if err != nil {
		return nil, err
	}
	d, err := parseDuration(req.DurationSeconds)
	if err != nil {
		return nil, err
	}

	l, err := s.engine.ListAuctionSale(ctx, engine.ListParams{
		Asset:        asset,
		Quantity:     req.Quantity,
		Duration:     d,
		ReservePrice: reserve,
	}, seller)
	if err != nil {
		return nil, err
	}
	return s.view(l), nil
}

// Update validates the request and amends a listing.
func (s *AuctionService) Update(ctx context.Context, req UpdateAuctionRequest) (*ListingView, error) {
	caller, err := ParseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	key, err := ParseListingKey(req.Contract, req.TokenID, req.SaleIndex)
	if err != nil {
		return nil, err
	}
	reserve, err := ParseAmount("reserve_price", req.ReservePrice)
	if err != nil {
		return nil, err
	}
	d, err := parseDuration(req.DurationSeconds)
	if err != nil {
		return nil, err
	}

	l, err := s.engine.UpdateAuctionSale(ctx, key, engine.UpdateParams{
		Quantity:     req.Quantity,
		Duration:     d,
		ReservePrice: reserve,
	}, caller)
	if err != nil {
		return nil, err
	}
	return s.view(l), nil
}

// Cancel withdraws an unbid listing.
func (s *AuctionService) Cancel(ctx context.Context, ref ListingRef, callerAddr string) error {
	caller, err := ParseAddress("caller", callerAddr)
	if err != nil {
		return err
	}
	key, err := ParseListingKey(ref.Contract, ref.TokenID, ref.SaleIndex)
	if err != nil {
		return err
	}
	return s.engine.CancelAuctionSale(ctx, key, caller)
}

// Bid places a bid of amount wei.
func (s *AuctionService) Bid(ctx context.Context, ref ListingRef, amount, callerAddr string) (*ListingView, error) {
	caller, err := ParseAddress("caller", callerAddr)
	if err != nil {
		return nil, err
	}
	key, err := ParseListingKey(ref.Contract, ref.TokenID, ref.SaleIndex)
	if err != nil {
		return nil, err
	}
	amt, err := ParseAmount("amount", amount)
	if err != nil {
		return nil, err
	}

	l, err := s.engine.Bid(ctx, key, amt, caller)
	if err != nil {
		return nil, err
	}
	return s.view(l), nil
}

// Finalize settles an ended listing. Any caller may do so.
func (s *AuctionService) Finalize(ctx context.Context, ref ListingRef, callerAddr string) (*domain.AuctionSettled, error) {
	caller, err := ParseAddress("caller", callerAddr)
	if err != nil {
		return nil, err
	}
	key, err := ParseListingKey(ref.Contract, ref.TokenID, ref.SaleIndex)
	if err != nil {
		return nil, err
	}
	return s.engine.Finalize(ctx, key, caller)
}

// Get returns a single listing.
func (s *AuctionService) Get(ref ListingRef) (*ListingView, error) {
	key, err := ParseListingKey(ref.Contract, ref.TokenID, ref.SaleIndex)
	if err != nil {
		return nil, err
	}
	l, err := s.engine.Get(key)
	if err != nil {
		return nil, err
	}
	return s.view(l), nil
}

// Active returns a page of active listings, optionally filtered by seller.
func (s *AuctionService) Active(seller string, page, limit int) ([]*ListingView, int, error) {
	if page < 1 {
		return nil, 0, &domain.ValidationError{Message: "page must be >= 1"}
	}
	if limit < 1 || limit > maxPageLimit {
		return nil, 0, &domain.ValidationError{Message: "limit must be between 1 and 200"}
	}

	var filter *domain.Address
	if seller != "" {
		addr, err := ParseAddress("seller", seller)
		if err != nil {
			return nil, 0, err
		}
		filter = &addr
	}

	listings, total := s.engine.List(filter, page, limit)
	views := make([]*ListingView, len(listings))
	for i, l := range listings {
		views[i] = s.view(l)
	}
	return views, total, nil
}

// maxDurationSeconds is the longest duration a time.Duration can hold.
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// parseDuration converts a duration in seconds. Non-positive values pass
// through so the engine reports ErrInvalidDuration.
func parseDuration(seconds int64) (time.Duration, error) {
	if seconds > maxDurationSeconds {
		return 0, &domain.ValidationError{
			Message: fmt.Sprintf("duration must be at most %d seconds", maxDurationSeconds),
		}
	}
	return time.Duration(seconds) * time.Second, nil
}

func (s *AuctionService) view(l *domain.Listing) *ListingView {
	return &ListingView{Listing: l, MinNextBid: s.engine.BidFloor(l)}
}
