package domain

import "time"

// OwnershipModel selects how an asset contract moves units.
type OwnershipModel string

const (
	// ExclusiveUnit assets have a single owner per token (ERC-721 style).
	ExclusiveUnit OwnershipModel = "exclusive_unit"
	// FractionalQuantity assets have per-holder integer balances (ERC-1155 style).
	FractionalQuantity OwnershipModel = "fractional_quantity"
)

// Valid reports whether m is a known ownership model.
func (m OwnershipModel) Valid() bool {
	return m == ExclusiveUnit || m == FractionalQuantity
}

// Bid is the current highest accepted bid on a listing.
type Bid struct {
	Bidder   Address
	Amount   Amount
	PlacedAt time.Time
}

// Listing is an active auction. Its quantity is held by the marketplace
// for as long as the listing exists.
type Listing struct {
	Key          ListingKey
	Seller       Address
	Model        OwnershipModel
	Quantity     int64
	ReservePrice Amount
	Duration     time.Duration
	EndTime      time.Time
	TopBid       *Bid // nil until the first bid
	Extensions   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasBid reports whether bidding has started. Terms are locked once it has.
func (l *Listing) HasBid() bool {
	return l.TopBid != nil
}

// Ended reports whether the auction window has closed at now.
func (l *Listing) Ended(now time.Time) bool {
	return !now.Before(l.EndTime)
}

// Clone returns a deep copy safe to hand out of the store.
func (l *Listing) Clone() *Listing {
	c := *l
	if l.TopBid != nil {
		b := *l.TopBid
		c.TopBid = &b
	}
	return &c
}
