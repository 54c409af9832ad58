package domain

import "time"

// NotificationKind names a notification for indexers and webhook
// subscriptions.
type NotificationKind string

const (
	KindListingCreated   NotificationKind = "auction.listed"
	KindListingUpdated   NotificationKind = "auction.updated"
	KindListingCancelled NotificationKind = "auction.cancelled"
	KindBidPlaced        NotificationKind = "auction.bid"
	KindAuctionSettled   NotificationKind = "auction.settled"
)

// Notification is a structured record emitted by every successful engine
// operation.
type Notification interface {
	Kind() NotificationKind
}

// ListingCreated is emitted by ListAuctionSale.
type ListingCreated struct {
	Contract     Address `json:"contract"`
	TokenID      string  `json:"token_id"`
	SaleIndex    uint64  `json:"sale_index"`
	Quantity     int64   `json:"quantity"`
	Duration     int64   `json:"duration"` // seconds
	ReservePrice Amount  `json:"reserve_price"`
	Seller       Address `json:"seller"`
}

// ListingUpdated is emitted by UpdateAuctionSale.
type ListingUpdated struct {
	Contract     Address `json:"contract"`
	TokenID      string  `json:"token_id"`
	SaleIndex    uint64  `json:"sale_index"`
	Quantity     int64   `json:"quantity"`
	Duration     int64   `json:"duration"` // seconds
	ReservePrice Amount  `json:"reserve_price"`
}

// ListingCancelled is emitted by CancelAuctionSale.
type ListingCancelled struct {
	Contract  Address `json:"contract"`
	TokenID   string  `json:"token_id"`
	SaleIndex uint64  `json:"sale_index"`
	Quantity  int64   `json:"quantity"`
	Seller    Address `json:"seller"`
}

// BidPlaced is emitted by Bid. PreviousBidder is nil (JSON null) and
// PreviousAmount zero on the first bid of a listing.
type BidPlaced struct {
	Contract       Address  `json:"contract"`
	TokenID        string   `json:"token_id"`
	SaleIndex      uint64   `json:"sale_index"`
	PreviousBidder *Address `json:"previous_bidder"`
	PreviousAmount Amount   `json:"previous_amount"`
	Bidder         Address  `json:"bidder"`
	Amount         Amount   `json:"amount"`
}

// AuctionSettled is emitted by Finalize. Winner is empty and Amount zero
// when the auction closed without bids.
type AuctionSettled struct {
	Contract  Address `json:"contract"`
	TokenID   string  `json:"token_id"`
	SaleIndex uint64  `json:"sale_index"`
	Quantity  int64   `json:"quantity"`
	Seller    Address `json:"seller"`
	Winner    Address `json:"winner"`
	Amount    Amount  `json:"amount"`
}

func (ListingCreated) Kind() NotificationKind   { return KindListingCreated }
func (ListingUpdated) Kind() NotificationKind   { return KindListingUpdated }
func (ListingCancelled) Kind() NotificationKind { return KindListingCancelled }
func (BidPlaced) Kind() NotificationKind        { return KindBidPlaced }
func (AuctionSettled) Kind() NotificationKind   { return KindAuctionSettled }

// NotificationRecord is a notification as stored in the log: a sequence
// number and an id assigned on append.
type NotificationRecord struct {
	Seq        uint64
	ID         string
	Kind       NotificationKind
	Payload    Notification
	OccurredAt time.Time
}
