package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/escrowauction/internal/service"
)

// callerHeader carries the authenticated caller's address.
const callerHeader = "X-Caller-Address"

// AuctionHandler handles HTTP requests for auction endpoints.
type AuctionHandler struct {
	auctionSvc *service.AuctionService
}

// NewAuctionHandler creates a new AuctionHandler.
func NewAuctionHandler(auctionSvc *service.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionSvc: auctionSvc}
}

// createAuctionRequest is the JSON request body for POST /auctions.
type createAuctionRequest struct {
	Contract     string `json:"contract"`
	TokenID      string `json:"token_id"`
	Quantity     int64  `json:"quantity"`
	Duration     int64  `json:"duration"` // seconds
	ReservePrice string `json:"reserve_price"`
}

// updateAuctionRequest is the JSON request body for PUT /auctions/{...}.
type updateAuctionRequest struct {
	Quantity     int64  `json:"quantity"`
	Duration     int64  `json:"duration"`
	ReservePrice string `json:"reserve_price"`
}

// bidRequest is the JSON request body for POST /auctions/{...}/bids.
type bidRequest struct {
	Amount string `json:"amount"`
}

// bidResponse is the current top bid of a listing.
type bidResponse struct {
	Bidder   string `json:"bidder"`
	Amount   string `json:"amount"`
	PlacedAt string `json:"placed_at"`
}

// listingResponse is the JSON representation of a listing.
type listingResponse struct {
	Contract     string       `json:"contract"`
	TokenID      string       `json:"token_id"`
	SaleIndex    uint64       `json:"sale_index"`
	Seller       string       `json:"seller"`
	Model        string       `json:"model"`
	Quantity     int64        `json:"quantity"`
	ReservePrice string       `json:"reserve_price"`
	Duration     int64        `json:"duration"`
	EndTime      string       `json:"end_time"`
	TopBid       *bidResponse `json:"top_bid"`
	Extensions   int          `json:"extensions"`
	MinNextBid   string       `json:"min_next_bid"`
	CreatedAt    string       `json:"created_at"`
	UpdatedAt    string       `json:"updated_at"`
}

// listingListResponse is the JSON response for GET /auctions.
type listingListResponse struct {
	Listings []listingResponse `json:"listings"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
	Total    int               `json:"total"`
}

// settlementResponse is the JSON response for POST .../finalize.
type settlementResponse struct {
	Contract  string  `json:"contract"`
	TokenID   string  `json:"token_id"`
	SaleIndex uint64  `json:"sale_index"`
	Quantity  int64   `json:"quantity"`
	Seller    string  `json:"seller"`
	Winner    *string `json:"winner"`
	Amount    string  `json:"amount"`
}

// Create handles POST /auctions.
func (h *AuctionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	v, err := h.auctionSvc.List(r.Context(), service.ListAuctionRequest{
		Seller:          r.Header.Get(callerHeader),
		Contract:        req.Contract,
		TokenID:         req.TokenID,
		Quantity:        req.Quantity,
		DurationSeconds: req.Duration,
		ReservePrice:    req.ReservePrice,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildListingResponse(v))
}

// List handles GET /auctions.
func (h *AuctionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, ok := queryInt(w, q.Get("page"), "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(w, q.Get("limit"), "limit", 20)
	if !ok {
		return
	}

	views, total, err := h.auctionSvc.Active(q.Get("seller"), page, limit)
	if err != nil {
		mapError(w, err)
		return
	}

	resp := listingListResponse{
		Listings: make([]listingResponse, len(views)),
		Page:     page,
		Limit:    limit,
		Total:    total,
	}
	for i, v := range views {
		resp.Listings[i] = buildListingResponse(v)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /auctions/{contract}/{token_id}/{sale_index}.
func (h *AuctionHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.auctionSvc.Get(listingRef(r))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildListingResponse(v))
}

// Update handles PUT /auctions/{contract}/{token_id}/{sale_index}.
func (h *AuctionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateAuctionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ref := listingRef(r)
	v, err := h.auctionSvc.Update(r.Context(), service.UpdateAuctionRequest{
		Caller:          r.Header.Get(callerHeader),
		Contract:        ref.Contract,
		TokenID:         ref.TokenID,
		SaleIndex:       ref.SaleIndex,
		Quantity:        req.Quantity,
		DurationSeconds: req.Duration,
		ReservePrice:    req.ReservePrice,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildListingResponse(v))
}

// Cancel handles DELETE /auctions/{contract}/{token_id}/{sale_index}.
func (h *AuctionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.auctionSvc.Cancel(r.Context(), listingRef(r), r.Header.Get(callerHeader)); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Bid handles POST /auctions/{contract}/{token_id}/{sale_index}/bids.
func (h *AuctionHandler) Bid(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if !decodeBody(w, r, &req) {
		return
	}

	v, err := h.auctionSvc.Bid(r.Context(), listingRef(r), req.Amount, r.Header.Get(callerHeader))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildListingResponse(v))
}

// Finalize handles POST /auctions/{contract}/{token_id}/{sale_index}/finalize.
func (h *AuctionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	ev, err := h.auctionSvc.Finalize(r.Context(), listingRef(r), r.Header.Get(callerHeader))
	if err != nil {
		mapError(w, err)
		return
	}

	resp := settlementResponse{
		Contract:  ev.Contract.String(),
		TokenID:   ev.TokenID,
		SaleIndex: ev.SaleIndex,
		Quantity:  ev.Quantity,
		Seller:    ev.Seller.String(),
		Amount:    ev.Amount.String(),
	}
	if !ev.Winner.IsZero() {
		winner := ev.Winner.String()
		resp.Winner = &winner
	}
	WriteJSON(w, http.StatusOK, resp)
}

func listingRef(r *http.Request) service.ListingRef {
	return service.ListingRef{
		Contract:  chi.URLParam(r, "contract"),
		TokenID:   chi.URLParam(r, "token_id"),
		SaleIndex: chi.URLParam(r, "sale_index"),
	}
}

// queryInt parses an optional integer query parameter. On failure it
// writes the error response and returns false.
func queryInt(w http.ResponseWriter, raw, name string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, codeValidation, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func buildListingResponse(v *service.ListingView) listingResponse {
	l := v.Listing
	resp := listingResponse{
		Contract:     l.Key.Asset.Contract.String(),
		TokenID:      l.Key.Asset.TokenID,
		SaleIndex:    l.Key.SaleIndex,
		Seller:       l.Seller.String(),
		Model:        string(l.Model),
		Quantity:     l.Quantity,
		ReservePrice: l.ReservePrice.String(),
		Duration:     int64(l.Duration / time.Second),
		EndTime:      formatTime(l.EndTime),
		Extensions:   l.Extensions,
		MinNextBid:   v.MinNextBid.String(),
		CreatedAt:    formatTime(l.CreatedAt),
		UpdatedAt:    formatTime(l.UpdatedAt),
	}
	if l.TopBid != nil {
		resp.TopBid = &bidResponse{
			Bidder:   l.TopBid.Bidder.String(),
			Amount:   l.TopBid.Amount.String(),
			PlacedAt: formatTime(l.TopBid.PlacedAt),
		}
	}
	return resp
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
