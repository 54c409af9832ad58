package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/efreitasn/escrowauction/internal/custody"
	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/efreitasn/escrowauction/internal/engine"
	"github.com/efreitasn/escrowauction/internal/payment"
	"github.com/efreitasn/escrowauction/internal/royalty"
	"github.com/efreitasn/escrowauction/internal/service"
	"github.com/efreitasn/escrowauction/internal/store"
)

const (
	marketAddr   = "0x00000000000000000000000000000000000000ff"
	sellerAddr   = "0x00000000000000000000000000000000000000aa"
	bidderAddr   = "0x00000000000000000000000000000000000000bb"
	bidder2Addr  = "0x00000000000000000000000000000000000000cc"
	treasuryAddr = "0x00000000000000000000000000000000000000ee"
	nftContract  = "0x0000000000000000000000000000000000000721"
	multiToken   = "0x0000000000000000000000000000000000001155"
)

// testEnv bundles all dependencies for handler integration tests.
type testEnv struct {
	router http.Handler
	now    time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	vault := custody.NewVault()
	ledger := payment.NewLedger()
	allow := domain.NewAllowlist()
	router, _ := royalty.NewRouter(250, treasuryAddr, allow)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), 5*time.Second, logger)
	notificationSvc := service.NewNotificationService(store.NewNotificationLog(), nil, webhookSvc, logger)
	e := engine.NewEngine(store.NewListingStore(), allow, custody.NewRegistry(vault, marketAddr), ledger, router,
		engine.DefaultRules(),
		engine.WithClock(func() time.Time { return env.now }),
		engine.WithNotifier(notificationSvc),
		engine.WithLogger(logger),
	)

	env.router = NewRouter(Services{
		Auctions:      service.NewAuctionService(e),
		Wallets:       service.NewWalletService(vault, ledger, allow, marketAddr),
		Allowlist:     service.NewAllowlistService(allow, 250),
		Notifications: notificationSvc,
		Webhooks:      webhookSvc,
	}, nil, logger)
	return env
}

// do sends a JSON request as caller and returns the recorder.
func (env *testEnv) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// doRaw sends a raw request with optional content-type override.
func (env *testEnv) doRaw(t *testing.T, method, path, contentType, rawBody string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(rawBody))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// decodeJSON decodes the response body into v.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

// seed allowlists the NFT contract, mints token 1 to the seller, approves
// the marketplace and funds two bidders with 1 ether each.
func (env *testEnv) seed(t *testing.T) {
	t.Helper()
	expectStatus(t, env.do(t, "POST", "/allowlist", "", map[string]any{
		"contract": nftContract, "model": "exclusive_unit",
	}), http.StatusOK)
	expectStatus(t, env.do(t, "POST", "/wallets/"+sellerAddr+"/assets", "", map[string]any{
		"contract": nftContract, "token_id": "1", "quantity": 1,
	}), http.StatusCreated)
	expectStatus(t, env.do(t, "POST", "/wallets/"+sellerAddr+"/approvals", "", map[string]any{"approved": true}), http.StatusOK)
	for _, b := range []string{bidderAddr, bidder2Addr} {
		expectStatus(t, env.do(t, "POST", "/wallets/"+b+"/deposit", "", map[string]any{"amount": "1000000000000000000"}), http.StatusOK)
	}
}

func (env *testEnv) createAuction(t *testing.T) map[string]any {
	t.Helper()
	rr := env.do(t, "POST", "/auctions", sellerAddr, map[string]any{
		"contract": nftContract, "token_id": "1", "quantity": 1, "duration": 3600, "reserve_price": "2000",
	})
	expectStatus(t, rr, http.StatusCreated)
	var resp map[string]any
	decodeJSON(t, rr, &resp)
	return resp
}

const auctionPath = "/auctions/" + nftContract + "/1/1"

// --- Healthz ---

func TestHealthz(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "GET", "/healthz", "", nil)
	expectStatus(t, rr, http.StatusOK)

	var body map[string]string
	decodeJSON(t, rr, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

// --- Auctions ---

func TestAuction_Create_Success(t *testing.T) {
	env := newTestEnv()
	env.seed(t)

	resp := env.createAuction(t)
	if resp["sale_index"] != float64(1) {
		t.Errorf("sale_index = %v, want 1", resp["sale_index"])
	}
	if resp["seller"] != sellerAddr {
		t.Errorf("seller = %v", resp["seller"])
	}
	if resp["reserve_price"] != "2000" || resp["min_next_bid"] != "2001" {
		t.Errorf("reserve/min = %v/%v", resp["reserve_price"], resp["min_next_bid"])
	}
	if resp["top_bid"] != nil {
		t.Errorf("expected null top_bid, got %v", resp["top_bid"])
	}
	if resp["end_time"] != "2025-03-01T13:00:00Z" {
		t.Errorf("end_time = %v", resp["end_time"])
	}
}

func TestAuction_Create_Errors(t *testing.T) {
	tests := []struct {
		name   string
		caller string
		body   map[string]any
		status int
		code   string
	}{
		{"missing caller", "", map[string]any{"contract": nftContract, "token_id": "1", "quantity": 1, "duration": 60, "reserve_price": "2000"}, http.StatusBadRequest, "validation_error"},
		{"reserve too low", sellerAddr, map[string]any{"contract": nftContract, "token_id": "1", "quantity": 1, "duration": 60, "reserve_price": "10"}, http.StatusUnprocessableEntity, "price_too_low"},
		{"zero quantity", sellerAddr, map[string]any{"contract": nftContract, "token_id": "1", "quantity": 0, "duration": 60, "reserve_price": "2000"}, http.StatusUnprocessableEntity, "amount_cannot_be_zero"},
		{"unapproved contract", sellerAddr, map[string]any{"contract": multiToken, "token_id": "1", "quantity": 1, "duration": 60, "reserve_price": "2000"}, http.StatusUnprocessableEntity, "contract_not_approved"},
		{"not the owner", bidderAddr, map[string]any{"contract": nftContract, "token_id": "1", "quantity": 1, "duration": 60, "reserve_price": "2000"}, http.StatusConflict, "custody_transfer_failed"},
		{"unknown field", sellerAddr, map[string]any{"contract": nftContract, "price": 1}, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.seed(t)
			rr := env.do(t, "POST", "/auctions", tt.caller, tt.body)
			expectStatus(t, rr, tt.status)
			var e errorResponse
			decodeJSON(t, rr, &e)
			if e.Error != tt.code {
				t.Errorf("error code = %q, want %q", e.Error, tt.code)
			}
		})
	}
}

func TestAuction_BidOutbidAndSettle(t *testing.T) {
	env := newTestEnv()
	env.seed(t)
	env.createAuction(t)

	// Below reserve.
	rr := env.do(t, "POST", auctionPath+"/bids", bidderAddr, map[string]any{"amount": "10"})
	expectStatus(t, rr, http.StatusUnprocessableEntity)

	// Seller cannot bid.
	rr = env.do(t, "POST", auctionPath+"/bids", sellerAddr, map[string]any{"amount": "5000"})
	expectStatus(t, rr, http.StatusForbidden)

	rr = env.do(t, "POST", auctionPath+"/bids", bidderAddr, map[string]any{"amount": "100000000000000000"})
	expectStatus(t, rr, http.StatusCreated)

	// Too small a raise.
	rr = env.do(t, "POST", auctionPath+"/bids", bidder2Addr, map[string]any{"amount": "100000000000000001"})
	expectStatus(t, rr, http.StatusUnprocessableEntity)

	// More than the wallet holds.
	rr = env.do(t, "POST", auctionPath+"/bids", bidder2Addr, map[string]any{"amount": "5000000000000000000"})
	expectStatus(t, rr, http.StatusPaymentRequired)

	rr = env.do(t, "POST", auctionPath+"/bids", bidder2Addr, map[string]any{"amount": "200000000000000000"})
	expectStatus(t, rr, http.StatusCreated)
	var listing map[string]any
	decodeJSON(t, rr, &listing)
	top := listing["top_bid"].(map[string]any)
	if top["bidder"] != bidder2Addr || top["amount"] != "200000000000000000" {
		t.Errorf("top_bid = %v", top)
	}

	// Outbid bidder is refunded.
	rr = env.do(t, "GET", "/wallets/"+bidderAddr, "", nil)
	var wallet map[string]any
	decodeJSON(t, rr, &wallet)
	if wallet["balance"] != "1000000000000000000" {
		t.Errorf("outbid bidder balance = %v", wallet["balance"])
	}

	// Cannot cancel or settle early.
	expectStatus(t, env.do(t, "DELETE", auctionPath, sellerAddr, nil), http.StatusConflict)
	expectStatus(t, env.do(t, "POST", auctionPath+"/finalize", bidder2Addr, nil), http.StatusConflict)

	env.now = env.now.Add(time.Hour)
	expectStatus(t, env.do(t, "POST", auctionPath+"/bids", bidderAddr, map[string]any{"amount": "900000000000000000"}), http.StatusConflict)

	rr = env.do(t, "POST", auctionPath+"/finalize", bidder2Addr, nil)
	expectStatus(t, rr, http.StatusOK)
	var settled map[string]any
	decodeJSON(t, rr, &settled)
	if settled["winner"] != bidder2Addr || settled["amount"] != "200000000000000000" {
		t.Errorf("settlement = %v", settled)
	}

	// Seller received the sale minus the 2.5% platform fee.
	rr = env.do(t, "GET", "/wallets/"+sellerAddr, "", nil)
	decodeJSON(t, rr, &wallet)
	if wallet["balance"] != "195000000000000000" {
		t.Errorf("seller balance = %v", wallet["balance"])
	}

	expectStatus(t, env.do(t, "GET", auctionPath, "", nil), http.StatusNotFound)
	expectStatus(t, env.do(t, "POST", auctionPath+"/finalize", bidder2Addr, nil), http.StatusNotFound)
}

func TestAuction_UpdateAndCancel(t *testing.T) {
	env := newTestEnv()
	env.seed(t)
	env.createAuction(t)

	update := map[string]any{"quantity": 1, "duration": 7200, "reserve_price": "5000"}
	expectStatus(t, env.do(t, "PUT", auctionPath, bidderAddr, update), http.StatusForbidden)

	rr := env.do(t, "PUT", auctionPath, sellerAddr, update)
	expectStatus(t, rr, http.StatusOK)
	var listing map[string]any
	decodeJSON(t, rr, &listing)
	if listing["reserve_price"] != "5000" || listing["end_time"] != "2025-03-01T14:00:00Z" {
		t.Errorf("updated listing = %v", listing)
	}

	expectStatus(t, env.do(t, "DELETE", auctionPath, bidderAddr, nil), http.StatusForbidden)
	expectStatus(t, env.do(t, "DELETE", auctionPath, sellerAddr, nil), http.StatusNoContent)

	rr = env.do(t, "GET", "/wallets/"+sellerAddr, "", nil)
	var wallet struct {
		Holdings []map[string]any `json:"holdings"`
	}
	decodeJSON(t, rr, &wallet)
	if len(wallet.Holdings) != 1 {
		t.Errorf("seller holdings after cancel = %v", wallet.Holdings)
	}
}

func TestAuction_List(t *testing.T) {
	env := newTestEnv()
	env.seed(t)
	env.createAuction(t)

	rr := env.do(t, "GET", "/auctions?seller="+sellerAddr, "", nil)
	expectStatus(t, rr, http.StatusOK)
	var resp listingListResponse
	decodeJSON(t, rr, &resp)
	if resp.Total != 1 || len(resp.Listings) != 1 || resp.Page != 1 || resp.Limit != 20 {
		t.Errorf("unexpected list %+v", resp)
	}

	expectStatus(t, env.do(t, "GET", "/auctions?limit=abc", "", nil), http.StatusBadRequest)
	expectStatus(t, env.do(t, "GET", "/auctions?limit=1000", "", nil), http.StatusBadRequest)
}

func TestAuction_BadPath(t *testing.T) {
	env := newTestEnv()
	expectStatus(t, env.do(t, "GET", "/auctions/0xnope/1/1", "", nil), http.StatusBadRequest)
	expectStatus(t, env.do(t, "GET", "/auctions/"+nftContract+"/1/zero", "", nil), http.StatusBadRequest)
}

// --- Allowlist ---

func TestAllowlist_ApproveListRevoke(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "POST", "/allowlist", "", map[string]any{
		"contract": multiToken, "model": "fractional_quantity", "royalty_bps": 500, "royalty_recipient": sellerAddr,
	})
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, "GET", "/allowlist", "", nil)
	var list allowlistResponse
	decodeJSON(t, rr, &list)
	if len(list.Contracts) != 1 || list.Contracts[0].RoyaltyBps != 500 {
		t.Fatalf("unexpected allowlist %+v", list)
	}

	expectStatus(t, env.do(t, "DELETE", "/allowlist/"+multiToken, "", nil), http.StatusNoContent)
	expectStatus(t, env.do(t, "DELETE", "/allowlist/"+multiToken, "", nil), http.StatusUnprocessableEntity)
	expectStatus(t, env.do(t, "POST", "/allowlist", "", map[string]any{"contract": multiToken, "model": "erc20"}), http.StatusBadRequest)
}

// --- Wallets ---

func TestWallet_MintTwiceConflicts(t *testing.T) {
	env := newTestEnv()
	env.seed(t)
	rr := env.do(t, "POST", "/wallets/"+bidderAddr+"/assets", "", map[string]any{
		"contract": nftContract, "token_id": "1", "quantity": 1,
	})
	expectStatus(t, rr, http.StatusConflict)
}

// --- Notifications ---

func TestNotifications_Paging(t *testing.T) {
	env := newTestEnv()
	env.seed(t)
	env.createAuction(t)
	expectStatus(t, env.do(t, "POST", auctionPath+"/bids", bidderAddr, map[string]any{"amount": "5000"}), http.StatusCreated)

	rr := env.do(t, "GET", "/notifications?after=0&limit=1", "", nil)
	expectStatus(t, rr, http.StatusOK)
	var page struct {
		Notifications []map[string]any `json:"notifications"`
		Next          uint64           `json:"next"`
	}
	decodeJSON(t, rr, &page)
	if len(page.Notifications) != 1 || page.Notifications[0]["event"] != "auction.listed" || page.Next != 1 {
		t.Fatalf("unexpected first page %+v", page)
	}

	rr = env.do(t, "GET", "/notifications?after=1", "", nil)
	decodeJSON(t, rr, &page)
	if len(page.Notifications) != 1 || page.Notifications[0]["event"] != "auction.bid" {
		t.Fatalf("unexpected second page %+v", page)
	}
	data := page.Notifications[0]["data"].(map[string]any)
	if data["bidder"] != bidderAddr || data["amount"] != "5000" || data["previous_amount"] != "0" {
		t.Errorf("bid payload = %v", data)
	}
	if prev, ok := data["previous_bidder"]; !ok || prev != nil {
		t.Errorf("previous_bidder = %v (present %v), want null on a first bid", prev, ok)
	}

	expectStatus(t, env.do(t, "GET", "/notifications?after=-1", "", nil), http.StatusBadRequest)
}

// --- Webhooks ---

func TestWebhook_Lifecycle(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, "POST", "/webhooks", bidderAddr, map[string]any{
		"url": "https://example.com/hooks", "events": []string{"auction.bid", "auction.settled"},
	})
	expectStatus(t, rr, http.StatusCreated)
	var resp webhookListResponse
	decodeJSON(t, rr, &resp)
	if len(resp.Webhooks) != 2 || resp.Webhooks[0].Subscriber != bidderAddr {
		t.Fatalf("unexpected upsert response %+v", resp)
	}

	// Idempotent re-registration.
	rr = env.do(t, "POST", "/webhooks", bidderAddr, map[string]any{
		"url": "https://example.com/hooks", "events": []string{"auction.bid"},
	})
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, "GET", "/webhooks", bidderAddr, nil)
	decodeJSON(t, rr, &resp)
	if len(resp.Webhooks) != 2 {
		t.Fatalf("expected 2 webhooks, got %d", len(resp.Webhooks))
	}

	id := resp.Webhooks[0].WebhookID
	expectStatus(t, env.do(t, "DELETE", "/webhooks/"+id, sellerAddr, nil), http.StatusNotFound)
	expectStatus(t, env.do(t, "DELETE", "/webhooks/"+id, bidderAddr, nil), http.StatusNoContent)
	expectStatus(t, env.do(t, "DELETE", "/webhooks/"+id, bidderAddr, nil), http.StatusNotFound)
}

func TestWebhook_ValidationError(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "POST", "/webhooks", bidderAddr, map[string]any{
		"url": "http://example.com/hooks", "events": []string{"auction.bid"},
	})
	expectStatus(t, rr, http.StatusBadRequest)
}

// --- Content-Type Validation ---

func TestContentType_MissingOnPost(t *testing.T) {
	env := newTestEnv()
	rr := env.doRaw(t, "POST", "/allowlist", "", `{"contract":"`+nftContract+`","model":"exclusive_unit"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing Content-Type, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestContentType_WrongOnPost(t *testing.T) {
	env := newTestEnv()
	rr := env.doRaw(t, "POST", "/allowlist", "text/plain", `{"contract":"`+nftContract+`","model":"exclusive_unit"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong Content-Type, got %d: %s", rr.Code, rr.Body.String())
	}
}
