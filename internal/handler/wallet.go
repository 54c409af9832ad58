package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/escrowauction/internal/service"
)

// WalletHandler handles HTTP requests for wallet endpoints.
type WalletHandler struct {
	walletSvc *service.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc *service.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

type depositRequest struct {
	Amount string `json:"amount"`
}

type mintAssetRequest struct {
	Contract string `json:"contract"`
	TokenID  string `json:"token_id"`
	Quantity int64  `json:"quantity"`
	Model    string `json:"model"`
}

type approvalRequest struct {
	Approved bool `json:"approved"`
}

type holdingResponse struct {
	Contract string `json:"contract"`
	TokenID  string `json:"token_id"`
	Model    string `json:"model"`
	Quantity int64  `json:"quantity"`
}

// walletResponse is the JSON representation of a wallet.
type walletResponse struct {
	Address             string            `json:"address"`
	Balance             string            `json:"balance"`
	MarketplaceApproved bool              `json:"marketplace_approved"`
	Holdings            []holdingResponse `json:"holdings"`
}

// Deposit handles POST /wallets/{address}/deposit.
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	bal, err := h.walletSvc.Deposit(chi.URLParam(r, "address"), req.Amount)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildWalletResponse(bal))
}

// MintAsset handles POST /wallets/{address}/assets.
func (h *WalletHandler) MintAsset(w http.ResponseWriter, r *http.Request) {
	var req mintAssetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	bal, err := h.walletSvc.MintAsset(service.MintAssetRequest{
		Address:  chi.URLParam(r, "address"),
		Contract: req.Contract,
		TokenID:  req.TokenID,
		Quantity: req.Quantity,
		Model:    req.Model,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildWalletResponse(bal))
}

// SetApproval handles POST /wallets/{address}/approvals.
func (h *WalletHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	bal, err := h.walletSvc.SetApproval(chi.URLParam(r, "address"), req.Approved)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildWalletResponse(bal))
}

// Get handles GET /wallets/{address}.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	bal, err := h.walletSvc.Balance(chi.URLParam(r, "address"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildWalletResponse(bal))
}

func buildWalletResponse(b *service.WalletBalance) walletResponse {
	resp := walletResponse{
		Address:             b.Address.String(),
		Balance:             b.Balance.String(),
		MarketplaceApproved: b.MarketplaceApproved,
		Holdings:            make([]holdingResponse, len(b.Holdings)),
	}
	for i, hd := range b.Holdings {
		resp.Holdings[i] = holdingResponse{
			Contract: hd.Asset.Contract.String(),
			TokenID:  hd.Asset.TokenID,
			Model:    string(hd.Model),
			Quantity: hd.Quantity,
		}
	}
	return resp
}
