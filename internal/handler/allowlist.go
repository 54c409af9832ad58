package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/efreitasn/escrowauction/internal/service"
)

// AllowlistHandler handles HTTP requests for allowlist administration.
type AllowlistHandler struct {
	allowlistSvc *service.AllowlistService
}

// NewAllowlistHandler creates a new AllowlistHandler.
func NewAllowlistHandler(allowlistSvc *service.AllowlistService) *AllowlistHandler {
	return &AllowlistHandler{allowlistSvc: allowlistSvc}
}

type approveContractRequest struct {
	Contract         string `json:"contract"`
	Model            string `json:"model"`
	RoyaltyBps       int64  `json:"royalty_bps"`
	RoyaltyRecipient string `json:"royalty_recipient"`
}

type allowlistEntryResponse struct {
	Contract         string  `json:"contract"`
	Model            string  `json:"model"`
	RoyaltyBps       int64   `json:"royalty_bps"`
	RoyaltyRecipient *string `json:"royalty_recipient"`
}

type allowlistResponse struct {
	Contracts []allowlistEntryResponse `json:"contracts"`
}

// Approve handles POST /allowlist.
func (h *AllowlistHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approveContractRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := h.allowlistSvc.Approve(service.ApproveContractRequest{
		Contract:         req.Contract,
		Model:            req.Model,
		RoyaltyBps:       req.RoyaltyBps,
		RoyaltyRecipient: req.RoyaltyRecipient,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildAllowlistEntry(entry))
}

// List handles GET /allowlist.
func (h *AllowlistHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.allowlistSvc.List()
	resp := allowlistResponse{Contracts: make([]allowlistEntryResponse, len(entries))}
	for i, e := range entries {
		resp.Contracts[i] = buildAllowlistEntry(e)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Revoke handles DELETE /allowlist/{contract}.
func (h *AllowlistHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.allowlistSvc.Revoke(chi.URLParam(r, "contract")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildAllowlistEntry(e domain.AllowlistEntry) allowlistEntryResponse {
	resp := allowlistEntryResponse{
		Contract:   e.Contract.String(),
		Model:      string(e.Model),
		RoyaltyBps: e.RoyaltyBps,
	}
	if !e.RoyaltyRecipient.IsZero() {
		rr := e.RoyaltyRecipient.String()
		resp.RoyaltyRecipient = &rr
	}
	return resp
}
