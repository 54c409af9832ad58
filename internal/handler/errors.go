package handler

import (
	"errors"
	"net/http"

	"github.com/efreitasn/escrowauction/internal/domain"
)

// mapError maps domain errors to HTTP responses.
func mapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, codeValidation, validationErr.Message)
		return
	}

	switch {
	// Authorization.
	case errors.Is(err, domain.ErrOnlySellerCanUpdate):
		WriteError(w, http.StatusForbidden, "only_seller_can_update", err.Error())
	case errors.Is(err, domain.ErrOnlySellerCanCancel):
		WriteError(w, http.StatusForbidden, "only_seller_can_cancel", err.Error())
	case errors.Is(err, domain.ErrSellerCannotBid):
		WriteError(w, http.StatusForbidden, "seller_cannot_bid", err.Error())

	// Missing resources.
	case errors.Is(err, domain.ErrNotValidAuctionSale):
		WriteError(w, http.StatusNotFound, "not_valid_auction_sale", err.Error())
	case errors.Is(err, domain.ErrWebhookNotFound):
		WriteError(w, http.StatusNotFound, "webhook_not_found", err.Error())

	// Rule violations.
	case errors.Is(err, domain.ErrContractNotApproved):
		WriteError(w, http.StatusUnprocessableEntity, "contract_not_approved", err.Error())
	case errors.Is(err, domain.ErrAmountCannotBeZero):
		WriteError(w, http.StatusUnprocessableEntity, "amount_cannot_be_zero", err.Error())
	case errors.Is(err, domain.ErrPriceTooLow):
		WriteError(w, http.StatusUnprocessableEntity, "price_too_low", err.Error())
	case errors.Is(err, domain.ErrBidTooLow):
		WriteError(w, http.StatusUnprocessableEntity, "bid_too_low", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		WriteError(w, http.StatusUnprocessableEntity, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrInvalidDuration):
		WriteError(w, http.StatusUnprocessableEntity, "invalid_duration", err.Error())

	// State conflicts.
	case errors.Is(err, domain.ErrAuctionEnded):
		WriteError(w, http.StatusConflict, "auction_ended", err.Error())
	case errors.Is(err, domain.ErrAuctionNotEnded):
		WriteError(w, http.StatusConflict, "auction_not_ended", err.Error())
	case errors.Is(err, domain.ErrAuctionHasBids):
		WriteError(w, http.StatusConflict, "auction_has_bids", err.Error())
	case errors.Is(err, domain.ErrTokenAlreadyMinted):
		WriteError(w, http.StatusConflict, "token_already_minted", err.Error())
	case errors.Is(err, domain.ErrCustodyTransfer):
		WriteError(w, http.StatusConflict, "custody_transfer_failed", err.Error())

	// Funds.
	case errors.Is(err, domain.ErrInsufficientFunds):
		WriteError(w, http.StatusPaymentRequired, "insufficient_funds", err.Error())

	default:
		WriteError(w, http.StatusInternalServerError, codeInternal, "An unexpected error occurred")
	}
}
