package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	// Authorization.
	ErrOnlySellerCanUpdate = errors.New("only_seller_can_update")
	ErrOnlySellerCanCancel = errors.New("only_seller_can_cancel")
	ErrSellerCannotBid     = errors.New("seller_cannot_bid")

	// Validation.
	ErrContractNotApproved = errors.New("contract_not_approved")
	ErrAmountCannotBeZero  = errors.New("amount_cannot_be_zero")
	ErrPriceTooLow         = errors.New("price_too_low")
	ErrBidTooLow           = errors.New("bid_too_low")
	ErrNotValidAuctionSale = errors.New("not_valid_auction_sale")
	ErrAuctionEnded        = errors.New("auction_ended")
	ErrAuctionNotEnded     = errors.New("auction_not_ended")
	ErrAuctionHasBids      = errors.New("auction_has_bids")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidDuration     = errors.New("invalid_duration")

	// Custody and payment.
	ErrCustodyTransfer          = errors.New("custody_transfer_failed")
	ErrNotApprovedOperator      = errors.New("marketplace_not_approved_operator")
	ErrInsufficientAssetBalance = errors.New("insufficient_asset_balance")
	ErrInsufficientFunds        = errors.New("insufficient_funds")
	ErrEscrowUnderflow          = errors.New("escrow_underflow")
	ErrTokenAlreadyMinted       = errors.New("token_already_minted")

	ErrWebhookNotFound = errors.New("webhook_not_found")
)

// ContractNotApprovedError reports a listing attempt on an asset contract
// the allowlist does not accept. It matches ErrContractNotApproved.
type ContractNotApprovedError struct {
	Contract Address
}

func (e *ContractNotApprovedError) Error() string {
	return fmt.Sprintf("contract_not_approved(%s)", e.Contract)
}

func (e *ContractNotApprovedError) Is(target error) bool {
	return target == ErrContractNotApproved
}

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
