package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/efreitasn/escrowauction/internal/domain"
)

var (
	addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	tokenIDRegex = regexp.MustCompile(`^[0-9]{1,78}$`)
)

// ParseAddress validates a hex account or contract address and returns it
// normalized to lowercase.
func ParseAddress(field, s string) (domain.Address, error) {
	if !addressRegex.MatchString(s) {
		return domain.NoAddress, &domain.ValidationError{
			Message: field + " must match ^0x[0-9a-fA-F]{40}$",
		}
	}
	return domain.NormalizeAddress(s), nil
}

// ParseAsset validates a contract address and decimal token id.
func ParseAsset(contract, tokenID string) (domain.AssetRef, error) {
	c, err := ParseAddress("contract", contract)
	if err != nil {
		return domain.AssetRef{}, err
	}
	if !tokenIDRegex.MatchString(tokenID) {
		return domain.AssetRef{}, &domain.ValidationError{
			Message: "token_id must be a decimal integer of at most 78 digits",
		}
	}
	return domain.AssetRef{Contract: c, TokenID: canonicalTokenID(tokenID)}, nil
}

// canonicalTokenID drops leading zeros so "007" and "7" name the same
// token. The input is already known to be all digits.
func canonicalTokenID(s string) string {
	if t := strings.TrimLeft(s, "0"); t != "" {
		return t
	}
	return "0"
}

// ParseListingKey validates the three path components that identify a
// listing.
func ParseListingKey(contract, tokenID, saleIndex string) (domain.ListingKey, error) {
	asset, err := ParseAsset(contract, tokenID)
	if err != nil {
		return domain.ListingKey{}, err
	}
	idx, err := strconv.ParseUint(saleIndex, 10, 64)
	if err != nil || idx == 0 {
		return domain.ListingKey{}, &domain.ValidationError{
			Message: "sale_index must be a positive integer",
		}
	}
	return domain.ListingKey{Asset: asset, SaleIndex: idx}, nil
}

// ParseAmount validates a non-negative integer wei amount.
func ParseAmount(field, s string) (domain.Amount, error) {
	if s == "" {
		return domain.Zero, &domain.ValidationError{Message: field + " is required"}
	}
	a, err := domain.ParseWei(s)
	if err != nil {
		return domain.Zero, &domain.ValidationError{
			Message: fmt.Sprintf("%s must be a non-negative integer amount in wei", field),
		}
	}
	return a, nil
}
