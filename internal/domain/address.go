package domain

import (
	"fmt"
	"strings"
)

// Address identifies an account: a seller, a bidder, a royalty recipient or
// the marketplace itself. Addresses are opaque to the engine; they are
// compared after normalization to lowercase.
type Address string

// NoAddress is the zero Address, used where a party is absent (e.g. the
// previous bidder on a first bid).
const NoAddress Address = ""

// NormalizeAddress lowercases and trims an address.
func NormalizeAddress(s string) Address {
	return Address(strings.ToLower(strings.TrimSpace(s)))
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == NoAddress
}

func (a Address) String() string {
	return string(a)
}

// AssetRef identifies a token within an asset contract.
type AssetRef struct {
	Contract Address
	TokenID  string
}

func (r AssetRef) String() string {
	return fmt.Sprintf("%s/%s", r.Contract, r.TokenID)
}

// ListingKey identifies one auction listing. SaleIndex distinguishes
// successive listings of the same asset.
type ListingKey struct {
	Asset     AssetRef
	SaleIndex uint64
}

func (k ListingKey) String() string {
	return fmt.Sprintf("%s/%d", k.Asset, k.SaleIndex)
}

// Less orders keys by contract, token and sale index.
func (k ListingKey) Less(o ListingKey) bool {
	if k.Asset.Contract != o.Asset.Contract {
		return k.Asset.Contract < o.Asset.Contract
	}
	if k.Asset.TokenID != o.Asset.TokenID {
		return k.Asset.TokenID < o.Asset.TokenID
	}
	return k.SaleIndex < o.SaleIndex
}
