package service

import (
	"fmt"
	"sort"

	"github.com/efreitasn/escrowauction/internal/custody"
	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/efreitasn/escrowauction/internal/payment"
)

// MintAssetRequest represents the input for crediting assets to a wallet.
type MintAssetRequest struct {
	Address  string
	Contract string
	TokenID  string
	Quantity int64
	// Model overrides the allowlist's ownership model; required for
	// contracts not on the allowlist.
	Model string
}

// WalletBalance represents a wallet's currency and asset holdings.
type WalletBalance struct {
	Address             domain.Address
	Balance             domain.Amount
	Holdings            []custody.Holding
	MarketplaceApproved bool
}

// WalletService funds accounts and mints reference assets so the engine
// can be exercised end to end. It stands in for the chain's native
// currency and token contracts.
type WalletService struct {
	vault       *custody.Vault
	ledger      *payment.Ledger
	allowlist   *domain.Allowlist
	marketplace domain.Address
}

// NewWalletService creates a new WalletService.
func NewWalletService(vault *custody.Vault, ledger *payment.Ledger, allowlist *domain.Allowlist, marketplace domain.Address) *WalletService {
	return &WalletService{
		vault:       vault,
		ledger:      ledger,
		allowlist:   allowlist,
		marketplace: marketplace,
	}
}

// Deposit credits amount wei to address.
func (s *WalletService) Deposit(address, amount string) (*WalletBalance, error) {
	addr, err := ParseAddress("address", address)
	if err != nil {
		return nil, err
	}
	amt, err := ParseAmount("amount", amount)
	if err != nil {
		return nil, err
	}
	if !amt.IsPositive() {
		return nil, &domain.ValidationError{Message: "amount must be > 0"}
	}
	if err := s.ledger.Credit(addr, amt); err != nil {
		return nil, err
	}
	return s.balance(addr), nil
}

// MintAsset credits an asset to a wallet.
func (s *WalletService) MintAsset(req MintAssetRequest) (*WalletBalance, error) {
	addr, err := ParseAddress("address", req.Address)
	if err != nil {
		return nil, err
	}
	asset, err := ParseAsset(req.Contract, req.TokenID)
	if err != nil {
		return nil, err
	}

	model := domain.OwnershipModel(req.Model)
	if model == "" {
		ok, m := s.allowlist.IsApproved(asset.Contract)
		if !ok {
			return nil, &domain.ValidationError{Message: "model is required for contracts not on the allowlist"}
		}
		model = m
	}

	switch model {
	case domain.ExclusiveUnit:
		if req.Quantity != 1 {
			return nil, &domain.ValidationError{Message: "quantity must be 1 for exclusive_unit assets"}
		}
		if err := s.vault.MintUnit(asset, addr); err != nil {
			return nil, err
		}
	case domain.FractionalQuantity:
		if req.Quantity <= 0 {
			return nil, &domain.ValidationError{Message: "quantity must be a positive integer"}
		}
		if err := s.vault.MintQuantity(asset, addr, req.Quantity); err != nil {
			return nil, err
		}
	default:
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown model: %s. Must be one of: exclusive_unit, fractional_quantity", model),
		}
	}
	return s.balance(addr), nil
}

// SetApproval grants or revokes the marketplace's operator rights over the
// wallet's assets.
func (s *WalletService) SetApproval(address string, approved bool) (*WalletBalance, error) {
	addr, err := ParseAddress("address", address)
	if err != nil {
		return nil, err
	}
	s.vault.SetApprovalForAll(addr, s.marketplace, approved)
	return s.balance(addr), nil
}

// Balance returns the wallet's holdings.
func (s *WalletService) Balance(address string) (*WalletBalance, error) {
	addr, err := ParseAddress("address", address)
	if err != nil {
		return nil, err
	}
	return s.balance(addr), nil
}

func (s *WalletService) balance(addr domain.Address) *WalletBalance {
	holdings := s.vault.HoldingsOf(addr)
	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].Asset.Contract != holdings[j].Asset.Contract {
			return holdings[i].Asset.Contract < holdings[j].Asset.Contract
		}
		return holdings[i].Asset.TokenID < holdings[j].Asset.TokenID
	})
	return &WalletBalance{
		Address:             addr,
		Balance:             s.ledger.Balance(addr),
		Holdings:            holdings,
		MarketplaceApproved: s.vault.IsApprovedForAll(addr, s.marketplace),
	}
}
