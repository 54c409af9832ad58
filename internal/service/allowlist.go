package service

import (
	"fmt"

	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/efreitasn/escrowauction/internal/royalty"
)

// ApproveContractRequest represents the input for allowlisting a contract.
type ApproveContractRequest struct {
	Contract         string
	Model            string
	RoyaltyBps       int64
	RoyaltyRecipient string
}

// AllowlistService administers the set of listable asset contracts.
type AllowlistService struct {
	allowlist      *domain.Allowlist
	platformFeeBps int64
}

// NewAllowlistService creates a new AllowlistService. platformFeeBps bounds
// the royalty a contract may carry.
func NewAllowlistService(allowlist *domain.Allowlist, platformFeeBps int64) *AllowlistService {
	return &AllowlistService{allowlist: allowlist, platformFeeBps: platformFeeBps}
}

// Approve validates the request and adds or replaces the contract's entry.
func (s *AllowlistService) Approve(req ApproveContractRequest) (domain.AllowlistEntry, error) {
	contract, err := ParseAddress("contract", req.Contract)
	if err != nil {
		return domain.AllowlistEntry{}, err
	}
	model := domain.OwnershipModel(req.Model)
	if !model.Valid() {
		return domain.AllowlistEntry{}, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown model: %s. Must be one of: exclusive_unit, fractional_quantity", req.Model),
		}
	}
	if req.RoyaltyBps < 0 || s.platformFeeBps+req.RoyaltyBps > royalty.MaxBps {
		return domain.AllowlistEntry{}, &domain.ValidationError{
			Message: fmt.Sprintf("royalty_bps must be between 0 and %d", royalty.MaxBps-s.platformFeeBps),
		}
	}

	entry := domain.AllowlistEntry{Contract: contract, Model: model, RoyaltyBps: req.RoyaltyBps}
	if req.RoyaltyBps > 0 {
		recipient, err := ParseAddress("royalty_recipient", req.RoyaltyRecipient)
		if err != nil {
			return domain.AllowlistEntry{}, err
		}
		entry.RoyaltyRecipient = recipient
	}

	s.allowlist.Approve(entry)
	return entry, nil
}

// Revoke removes a contract. Listings already open are unaffected until
// their next update.
func (s *AllowlistService) Revoke(contract string) error {
	addr, err := ParseAddress("contract", contract)
	if err != nil {
		return err
	}
	if !s.allowlist.Revoke(addr) {
		return &domain.ContractNotApprovedError{Contract: addr}
	}
	return nil
}

// List returns every allowlisted contract.
func (s *AllowlistService) List() []domain.AllowlistEntry {
	return s.allowlist.Entries()
}
