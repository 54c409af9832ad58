// Package custody moves assets into and out of marketplace custody. The
// Vault is an in-process asset ledger covering both ownership models; the
// ExclusiveUnit and FractionalQuantity adapters present it to the engine
// through one Adapter interface.
package custody

import (
	"fmt"
	"sync"

	"github.com/efreitasn/escrowauction/internal/domain"
)

// Vault records who holds which assets. Exclusive-unit tokens have a single
// owner; fractional tokens have per-holder balances. Operators approved by
// an owner may move that owner's assets.
type Vault struct {
	mu        sync.RWMutex
	owners    map[domain.AssetRef]domain.Address           // exclusive-unit token → owner
	balances  map[domain.AssetRef]map[domain.Address]int64 // fractional token → holder → quantity
	operators map[domain.Address]map[domain.Address]bool   // owner → operator → approved
}

// NewVault creates an empty Vault.
func NewVault() *Vault {
	return &Vault{
		owners:    make(map[domain.AssetRef]domain.Address),
		balances:  make(map[domain.AssetRef]map[domain.Address]int64),
		operators: make(map[domain.Address]map[domain.Address]bool),
	}
}

// MintUnit assigns an exclusive-unit token to owner. It fails if the token
// already has an owner.
func (v *Vault) MintUnit(asset domain.AssetRef, owner domain.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if cur, ok := v.owners[asset]; ok {
		return fmt.Errorf("%w: %s owned by %s", domain.ErrTokenAlreadyMinted, asset, cur)
	}
	v.owners[asset] = owner
	return nil
}

// MintQuantity credits qty units of a fractional token to holder.
func (v *Vault) MintQuantity(asset domain.AssetRef, holder domain.Address, qty int64) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.balances[asset] == nil {
		v.balances[asset] = make(map[domain.Address]int64)
	}
	v.balances[asset][holder] += qty
	return nil
}

// SetApprovalForAll grants or revokes operator's right to move owner's assets.
func (v *Vault) SetApprovalForAll(owner, operator domain.Address, approved bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.operators[owner] == nil {
		v.operators[owner] = make(map[domain.Address]bool)
	}
	v.operators[owner][operator] = approved
}

// IsApprovedForAll reports whether operator may move owner's assets.
func (v *Vault) IsApprovedForAll(owner, operator domain.Address) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.operators[owner][operator]
}

// OwnerOf returns the owner of an exclusive-unit token.
func (v *Vault) OwnerOf(asset domain.AssetRef) (domain.Address, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	o, ok := v.owners[asset]
	return o, ok
}

// BalanceOf returns holder's quantity of asset under either model: 1 or 0
// for exclusive-unit tokens, the recorded balance for fractional ones.
func (v *Vault) BalanceOf(asset domain.AssetRef, holder domain.Address) int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if o, ok := v.owners[asset]; ok {
		if o == holder {
			return 1
		}
		return 0
	}
	return v.balances[asset][holder]
}

// Holding is one entry of an account's asset inventory.
type Holding struct {
	Asset    domain.AssetRef
	Model    domain.OwnershipModel
	Quantity int64
}

// HoldingsOf lists every asset held by holder.
func (v *Vault) HoldingsOf(holder domain.Address) []Holding {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]Holding, 0)
	for asset, o := range v.owners {
		if o == holder {
			out = append(out, Holding{Asset: asset, Model: domain.ExclusiveUnit, Quantity: 1})
		}
	}
	for asset, holders := range v.balances {
		if q := holders[holder]; q > 0 {
			out = append(out, Holding{Asset: asset, Model: domain.FractionalQuantity, Quantity: q})
		}
	}
	return out
}

// moveUnit transfers an exclusive-unit token. operator must be the owner or
// an approved operator.
func (v *Vault) moveUnit(asset domain.AssetRef, from, to, operator domain.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	owner, ok := v.owners[asset]
	if !ok || owner != from {
		return fmt.Errorf("%w: %s does not own %s", domain.ErrInsufficientAssetBalance, from, asset)
	}
	if operator != from && !v.operators[from][operator] {
		return domain.ErrNotApprovedOperator
	}
	v.owners[asset] = to
	return nil
}

// moveQuantity transfers qty units of a fractional token.
func (v *Vault) moveQuantity(asset domain.AssetRef, from, to, operator domain.Address, qty int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.balances[asset][from] < qty {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d",
			domain.ErrInsufficientAssetBalance, from, v.balances[asset][from], asset, qty)
	}
	if operator != from && !v.operators[from][operator] {
		return domain.ErrNotApprovedOperator
	}
	v.balances[asset][from] -= qty
	if v.balances[asset][from] == 0 {
		delete(v.balances[asset], from)
	}
	v.balances[asset][to] += qty
	return nil
}
