package custody

import (
	"context"
	"fmt"

	"github.com/efreitasn/escrowauction/internal/domain"
)

// Adapter moves an asset quantity between an account and marketplace
// custody. Implementations report failure with an error wrapping
// domain.ErrCustodyTransfer so the engine can abort.
type Adapter interface {
	TransferIn(ctx context.Context, asset domain.AssetRef, qty int64, owner domain.Address) error
	TransferOut(ctx context.Context, asset domain.AssetRef, qty int64, recipient domain.Address) error
}

// ExclusiveUnit moves single-owner tokens. Quantity must be exactly 1.
type ExclusiveUnit struct {
	vault       *Vault
	marketplace domain.Address
}

// NewExclusiveUnit returns an adapter holding tokens as marketplace.
func NewExclusiveUnit(vault *Vault, marketplace domain.Address) *ExclusiveUnit {
	return &ExclusiveUnit{vault: vault, marketplace: marketplace}
}

func (a *ExclusiveUnit) TransferIn(ctx context.Context, asset domain.AssetRef, qty int64, owner domain.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if qty != 1 {
		return fmt.Errorf("%w: exclusive-unit transfer of %d units", domain.ErrCustodyTransfer, qty)
	}
	if err := a.vault.moveUnit(asset, owner, a.marketplace, a.marketplace); err != nil {
		return fmt.Errorf("%w: pull %s from %s: %w", domain.ErrCustodyTransfer, asset, owner, err)
	}
	return nil
}

func (a *ExclusiveUnit) TransferOut(ctx context.Context, asset domain.AssetRef, qty int64, recipient domain.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if qty != 1 {
		return fmt.Errorf("%w: exclusive-unit transfer of %d units", domain.ErrCustodyTransfer, qty)
	}
	if err := a.vault.moveUnit(asset, a.marketplace, recipient, a.marketplace); err != nil {
		return fmt.Errorf("%w: release %s to %s: %w", domain.ErrCustodyTransfer, asset, recipient, err)
	}
	return nil
}

// FractionalQuantity moves any positive quantity of a fractional token.
type FractionalQuantity struct {
	vault       *Vault
	marketplace domain.Address
}

// NewFractionalQuantity returns an adapter holding balances as marketplace.
func NewFractionalQuantity(vault *Vault, marketplace domain.Address) *FractionalQuantity {
	return &FractionalQuantity{vault: vault, marketplace: marketplace}
}

func (a *FractionalQuantity) TransferIn(ctx context.Context, asset domain.AssetRef, qty int64, owner domain.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if qty <= 0 {
		return fmt.Errorf("%w: non-positive quantity %d", domain.ErrCustodyTransfer, qty)
	}
	if err := a.vault.moveQuantity(asset, owner, a.marketplace, a.marketplace, qty); err != nil {
		return fmt.Errorf("%w: pull %d of %s from %s: %w", domain.ErrCustodyTransfer, qty, asset, owner, err)
	}
	return nil
}

func (a *FractionalQuantity) TransferOut(ctx context.Context, asset domain.AssetRef, qty int64, recipient domain.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if qty <= 0 {
		return fmt.Errorf("%w: non-positive quantity %d", domain.ErrCustodyTransfer, qty)
	}
	if err := a.vault.moveQuantity(asset, a.marketplace, recipient, a.marketplace, qty); err != nil {
		return fmt.Errorf("%w: release %d of %s to %s: %w", domain.ErrCustodyTransfer, qty, asset, recipient, err)
	}
	return nil
}

// Registry selects the adapter for an ownership model.
type Registry struct {
	adapters map[domain.OwnershipModel]Adapter
}

// NewRegistry wires the two vault-backed adapters for marketplace.
func NewRegistry(vault *Vault, marketplace domain.Address) *Registry {
	return &Registry{
		adapters: map[domain.OwnershipModel]Adapter{
			domain.ExclusiveUnit:      NewExclusiveUnit(vault, marketplace),
			domain.FractionalQuantity: NewFractionalQuantity(vault, marketplace),
		},
	}
}

// NewRegistryWith builds a registry from explicit adapters.
func NewRegistryWith(adapters map[domain.OwnershipModel]Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// For returns the adapter for model.
func (r *Registry) For(model domain.OwnershipModel) (Adapter, error) {
	a, ok := r.adapters[model]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for ownership model %q", domain.ErrCustodyTransfer, model)
	}
	return a, nil
}
