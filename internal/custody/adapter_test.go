package custody

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efreitasn/escrowauction/internal/domain"
)

const (
	market  domain.Address = "0xmarket"
	creator domain.Address = "0xcreator"
	other   domain.Address = "0xother"
)

var (
	unitAsset  = domain.AssetRef{Contract: "0x721", TokenID: "1"}
	multiAsset = domain.AssetRef{Contract: "0x1155", TokenID: "1"}
)

func newTestRegistry(t *testing.T) (*Registry, *Vault) {
	t.Helper()
	v := NewVault()
	require.NoError(t, v.MintUnit(unitAsset, creator))
	require.NoError(t, v.MintQuantity(multiAsset, creator, 10))
	v.SetApprovalForAll(creator, market, true)
	return NewRegistry(v, market), v
}

func TestExclusiveUnit_RoundTrip(t *testing.T) {
	reg, v := newTestRegistry(t)
	a, err := reg.For(domain.ExclusiveUnit)
	require.NoError(t, err)

	require.NoError(t, a.TransferIn(context.Background(), unitAsset, 1, creator))
	require.Equal(t, int64(0), v.BalanceOf(unitAsset, creator))
	require.Equal(t, int64(1), v.BalanceOf(unitAsset, market))

	require.NoError(t, a.TransferOut(context.Background(), unitAsset, 1, other))
	owner, ok := v.OwnerOf(unitAsset)
	require.True(t, ok)
	require.Equal(t, other, owner)
}

func TestExclusiveUnit_RejectsQuantityOtherThanOne(t *testing.T) {
	reg, v := newTestRegistry(t)
	a, _ := reg.For(domain.ExclusiveUnit)

	err := a.TransferIn(context.Background(), unitAsset, 2, creator)
	require.ErrorIs(t, err, domain.ErrCustodyTransfer)
	require.Equal(t, int64(1), v.BalanceOf(unitAsset, creator))
}

func TestExclusiveUnit_RequiresOperatorApproval(t *testing.T) {
	reg, v := newTestRegistry(t)
	v.SetApprovalForAll(creator, market, false)
	a, _ := reg.For(domain.ExclusiveUnit)

	err := a.TransferIn(context.Background(), unitAsset, 1, creator)
	require.ErrorIs(t, err, domain.ErrCustodyTransfer)
	require.ErrorIs(t, err, domain.ErrNotApprovedOperator)
	require.Equal(t, int64(1), v.BalanceOf(unitAsset, creator))
}

func TestExclusiveUnit_NotOwner(t *testing.T) {
	reg, _ := newTestRegistry(t)
	a, _ := reg.For(domain.ExclusiveUnit)

	err := a.TransferIn(context.Background(), unitAsset, 1, other)
	require.ErrorIs(t, err, domain.ErrInsufficientAssetBalance)
}

func TestFractionalQuantity_PartialTransfers(t *testing.T) {
	reg, v := newTestRegistry(t)
	a, err := reg.For(domain.FractionalQuantity)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, a.TransferIn(ctx, multiAsset, 5, creator))
	require.Equal(t, int64(5), v.BalanceOf(multiAsset, creator))
	require.Equal(t, int64(5), v.BalanceOf(multiAsset, market))

	require.NoError(t, a.TransferIn(ctx, multiAsset, 5, creator))
	require.Equal(t, int64(0), v.BalanceOf(multiAsset, creator))
	require.Equal(t, int64(10), v.BalanceOf(multiAsset, market))

	require.NoError(t, a.TransferOut(ctx, multiAsset, 3, other))
	require.Equal(t, int64(7), v.BalanceOf(multiAsset, market))
	require.Equal(t, int64(3), v.BalanceOf(multiAsset, other))
}

func TestFractionalQuantity_InsufficientBalance(t *testing.T) {
	reg, v := newTestRegistry(t)
	a, _ := reg.For(domain.FractionalQuantity)

	err := a.TransferIn(context.Background(), multiAsset, 11, creator)
	require.ErrorIs(t, err, domain.ErrInsufficientAssetBalance)
	require.Equal(t, int64(10), v.BalanceOf(multiAsset, creator))
	require.Equal(t, int64(0), v.BalanceOf(multiAsset, market))
}

func TestAdapter_CancelledContext(t *testing.T) {
	reg, _ := newTestRegistry(t)
	a, _ := reg.For(domain.FractionalQuantity)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, a.TransferIn(ctx, multiAsset, 1, creator), context.Canceled)
}

func TestRegistry_UnknownModel(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, err := reg.For("erc20")
	require.ErrorIs(t, err, domain.ErrCustodyTransfer)
}

func TestVault_MintUnitTwice(t *testing.T) {
	v := NewVault()
	require.NoError(t, v.MintUnit(unitAsset, creator))
	require.Error(t, v.MintUnit(unitAsset, other))
}

func TestVault_HoldingsOf(t *testing.T) {
	_, v := newTestRegistry(t)
	h := v.HoldingsOf(creator)
	require.Len(t, h, 2)

	total := map[domain.OwnershipModel]int64{}
	for _, x := range h {
		total[x.Model] += x.Quantity
	}
	require.Equal(t, int64(1), total[domain.ExclusiveUnit])
	require.Equal(t, int64(10), total[domain.FractionalQuantity])
}
