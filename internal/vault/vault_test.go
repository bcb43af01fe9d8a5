package vault

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"futarchy/internal/model"
	"futarchy/internal/token"
)

var (
	meta     = common.HexToAddress("0xa1")
	issuer   = common.HexToAddress("0xa2")
	proposal = common.HexToAddress("0xa3")
	alice    = common.HexToAddress("0x01")
	bob      = common.HexToAddress("0x02")
)

func setup(t *testing.T) (*token.Ledger, *Vault) {
	t.Helper()
	ledger := token.NewLedger()
	require.NoError(t, ledger.CreateMint(meta, 9, issuer, "META"))
	require.NoError(t, ledger.MintTo(issuer, meta, alice, 1_000))
	require.NoError(t, ledger.MintTo(issuer, meta, bob, 1_000))

	v, err := Open(ledger, proposal, meta)
	require.NoError(t, err)
	return ledger, v
}

func requireBacked(t *testing.T, ledger *token.Ledger, v *Vault) {
	t.Helper()
	escrow := ledger.BalanceOf(meta, v.Address())
	pass, err := ledger.Supply(v.PassMint())
	require.NoError(t, err)
	fail, err := ledger.Supply(v.FailMint())
	require.NoError(t, err)
	require.Equal(t, escrow, pass)
	require.Equal(t, escrow, fail)
}

func TestOpen(t *testing.T) {
	ledger, v := setup(t)
	dec, err := ledger.Decimals(v.PassMint())
	require.NoError(t, err)
	require.Equal(t, uint8(9), dec)

	_, err = Open(ledger, proposal, meta)
	require.ErrorIs(t, err, token.ErrMintExists)

	_, err = Open(ledger, proposal, common.HexToAddress("0xff"))
	require.ErrorIs(t, err, token.ErrUnknownMint)
}

func TestMintMerge(t *testing.T) {
	ledger, v := setup(t)

	require.ErrorIs(t, v.Mint(ledger, alice, 0), ErrZeroAmount)
	require.ErrorIs(t, v.Mint(ledger, alice, 1_001), token.ErrInsufficientBalance)

	require.NoError(t, v.Mint(ledger, alice, 600))
	require.NoError(t, v.Mint(ledger, bob, 100))
	requireBacked(t, ledger, v)
	require.Equal(t, uint64(600), ledger.BalanceOf(v.PassMint(), alice))
	require.Equal(t, uint64(400), ledger.BalanceOf(meta, alice))

	require.NoError(t, v.Merge(ledger, alice, 250))
	requireBacked(t, ledger, v)
	require.Equal(t, uint64(650), ledger.BalanceOf(meta, alice))

	// alice moves her fail tokens away and can no longer merge
	require.NoError(t, ledger.Transfer(alice, v.FailMint(), alice, bob, 350))
	require.ErrorIs(t, v.Merge(ledger, alice, 1), token.ErrInsufficientBalance)
}

func TestRedeemRequiresSettlement(t *testing.T) {
	ledger, v := setup(t)
	require.NoError(t, v.Mint(ledger, alice, 100))

	_, err := v.Redeem(ledger, alice)
	require.ErrorIs(t, err, ErrVaultActive)
}

func TestRedeemPassed(t *testing.T) {
	ledger, v := setup(t)
	require.NoError(t, v.Mint(ledger, alice, 300))
	require.NoError(t, v.Mint(ledger, bob, 200))
	require.NoError(t, ledger.Transfer(alice, v.PassMint(), alice, bob, 100))

	require.NoError(t, v.Settle(true))
	require.ErrorIs(t, v.Settle(false), ErrVaultSettled)
	require.ErrorIs(t, v.Mint(ledger, alice, 1), ErrVaultSettled)
	require.Equal(t, model.VaultFinalized, v.Status())

	res, err := v.Redeem(ledger, alice)
	require.NoError(t, err)
	require.Equal(t, Redemption{PassBurned: 200, FailBurned: 300, Payout: 200}, res)
	require.Equal(t, uint64(900), ledger.BalanceOf(meta, alice))

	res, err = v.Redeem(ledger, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(300), res.Payout)
	require.Equal(t, uint64(1_100), ledger.BalanceOf(meta, bob))

	require.Zero(t, ledger.BalanceOf(meta, v.Address()))
	_, err = v.Redeem(ledger, bob)
	require.ErrorIs(t, err, ErrNothingToRedeem)
}

func TestRedeemFailed(t *testing.T) {
	ledger, v := setup(t)
	require.NoError(t, v.Mint(ledger, alice, 300))
	require.NoError(t, ledger.Transfer(alice, v.FailMint(), alice, bob, 120))
	require.NoError(t, v.Settle(false))

	res, err := v.Redeem(ledger, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(180), res.Payout)

	// merging after settlement still needs both sides
	require.NoError(t, ledger.Transfer(bob, v.FailMint(), bob, alice, 20))
	require.ErrorIs(t, v.Merge(ledger, alice, 20), token.ErrInsufficientBalance)

	res, err = v.Redeem(ledger, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(100), res.Payout)
	require.NoError(t, v.Check(ledger))
}

func TestRecordRoundTrip(t *testing.T) {
	_, v := setup(t)
	require.NoError(t, v.Settle(false))
	rec := v.Record()
	require.Equal(t, rec, FromRecord(rec).Record())
	require.Equal(t, rec.Address, rec.Escrow)
}
