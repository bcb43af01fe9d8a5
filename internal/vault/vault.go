// Package vault escrows underlying tokens against paired pass/fail
// conditional tokens.
package vault

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"futarchy/internal/keys"
	"futarchy/internal/model"
)

// Ledger is the token functionality a vault needs.
type Ledger interface {
	CreateMint(address common.Address, decimals uint8, authority common.Address, symbol string) error
	Decimals(mint common.Address) (uint8, error)
	Supply(mint common.Address) (uint64, error)
	BalanceOf(mint, owner common.Address) uint64
	MintTo(authority, mint, to common.Address, amount uint64) error
	Burn(signer, mint, owner common.Address, amount uint64) error
	Transfer(signer, mint, from, to common.Address, amount uint64) error
}

// Vault holds one underlying token for a proposal. The vault address is
// also the escrow identity that owns deposits and controls both
// conditional mints.
type Vault struct {
	address    common.Address
	proposal   common.Address
	underlying common.Address
	passMint   common.Address
	failMint   common.Address
	status     model.VaultStatus
}

// Open creates the vault for underlying and registers its conditional mints.
func Open(ledger Ledger, proposal, underlying common.Address) (*Vault, error) {
	decimals, err := ledger.Decimals(underlying)
	if err != nil {
		return nil, fmt.Errorf("underlying: %w", err)
	}
	addr := keys.Vault(proposal, underlying)
	v := &Vault{
		address:    addr,
		proposal:   proposal,
		underlying: underlying,
		passMint:   keys.ConditionalMint(addr, keys.Pass),
		failMint:   keys.ConditionalMint(addr, keys.Fail),
	}
	if err := ledger.CreateMint(v.passMint, decimals, addr, ""); err != nil {
		return nil, fmt.Errorf("pass mint: %w", err)
	}
	if err := ledger.CreateMint(v.failMint, decimals, addr, ""); err != nil {
		return nil, fmt.Errorf("fail mint: %w", err)
	}
	return v, nil
}

func (v *Vault) Address() common.Address    { return v.address }
func (v *Vault) Underlying() common.Address { return v.underlying }
func (v *Vault) PassMint() common.Address   { return v.passMint }
func (v *Vault) FailMint() common.Address   { return v.failMint }
func (v *Vault) Status() model.VaultStatus  { return v.status }

// Mint deposits amount of underlying from holder and mints amount of both
// conditional tokens to holder.
func (v *Vault) Mint(ledger Ledger, holder common.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if v.status != model.VaultActive {
		return ErrVaultSettled
	}
	if err := ledger.Transfer(holder, v.underlying, holder, v.address, amount); err != nil {
		return fmt.Errorf("deposit underlying: %w", err)
	}
	if err := ledger.MintTo(v.address, v.passMint, holder, amount); err != nil {
		return fmt.Errorf("mint pass: %w", err)
	}
	if err := ledger.MintTo(v.address, v.failMint, holder, amount); err != nil {
		return fmt.Errorf("mint fail: %w", err)
	}
	return v.Check(ledger)
}

// Merge burns amount of both conditional tokens and releases amount of
// underlying to holder. It is allowed in any status.
func (v *Vault) Merge(ledger Ledger, holder common.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if err := ledger.Burn(holder, v.passMint, holder, amount); err != nil {
		return fmt.Errorf("burn pass: %w", err)
	}
	if err := ledger.Burn(holder, v.failMint, holder, amount); err != nil {
		return fmt.Errorf("burn fail: %w", err)
	}
	if err := ledger.Transfer(v.address, v.underlying, v.address, holder, amount); err != nil {
		return fmt.Errorf("release underlying: %w", err)
	}
	return v.Check(ledger)
}

// Settle fixes the winning side. passed selects the pass mint.
func (v *Vault) Settle(passed bool) error {
	if v.status != model.VaultActive {
		return ErrVaultSettled
	}
	if passed {
		v.status = model.VaultFinalized
	} else {
		v.status = model.VaultReverted
	}
	return nil
}

// Redemption reports the result of a redeem.
type Redemption struct {
	PassBurned uint64
	FailBurned uint64
	Payout     uint64
}

// Redeem burns all of holder's conditional tokens and pays out underlying
// equal to the winning-side balance.
func (v *Vault) Redeem(ledger Ledger, holder common.Address) (Redemption, error) {
	if v.status == model.VaultActive {
		return Redemption{}, ErrVaultActive
	}
	res := Redemption{
		PassBurned: ledger.BalanceOf(v.passMint, holder),
		FailBurned: ledger.BalanceOf(v.failMint, holder),
	}
	if res.PassBurned == 0 && res.FailBurned == 0 {
		return Redemption{}, ErrNothingToRedeem
	}
	res.Payout = res.FailBurned
	if v.status == model.VaultFinalized {
		res.Payout = res.PassBurned
	}

	escrowBefore := ledger.BalanceOf(v.underlying, v.address)
	if err := ledger.Burn(holder, v.passMint, holder, res.PassBurned); err != nil {
		return Redemption{}, fmt.Errorf("burn pass: %w", err)
	}
	if err := ledger.Burn(holder, v.failMint, holder, res.FailBurned); err != nil {
		return Redemption{}, fmt.Errorf("burn fail: %w", err)
	}
	if err := ledger.Transfer(v.address, v.underlying, v.address, holder, res.Payout); err != nil {
		return Redemption{}, fmt.Errorf("release underlying: %w", err)
	}

	if ledger.BalanceOf(v.passMint, holder) != 0 || ledger.BalanceOf(v.failMint, holder) != 0 {
		return Redemption{}, ErrEscrowMismatch
	}
	if escrowBefore-ledger.BalanceOf(v.underlying, v.address) != res.Payout {
		return Redemption{}, ErrEscrowMismatch
	}
	return res, v.Check(ledger)
}

func (v *Vault) winningMint() common.Address {
	if v.status == model.VaultReverted {
		return v.failMint
	}
	return v.passMint
}

// Check verifies escrow backing. While active the escrow must equal both
// conditional supplies; once settled it must equal the winning supply.
func (v *Vault) Check(ledger Ledger) error {
	escrow := ledger.BalanceOf(v.underlying, v.address)
	mints := []common.Address{v.passMint, v.failMint}
	if v.status != model.VaultActive {
		mints = []common.Address{v.winningMint()}
	}
	for _, m := range mints {
		supply, err := ledger.Supply(m)
		if err != nil {
			return err
		}
		if supply != escrow {
			return fmt.Errorf("escrow %d, supply %d: %w", escrow, supply, ErrEscrowMismatch)
		}
	}
	return nil
}

func (v *Vault) Clone() *Vault {
	cp := *v
	return &cp
}

func (v *Vault) Record() model.Vault {
	return model.Vault{
		Address:    v.address,
		Proposal:   v.proposal,
		Underlying: v.underlying,
		Escrow:     v.address,
		PassMint:   v.passMint,
		FailMint:   v.failMint,
		Status:     v.status,
	}
}

func FromRecord(rec model.Vault) *Vault {
	return &Vault{
		address:    rec.Address,
		proposal:   rec.Proposal,
		underlying: rec.Underlying,
		passMint:   rec.PassMint,
		failMint:   rec.FailMint,
		status:     rec.Status,
	}
}
