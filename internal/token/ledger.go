// Package token is an in-memory token ledger: mints, balances and supply.
package token

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"futarchy/internal/fixedpoint"
	"futarchy/internal/model"
)

type mint struct {
	decimals  uint8
	authority common.Address
	supply    uint64
	symbol    string
}

type holding struct {
	mint  common.Address
	owner common.Address
}

// Ledger tracks mints and balances. It is not safe for concurrent use; the
// engine serializes access.
type Ledger struct {
	mints    map[common.Address]*mint
	balances map[holding]uint64
}

func NewLedger() *Ledger {
	return &Ledger{
		mints:    make(map[common.Address]*mint),
		balances: make(map[holding]uint64),
	}
}

// CreateMint registers a new mint controlled by authority.
func (l *Ledger) CreateMint(address common.Address, decimals uint8, authority common.Address, symbol string) error {
	if _, ok := l.mints[address]; ok {
		return fmt.Errorf("create mint %s: %w", address.Hex(), ErrMintExists)
	}
	if _, err := fixedpoint.DecimalScale(decimals); err != nil {
		return fmt.Errorf("create mint %s: %w", address.Hex(), err)
	}
	l.mints[address] = &mint{decimals: decimals, authority: authority, symbol: symbol}
	return nil
}

func (l *Ledger) HasMint(address common.Address) bool {
	_, ok := l.mints[address]
	return ok
}

func (l *Ledger) Decimals(address common.Address) (uint8, error) {
	m, ok := l.mints[address]
	if !ok {
		return 0, fmt.Errorf("mint %s: %w", address.Hex(), ErrUnknownMint)
	}
	return m.decimals, nil
}

func (l *Ledger) Supply(address common.Address) (uint64, error) {
	m, ok := l.mints[address]
	if !ok {
		return 0, fmt.Errorf("mint %s: %w", address.Hex(), ErrUnknownMint)
	}
	return m.supply, nil
}

func (l *Ledger) BalanceOf(mintAddr, owner common.Address) uint64 {
	return l.balances[holding{mint: mintAddr, owner: owner}]
}

// MintTo creates amount new tokens for to. Only the mint authority may mint.
func (l *Ledger) MintTo(authority, mintAddr, to common.Address, amount uint64) error {
	m, ok := l.mints[mintAddr]
	if !ok {
		return fmt.Errorf("mint to: %w", ErrUnknownMint)
	}
	if m.authority != authority {
		return fmt.Errorf("mint to: %w", ErrMintAuthority)
	}
	supply, err := fixedpoint.Add(m.supply, amount)
	if err != nil {
		return fmt.Errorf("mint supply: %w", err)
	}
	key := holding{mint: mintAddr, owner: to}
	balance, err := fixedpoint.Add(l.balances[key], amount)
	if err != nil {
		return fmt.Errorf("mint balance: %w", err)
	}
	m.supply = supply
	l.set(key, balance)
	return nil
}

// Burn destroys amount of owner's tokens. The owner must sign.
func (l *Ledger) Burn(signer, mintAddr, owner common.Address, amount uint64) error {
	m, ok := l.mints[mintAddr]
	if !ok {
		return fmt.Errorf("burn: %w", ErrUnknownMint)
	}
	if signer != owner {
		return fmt.Errorf("burn: %w", ErrUnauthorized)
	}
	key := holding{mint: mintAddr, owner: owner}
	balance := l.balances[key]
	if balance < amount {
		return fmt.Errorf("burn %d of %d: %w", amount, balance, ErrInsufficientBalance)
	}
	supply, err := fixedpoint.Sub(m.supply, amount)
	if err != nil {
		return fmt.Errorf("burn supply: %w", err)
	}
	m.supply = supply
	l.set(key, balance-amount)
	return nil
}

// Transfer moves amount from one owner to another. The source owner must sign.
func (l *Ledger) Transfer(signer, mintAddr, from, to common.Address, amount uint64) error {
	if _, ok := l.mints[mintAddr]; !ok {
		return fmt.Errorf("transfer: %w", ErrUnknownMint)
	}
	if signer != from {
		return fmt.Errorf("transfer: %w", ErrUnauthorized)
	}
	if amount == 0 || from == to {
		if l.BalanceOf(mintAddr, from) < amount {
			return fmt.Errorf("transfer: %w", ErrInsufficientBalance)
		}
		return nil
	}
	src := holding{mint: mintAddr, owner: from}
	dst := holding{mint: mintAddr, owner: to}
	balance := l.balances[src]
	if balance < amount {
		return fmt.Errorf("transfer %d of %d: %w", amount, balance, ErrInsufficientBalance)
	}
	credited, err := fixedpoint.Add(l.balances[dst], amount)
	if err != nil {
		return fmt.Errorf("transfer credit: %w", err)
	}
	l.set(src, balance-amount)
	l.set(dst, credited)
	return nil
}

func (l *Ledger) set(key holding, amount uint64) {
	if amount == 0 {
		delete(l.balances, key)
		return
	}
	l.balances[key] = amount
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	out := &Ledger{
		mints:    make(map[common.Address]*mint, len(l.mints)),
		balances: make(map[holding]uint64, len(l.balances)),
	}
	for addr, m := range l.mints {
		cp := *m
		out.mints[addr] = &cp
	}
	for key, amount := range l.balances {
		out.balances[key] = amount
	}
	return out
}

// Mints exports all mints ordered by address.
func (l *Ledger) Mints() []model.Mint {
	out := make([]model.Mint, 0, len(l.mints))
	for addr, m := range l.mints {
		out = append(out, model.Mint{
			Address:   addr,
			Decimals:  m.decimals,
			Authority: m.authority,
			Supply:    m.supply,
			Symbol:    m.symbol,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address.Bytes(), out[j].Address.Bytes()) < 0
	})
	return out
}

// Balances exports all non-zero balances ordered by mint then owner.
func (l *Ledger) Balances() []model.Balance {
	out := make([]model.Balance, 0, len(l.balances))
	for key, amount := range l.balances {
		out = append(out, model.Balance{Mint: key.mint, Owner: key.owner, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Mint.Bytes(), out[j].Mint.Bytes()); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].Owner.Bytes(), out[j].Owner.Bytes()) < 0
	})
	return out
}

// Restore rebuilds a ledger from exported mints and balances.
func Restore(mints []model.Mint, balances []model.Balance) (*Ledger, error) {
	l := NewLedger()
	for _, m := range mints {
		if err := l.CreateMint(m.Address, m.Decimals, m.Authority, m.Symbol); err != nil {
			return nil, err
		}
		l.mints[m.Address].supply = m.Supply
	}
	for _, b := range balances {
		if !l.HasMint(b.Mint) {
			return nil, fmt.Errorf("restore balance: %w", ErrUnknownMint)
		}
		l.set(holding{mint: b.Mint, owner: b.Owner}, b.Amount)
	}
	return l, nil
}
