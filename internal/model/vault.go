package model

import "github.com/ethereum/go-ethereum/common"

// VaultStatus tracks whether a conditional vault has settled.
type VaultStatus uint8

const (
	VaultActive VaultStatus = iota
	VaultFinalized
	VaultReverted
)

func (s VaultStatus) String() string {
	switch s {
	case VaultActive:
		return "active"
	case VaultFinalized:
		return "finalized"
	case VaultReverted:
		return "reverted"
	default:
		return "unknown"
	}
}

// Vault is the persisted form of a conditional vault.
type Vault struct {
	Address    common.Address `json:"address"`
	Proposal   common.Address `json:"proposal"`
	Underlying common.Address `json:"underlying"`
	Escrow     common.Address `json:"escrow"`
	PassMint   common.Address `json:"pass_mint"`
	FailMint   common.Address `json:"fail_mint"`
	Status     VaultStatus    `json:"status"`
}
