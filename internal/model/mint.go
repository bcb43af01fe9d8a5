package model

import "github.com/ethereum/go-ethereum/common"

// Mint captures a token mint and its outstanding supply.
type Mint struct {
	Address   common.Address `json:"address"`
	Decimals  uint8          `json:"decimals"`
	Authority common.Address `json:"authority"`
	Supply    uint64         `json:"supply"`
	Symbol    string         `json:"symbol,omitempty"`
}

// Balance is a non-zero token holding.
type Balance struct {
	Mint   common.Address `json:"mint"`
	Owner  common.Address `json:"owner"`
	Amount uint64         `json:"amount"`
}
