package model

import "github.com/ethereum/go-ethereum/common"

// Pool is the persisted form of a constant-product pool.
type Pool struct {
	Address            common.Address `json:"address"`
	BaseMint           common.Address `json:"base_mint"`
	QuoteMint          common.Address `json:"quote_mint"`
	BaseDecimals       uint8          `json:"base_decimals"`
	QuoteDecimals      uint8          `json:"quote_decimals"`
	BaseReserve        uint64         `json:"base_reserve"`
	QuoteReserve       uint64         `json:"quote_reserve"`
	TotalOwnership     uint64         `json:"total_ownership"`
	SwapFeeBps         uint64         `json:"swap_fee_bps"`
	PermissionedCaller common.Address `json:"permissioned_caller"`
	CreatedAt          uint64         `json:"created_at"`
	Ltwap              Ltwap          `json:"ltwap"`
	Positions          []Position     `json:"positions"`
}

// Ltwap is the oracle state of a pool. Aggregates are decimal strings.
type Ltwap struct {
	Decimals       uint8  `json:"decimals"`
	NumeratorAgg   string `json:"numerator_agg"`
	DenominatorAgg string `json:"denominator_agg"`
	LastUpdate     uint64 `json:"last_update"`
	WindowEnd      uint64 `json:"window_end"`
	Latest         uint64 `json:"latest"`
}

// Position is an owner's share of a pool.
type Position struct {
	Address   common.Address `json:"address"`
	Owner     common.Address `json:"owner"`
	Ownership uint64         `json:"ownership"`
}
