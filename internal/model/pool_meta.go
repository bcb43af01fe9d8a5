package model

import "github.com/ethereum/go-ethereum/common"

// PoolMeta captures immutable pool metadata carried on pool events.
type PoolMeta struct {
	BaseMint      common.Address `json:"base_mint"`
	QuoteMint     common.Address `json:"quote_mint"`
	BaseDecimals  uint8          `json:"base_decimals"`
	QuoteDecimals uint8          `json:"quote_decimals"`
	SwapFeeBps    uint64         `json:"swap_fee_bps"`
}
