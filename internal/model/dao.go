package model

import "github.com/ethereum/go-ethereum/common"

// DAO holds governance parameters and the proposal sequence.
type DAO struct {
	Address               common.Address `json:"address"`
	Treasury              common.Address `json:"treasury"`
	BaseMint              common.Address `json:"base_mint"`
	QuoteMint             common.Address `json:"quote_mint"`
	ProposalCount         uint64         `json:"proposal_count"`
	ActiveProposals       uint64         `json:"active_proposals"`
	PassThresholdBps      uint64         `json:"pass_threshold_bps"`
	ProposalDurationSlots uint64         `json:"proposal_duration_slots"`
	FinalizeWindowSlots   uint64         `json:"finalize_window_slots"`
	MinBaseLiquidity      uint64         `json:"min_base_liquidity"`
	MinQuoteLiquidity     uint64         `json:"min_quote_liquidity"`
	SwapFeeBps            uint64         `json:"swap_fee_bps"`
	LtwapDecimals         uint8          `json:"ltwap_decimals"`
	ProposalFeeBase       uint64         `json:"proposal_fee_base"`
}

// Snapshot is a full ledger export.
type Snapshot struct {
	Slot      uint64     `json:"slot"`
	Seq       uint64     `json:"seq"`
	DAO       DAO        `json:"dao"`
	Mints     []Mint     `json:"mints"`
	Balances  []Balance  `json:"balances"`
	Pools     []Pool     `json:"pools"`
	Proposals []Proposal `json:"proposals"`
	Vaults    []Vault    `json:"vaults"`
}
