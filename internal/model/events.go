package model

import "github.com/ethereum/go-ethereum/common"

// Event names written to the journal.
const (
	EventPoolCreated         = "pool_created"
	EventPositionCreated     = "position_created"
	EventSwap                = "swap"
	EventAddLiquidity        = "add_liquidity"
	EventRemoveLiquidity     = "remove_liquidity"
	EventLtwapUpdate         = "ltwap_update"
	EventProposalCreated     = "proposal_created"
	EventInstructionAdded    = "instruction_added"
	EventProposalSubmitted   = "proposal_submitted"
	EventProposalFinalized   = "proposal_finalized"
	EventConditionalMinted   = "conditional_minted"
	EventConditionalMerged   = "conditional_merged"
	EventConditionalRedeemed = "conditional_redeemed"
	EventInstructionExecuted = "instruction_executed"
	EventDAOUpdated          = "dao_updated"
	EventMintCreated         = "mint_created"
	EventMinted              = "minted"
	EventTransferred         = "transferred"
)

// MintEventData describes a newly registered mint.
type MintEventData struct {
	Authority common.Address `json:"authority"`
	Decimals  uint8          `json:"decimals"`
	Symbol    string         `json:"symbol,omitempty"`
}

// TokenEventData describes an issuance or transfer of mint tokens.
type TokenEventData struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

// SwapEventData is the payload of a swap.
type SwapEventData struct {
	Trader       common.Address `json:"trader"`
	QuoteToBase  bool           `json:"quote_to_base"`
	InputAmount  uint64         `json:"input_amount"`
	OutputAmount uint64         `json:"output_amount"`
	FeeAmount    uint64         `json:"fee_amount"`
	BaseReserve  uint64         `json:"base_reserve"`
	QuoteReserve uint64         `json:"quote_reserve"`
}

// LiquidityEventData is the payload of an add or remove liquidity.
type LiquidityEventData struct {
	Owner          common.Address `json:"owner"`
	BaseAmount     uint64         `json:"base_amount"`
	QuoteAmount    uint64         `json:"quote_amount"`
	Ownership      uint64         `json:"ownership"`
	TotalOwnership uint64         `json:"total_ownership"`
	BaseReserve    uint64         `json:"base_reserve"`
	QuoteReserve   uint64         `json:"quote_reserve"`
}

// LtwapEventData is emitted whenever a pool's oracle advances.
type LtwapEventData struct {
	Latest         uint64 `json:"latest"`
	NumeratorAgg   string `json:"numerator_agg"`
	DenominatorAgg string `json:"denominator_agg"`
	LastUpdate     uint64 `json:"last_update"`
}

// ProposalEventData describes a proposal lifecycle step.
type ProposalEventData struct {
	Number    uint64         `json:"number"`
	Proposer  common.Address `json:"proposer"`
	State     ProposalState  `json:"state"`
	PassLtwap uint64         `json:"pass_ltwap,omitempty"`
	FailLtwap uint64         `json:"fail_ltwap,omitempty"`
	Threshold string         `json:"threshold,omitempty"`
	FeePaid   uint64         `json:"fee_paid,omitempty"`
	Expired   bool           `json:"expired,omitempty"`
}

// ConditionalEventData describes a conditional mint, merge or redeem.
type ConditionalEventData struct {
	Holder      common.Address `json:"holder"`
	BaseAmount  uint64         `json:"base_amount"`
	QuoteAmount uint64         `json:"quote_amount"`
}

// InstructionEventData describes a dispatched proposal instruction.
type InstructionEventData struct {
	Index     int            `json:"index"`
	ProgramID common.Address `json:"program_id"`
}
