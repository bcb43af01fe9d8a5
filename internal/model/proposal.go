package model

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ProposalState is the resolution stage of a proposal.
type ProposalState uint8

const (
	ProposalInitialize ProposalState = iota
	ProposalPending
	ProposalPassed
	ProposalFailed
)

var proposalStateNames = map[ProposalState]string{
	ProposalInitialize: "initialize",
	ProposalPending:    "pending",
	ProposalPassed:     "passed",
	ProposalFailed:     "failed",
}

func (s ProposalState) String() string {
	if name, ok := proposalStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// Terminal reports whether no further transition is possible.
func (s ProposalState) Terminal() bool {
	return s == ProposalPassed || s == ProposalFailed
}

// MarshalJSON encodes the state by name.
func (s ProposalState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name.
func (s *ProposalState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for state, n := range proposalStateNames {
		if n == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown proposal state: %s", name)
}

// AccountMeta references an account used by an instruction.
type AccountMeta struct {
	Pubkey     common.Address `json:"pubkey"`
	IsSigner   bool           `json:"is_signer"`
	IsWritable bool           `json:"is_writable"`
}

// Instruction is an action executed on behalf of the treasury if a proposal passes.
type Instruction struct {
	ProgramID common.Address `json:"program_id"`
	Accounts  []AccountMeta  `json:"accounts"`
	Data      hexutil.Bytes  `json:"data"`
}

// Proposal is the persisted form of a proposal.
type Proposal struct {
	Number         uint64         `json:"number"`
	Address        common.Address `json:"address"`
	Proposer       common.Address `json:"proposer"`
	DescriptionURL string         `json:"description_url"`
	State          ProposalState  `json:"state"`
	SlotCreated    uint64         `json:"slot_created"`
	SlotEnqueued   uint64         `json:"slot_enqueued"`
	Duration       uint64         `json:"duration"`
	FinalizeWindow uint64         `json:"finalize_window"`
	PassPool       common.Address `json:"pass_pool"`
	FailPool       common.Address `json:"fail_pool"`
	BaseVault      common.Address `json:"base_vault"`
	QuoteVault     common.Address `json:"quote_vault"`
	PassBaseMint   common.Address `json:"pass_base_mint"`
	PassQuoteMint  common.Address `json:"pass_quote_mint"`
	FailBaseMint   common.Address `json:"fail_base_mint"`
	FailQuoteMint  common.Address `json:"fail_quote_mint"`
	BaseCommitted  uint64         `json:"base_committed"`
	QuoteCommitted uint64         `json:"quote_committed"`
	PassLtwap      uint64         `json:"pass_ltwap"`
	FailLtwap      uint64         `json:"fail_ltwap"`
	Instructions   []Instruction  `json:"instructions"`
}
