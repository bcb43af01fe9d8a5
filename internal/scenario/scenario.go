// Package scenario replays a YAML script of ledger operations against the
// engine, one slot-stamped step at a time.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a named list of steps plus account aliases.
type Scenario struct {
	Name     string            `yaml:"name"`
	Accounts map[string]string `yaml:"accounts"`
	Steps    []Step            `yaml:"steps"`
}

// Step is one operation. Which fields apply depends on Op. A non-zero Slot
// advances the clock before the op runs. Expect names the failure class the
// step must be rejected with, or ExpectAnyError.
type Step struct {
	Op     string `yaml:"op"`
	Slot   uint64 `yaml:"slot"`
	Signer string `yaml:"signer"`
	As     string `yaml:"as"`
	Expect string `yaml:"expect"`

	Address  string `yaml:"address"`
	Mint     string `yaml:"mint"`
	To       string `yaml:"to"`
	Amount   uint64 `yaml:"amount"`
	Decimals uint8  `yaml:"decimals"`
	Symbol   string `yaml:"symbol"`

	Pool         string `yaml:"pool"`
	BaseMint     string `yaml:"base_mint"`
	QuoteMint    string `yaml:"quote_mint"`
	FeeBps       uint64 `yaml:"fee_bps"`
	Permissioned string `yaml:"permissioned"`

	QuoteToBase bool   `yaml:"quote_to_base"`
	Input       uint64 `yaml:"input"`
	MinOutput   uint64 `yaml:"min_output"`
	MaxBase     uint64 `yaml:"max_base"`
	MaxQuote    uint64 `yaml:"max_quote"`
	Bps         uint64 `yaml:"bps"`

	Proposal    uint64           `yaml:"proposal"`
	Side        string           `yaml:"side"`
	Description string           `yaml:"description"`
	BaseAmount  uint64           `yaml:"base_amount"`
	QuoteAmount uint64           `yaml:"quote_amount"`
	Instruction *InstructionSpec `yaml:"instruction"`
}

// InstructionSpec describes a proposal instruction.
type InstructionSpec struct {
	Kind   string      `yaml:"kind"`
	Mint   string      `yaml:"mint"`
	To     string      `yaml:"to"`
	Amount uint64      `yaml:"amount"`
	Params *ParamsSpec `yaml:"params"`
}

// ParamsSpec overrides governance parameters. Unset fields keep their
// current value.
type ParamsSpec struct {
	PassThresholdBps      *uint64 `yaml:"pass_threshold_bps"`
	ProposalDurationSlots *uint64 `yaml:"proposal_duration_slots"`
	FinalizeWindowSlots   *uint64 `yaml:"finalize_window_slots"`
	MinBaseLiquidity      *uint64 `yaml:"min_base_liquidity"`
	MinQuoteLiquidity     *uint64 `yaml:"min_quote_liquidity"`
	SwapFeeBps            *uint64 `yaml:"swap_fee_bps"`
	LtwapDecimals         *uint8  `yaml:"ltwap_decimals"`
	ProposalFeeBase       *uint64 `yaml:"proposal_fee_base"`
}

// Load reads a scenario file.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scenario and checks that slots never decrease.
func Parse(data []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	var last uint64
	for i, step := range sc.Steps {
		if step.Op == "" {
			return Scenario{}, fmt.Errorf("step %d: op is required", i)
		}
		if _, ok := operations[step.Op]; !ok {
			return Scenario{}, fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
		if step.Slot != 0 && step.Slot < last {
			return Scenario{}, fmt.Errorf("step %d: slot %d before %d", i, step.Slot, last)
		}
		if step.Slot > last {
			last = step.Slot
		}
	}
	return sc, nil
}
