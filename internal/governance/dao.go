// Package governance implements the DAO account and the proposal resolution
// state machine.
package governance

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"futarchy/internal/auth"
	"futarchy/internal/fixedpoint"
	"futarchy/internal/keys"
	"futarchy/internal/model"
)

// MaxDescriptionLen bounds a proposal's description URL.
const MaxDescriptionLen = 50

// SlotsPerTenSeconds approximates ledger slot production.
const SlotsPerTenSeconds = 25

const slotsPerDay = 24 * 60 * 6 * SlotsPerTenSeconds

// Params are the tunable governance parameters.
type Params struct {
	PassThresholdBps      uint64
	ProposalDurationSlots uint64
	FinalizeWindowSlots   uint64
	MinBaseLiquidity      uint64
	MinQuoteLiquidity     uint64
	SwapFeeBps            uint64
	LtwapDecimals         uint8
	ProposalFeeBase       uint64
}

// DefaultParams returns a three-day market with a one-day finalize window.
func DefaultParams() Params {
	return Params{
		PassThresholdBps:      500,
		ProposalDurationSlots: 3 * slotsPerDay,
		FinalizeWindowSlots:   slotsPerDay,
		MinBaseLiquidity:      1,
		MinQuoteLiquidity:     1_000 * 1_000_000,
		SwapFeeBps:            300,
		LtwapDecimals:         9,
		ProposalFeeBase:       0,
	}
}

func (p Params) Validate() error {
	if p.ProposalDurationSlots == 0 {
		return fmt.Errorf("proposal duration: %w", ErrInvalidParams)
	}
	if p.MinBaseLiquidity == 0 || p.MinQuoteLiquidity == 0 {
		return fmt.Errorf("minimum liquidity: %w", ErrInvalidParams)
	}
	if p.SwapFeeBps == 0 || p.SwapFeeBps >= fixedpoint.BPSScale {
		return fmt.Errorf("swap fee: %w", ErrInvalidParams)
	}
	if _, err := fixedpoint.DecimalScale(p.LtwapDecimals); err != nil {
		return fmt.Errorf("ltwap decimals: %w", err)
	}
	return nil
}

// DAO owns the proposal sequence and the treasury identity.
type DAO struct {
	address         common.Address
	treasury        common.Address
	baseMint        common.Address
	quoteMint       common.Address
	proposalCount   uint64
	activeProposals uint64
	params          Params
}

// NewDAO creates a DAO whose first proposal will be numbered firstProposal.
func NewDAO(baseMint, quoteMint common.Address, firstProposal uint64, params Params) (*DAO, error) {
	if baseMint == quoteMint {
		return nil, fmt.Errorf("mints: %w", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	addr := keys.DAO(baseMint, quoteMint)
	return &DAO{
		address:       addr,
		treasury:      keys.Treasury(addr),
		baseMint:      baseMint,
		quoteMint:     quoteMint,
		proposalCount: firstProposal,
		params:        params,
	}, nil
}

func (d *DAO) Address() common.Address   { return d.address }
func (d *DAO) Treasury() common.Address  { return d.treasury }
func (d *DAO) BaseMint() common.Address  { return d.baseMint }
func (d *DAO) QuoteMint() common.Address { return d.quoteMint }
func (d *DAO) Params() Params            { return d.params }
func (d *DAO) ActiveProposals() uint64   { return d.activeProposals }

// NextProposalNumber is the number the next created proposal must carry.
func (d *DAO) NextProposalNumber() uint64 {
	return d.proposalCount
}

// ProposalFee is the anti-spam fee for submitting now: the base fee doubled
// for every active proposal.
func (d *DAO) ProposalFee() uint64 {
	return fixedpoint.ShlSaturating(d.params.ProposalFeeBase, d.activeProposals)
}

func (d *DAO) claimNumber(number uint64) error {
	if number != d.proposalCount {
		return fmt.Errorf("got %d, want %d: %w", number, d.proposalCount, ErrNonConsecutiveProposalNumber)
	}
	next, err := fixedpoint.Add(d.proposalCount, 1)
	if err != nil {
		return fmt.Errorf("proposal count: %w", err)
	}
	d.proposalCount = next
	return nil
}

func (d *DAO) activate() error {
	next, err := fixedpoint.Add(d.activeProposals, 1)
	if err != nil {
		return fmt.Errorf("active proposals: %w", err)
	}
	d.activeProposals = next
	return nil
}

func (d *DAO) deactivate() error {
	if d.activeProposals == 0 {
		return ErrNoActiveProposals
	}
	d.activeProposals--
	return nil
}

// Update replaces the parameters. Only the treasury may sign, which in
// practice means only a passed proposal can change them.
func (d *DAO) Update(c auth.Caller, params Params) error {
	if c.Signer != d.treasury {
		return ErrUnauthorized
	}
	if err := params.Validate(); err != nil {
		return err
	}
	d.params = params
	return nil
}

func (d *DAO) Clone() *DAO {
	cp := *d
	return &cp
}

func (d *DAO) Record() model.DAO {
	return model.DAO{
		Address:               d.address,
		Treasury:              d.treasury,
		BaseMint:              d.baseMint,
		QuoteMint:             d.quoteMint,
		ProposalCount:         d.proposalCount,
		ActiveProposals:       d.activeProposals,
		PassThresholdBps:      d.params.PassThresholdBps,
		ProposalDurationSlots: d.params.ProposalDurationSlots,
		FinalizeWindowSlots:   d.params.FinalizeWindowSlots,
		MinBaseLiquidity:      d.params.MinBaseLiquidity,
		MinQuoteLiquidity:     d.params.MinQuoteLiquidity,
		SwapFeeBps:            d.params.SwapFeeBps,
		LtwapDecimals:         d.params.LtwapDecimals,
		ProposalFeeBase:       d.params.ProposalFeeBase,
	}
}

func DAOFromRecord(rec model.DAO) (*DAO, error) {
	params := Params{
		PassThresholdBps:      rec.PassThresholdBps,
		ProposalDurationSlots: rec.ProposalDurationSlots,
		FinalizeWindowSlots:   rec.FinalizeWindowSlots,
		MinBaseLiquidity:      rec.MinBaseLiquidity,
		MinQuoteLiquidity:     rec.MinQuoteLiquidity,
		SwapFeeBps:            rec.SwapFeeBps,
		LtwapDecimals:         rec.LtwapDecimals,
		ProposalFeeBase:       rec.ProposalFeeBase,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &DAO{
		address:         rec.Address,
		treasury:        rec.Treasury,
		baseMint:        rec.BaseMint,
		quoteMint:       rec.QuoteMint,
		proposalCount:   rec.ProposalCount,
		activeProposals: rec.ActiveProposals,
		params:          params,
	}, nil
}
