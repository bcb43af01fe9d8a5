package governance

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"futarchy/internal/auth"
	"futarchy/internal/fixedpoint"
	"futarchy/internal/keys"
	"futarchy/internal/model"
)

// Markets are the entities a proposal trades on, created alongside it.
type Markets struct {
	PassPool      common.Address
	FailPool      common.Address
	BaseVault     common.Address
	QuoteVault    common.Address
	PassBaseMint  common.Address
	PassQuoteMint common.Address
	FailBaseMint  common.Address
	FailQuoteMint common.Address
}

// Draft describes a proposal to be created.
type Draft struct {
	Number         uint64
	Proposer       common.Address
	DescriptionURL string
	BaseAmount     uint64
	QuoteAmount    uint64
	Markets        Markets
}

// Proposal moves strictly forward: Initialize, Pending, then Passed or
// Failed. Its state is only written by the methods below.
type Proposal struct {
	number         uint64
	address        common.Address
	proposer       common.Address
	descriptionURL string
	state          model.ProposalState
	slotCreated    uint64
	slotEnqueued   uint64
	duration       uint64
	finalizeWindow uint64
	markets        Markets
	baseCommitted  uint64
	quoteCommitted uint64
	passLtwap      uint64
	failLtwap      uint64
	instructions   []model.Instruction
}

// Create claims the next proposal number from dao and returns the proposal
// in Initialize state.
func Create(dao *DAO, now uint64, d Draft) (*Proposal, error) {
	if len(d.DescriptionURL) > MaxDescriptionLen {
		return nil, fmt.Errorf("%d chars: %w", len(d.DescriptionURL), ErrDescriptionTooLong)
	}
	params := dao.Params()
	if d.BaseAmount < params.MinBaseLiquidity || d.QuoteAmount < params.MinQuoteLiquidity {
		return nil, fmt.Errorf("base %d quote %d: %w", d.BaseAmount, d.QuoteAmount, ErrInsufficientUnderlying)
	}
	if err := dao.claimNumber(d.Number); err != nil {
		return nil, err
	}
	return &Proposal{
		number:         d.Number,
		address:        keys.Proposal(dao.Address(), d.Number),
		proposer:       d.Proposer,
		descriptionURL: d.DescriptionURL,
		state:          model.ProposalInitialize,
		slotCreated:    now,
		duration:       params.ProposalDurationSlots,
		finalizeWindow: params.FinalizeWindowSlots,
		markets:        d.Markets,
		baseCommitted:  d.BaseAmount,
		quoteCommitted: d.QuoteAmount,
	}, nil
}

// Address is derivable before creation from the DAO and number.
func Address(dao *DAO, number uint64) common.Address {
	return keys.Proposal(dao.Address(), number)
}

func (p *Proposal) Number() uint64             { return p.number }
func (p *Proposal) Address() common.Address    { return p.address }
func (p *Proposal) Proposer() common.Address   { return p.proposer }
func (p *Proposal) State() model.ProposalState { return p.state }
func (p *Proposal) Markets() Markets           { return p.markets }
func (p *Proposal) SlotEnqueued() uint64       { return p.slotEnqueued }

// WindowEnd is the first slot at which the proposal may be finalized.
func (p *Proposal) WindowEnd() uint64 {
	end, err := fixedpoint.Add(p.slotEnqueued, p.duration)
	if err != nil {
		return ^uint64(0)
	}
	return end
}

func (p *Proposal) expiry() uint64 {
	end, err := fixedpoint.Add(p.WindowEnd(), p.finalizeWindow)
	if err != nil {
		return ^uint64(0)
	}
	return end
}

// Instructions returns a copy of the instruction list.
func (p *Proposal) Instructions() []model.Instruction {
	out := make([]model.Instruction, len(p.instructions))
	copy(out, p.instructions)
	return out
}

// AddInstruction appends ix. Only the proposer may append, and only before
// submission.
func (p *Proposal) AddInstruction(c auth.Caller, ix model.Instruction) error {
	if c.Signer != p.proposer {
		return ErrUnauthorized
	}
	if p.state != model.ProposalInitialize {
		return ErrInstructionsFrozen
	}
	if ix.ProgramID == (common.Address{}) {
		return ErrInvalidInstruction
	}
	p.instructions = append(p.instructions, cloneInstruction(ix))
	return nil
}

// Submit moves the proposal to Pending, freezing its instructions and
// starting the trading window at now.
func (p *Proposal) Submit(c auth.Caller, dao *DAO, now uint64) error {
	if c.Signer != p.proposer {
		return ErrUnauthorized
	}
	if p.state != model.ProposalInitialize {
		return ErrProposalNotInitialized
	}
	if err := dao.activate(); err != nil {
		return err
	}
	p.state = model.ProposalPending
	p.slotEnqueued = now
	return nil
}

// MarketOpen reports whether trading and liquidity additions are accepted.
func (p *Proposal) MarketOpen(now uint64) error {
	if p.state != model.ProposalPending || now >= p.WindowEnd() {
		return ErrMarketClosed
	}
	return nil
}

// CheckLiquidityRemoval rejects the proposer pulling liquidity before the
// window closes.
func (p *Proposal) CheckLiquidityRemoval(owner common.Address, now uint64) error {
	if owner != p.proposer {
		return nil
	}
	switch p.state {
	case model.ProposalInitialize:
		return ErrProposerLiquidityLocked
	case model.ProposalPending:
		if now < p.WindowEnd() {
			return ErrProposerLiquidityLocked
		}
	}
	return nil
}

// CheckFinalizable reports whether Finalize may be attempted at now.
func (p *Proposal) CheckFinalizable(now uint64) error {
	switch p.state {
	case model.ProposalPassed, model.ProposalFailed:
		return ErrProposalAlreadyFinalized
	case model.ProposalInitialize:
		return ErrProposalNotPending
	}
	if now < p.WindowEnd() {
		return fmt.Errorf("now %d, window end %d: %w", now, p.WindowEnd(), ErrProposalTooYoung)
	}
	return nil
}

// Outcome is the result of a finalize.
type Outcome struct {
	State     model.ProposalState
	PassLtwap uint64
	FailLtwap uint64
	Threshold *uint256.Int
	Expired   bool
}

// Passed reports whether the proposal's instructions should run.
func (o Outcome) Passed() bool {
	return o.State == model.ProposalPassed
}

// Finalize settles the proposal from the two markets' final LTWAPs. A
// proposal finalized after its grace window fails regardless of prices.
func (p *Proposal) Finalize(dao *DAO, now, passLtwap, failLtwap uint64) (Outcome, error) {
	if err := p.CheckFinalizable(now); err != nil {
		return Outcome{}, err
	}
	if err := dao.deactivate(); err != nil {
		return Outcome{}, err
	}

	passed, threshold := Decide(passLtwap, failLtwap, dao.Params().PassThresholdBps)
	out := Outcome{
		State:     model.ProposalFailed,
		PassLtwap: passLtwap,
		FailLtwap: failLtwap,
		Threshold: threshold,
		Expired:   now >= p.expiry(),
	}
	if passed && !out.Expired {
		out.State = model.ProposalPassed
	}

	p.state = out.State
	p.passLtwap = passLtwap
	p.failLtwap = failLtwap
	return out, nil
}

// Decide reports whether pass beats fail by more than thresholdBps. The
// threshold is computed in 256 bits and never overflows.
func Decide(passLtwap, failLtwap, thresholdBps uint64) (bool, *uint256.Int) {
	threshold := fixedpoint.Product(failLtwap, fixedpoint.BPSScale)
	threshold.Add(threshold, fixedpoint.Product(failLtwap, thresholdBps))
	threshold.Div(threshold, uint256.NewInt(fixedpoint.BPSScale))
	return uint256.NewInt(passLtwap).Gt(threshold), threshold
}

func cloneInstruction(ix model.Instruction) model.Instruction {
	out := model.Instruction{ProgramID: ix.ProgramID}
	out.Accounts = append([]model.AccountMeta(nil), ix.Accounts...)
	out.Data = append([]byte(nil), ix.Data...)
	return out
}

func (p *Proposal) Clone() *Proposal {
	cp := *p
	cp.instructions = make([]model.Instruction, len(p.instructions))
	for i, ix := range p.instructions {
		cp.instructions[i] = cloneInstruction(ix)
	}
	return &cp
}

func (p *Proposal) Record() model.Proposal {
	return model.Proposal{
		Number:         p.number,
		Address:        p.address,
		Proposer:       p.proposer,
		DescriptionURL: p.descriptionURL,
		State:          p.state,
		SlotCreated:    p.slotCreated,
		SlotEnqueued:   p.slotEnqueued,
		Duration:       p.duration,
		FinalizeWindow: p.finalizeWindow,
		PassPool:       p.markets.PassPool,
		FailPool:       p.markets.FailPool,
		BaseVault:      p.markets.BaseVault,
		QuoteVault:     p.markets.QuoteVault,
		PassBaseMint:   p.markets.PassBaseMint,
		PassQuoteMint:  p.markets.PassQuoteMint,
		FailBaseMint:   p.markets.FailBaseMint,
		FailQuoteMint:  p.markets.FailQuoteMint,
		BaseCommitted:  p.baseCommitted,
		QuoteCommitted: p.quoteCommitted,
		PassLtwap:      p.passLtwap,
		FailLtwap:      p.failLtwap,
		Instructions:   p.Instructions(),
	}
}

func ProposalFromRecord(rec model.Proposal) *Proposal {
	p := &Proposal{
		number:         rec.Number,
		address:        rec.Address,
		proposer:       rec.Proposer,
		descriptionURL: rec.DescriptionURL,
		state:          rec.State,
		slotCreated:    rec.SlotCreated,
		slotEnqueued:   rec.SlotEnqueued,
		duration:       rec.Duration,
		finalizeWindow: rec.FinalizeWindow,
		markets: Markets{
			PassPool:      rec.PassPool,
			FailPool:      rec.FailPool,
			BaseVault:     rec.BaseVault,
			QuoteVault:    rec.QuoteVault,
			PassBaseMint:  rec.PassBaseMint,
			PassQuoteMint: rec.PassQuoteMint,
			FailBaseMint:  rec.FailBaseMint,
			FailQuoteMint: rec.FailQuoteMint,
		},
		baseCommitted:  rec.BaseCommitted,
		quoteCommitted: rec.QuoteCommitted,
		passLtwap:      rec.PassLtwap,
		failLtwap:      rec.FailLtwap,
	}
	for _, ix := range rec.Instructions {
		p.instructions = append(p.instructions, cloneInstruction(ix))
	}
	return p
}
