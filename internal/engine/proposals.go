package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"futarchy/internal/amm"
	"futarchy/internal/auth"
	"futarchy/internal/governance"
	"futarchy/internal/keys"
	"futarchy/internal/model"
	"futarchy/internal/vault"
)

// ProposalParams describes a proposal to create. BaseAmount and QuoteAmount
// are the underlying the proposer commits as initial liquidity to both
// conditional markets.
type ProposalParams struct {
	Number         uint64
	DescriptionURL string
	BaseAmount     uint64
	QuoteAmount    uint64
}

// markets derives every address a proposal creates.
func markets(dao *governance.DAO, number uint64) governance.Markets {
	prop := governance.Address(dao, number)
	baseVault := keys.Vault(prop, dao.BaseMint())
	quoteVault := keys.Vault(prop, dao.QuoteMint())
	m := governance.Markets{
		BaseVault:     baseVault,
		QuoteVault:    quoteVault,
		PassBaseMint:  keys.ConditionalMint(baseVault, keys.Pass),
		FailBaseMint:  keys.ConditionalMint(baseVault, keys.Fail),
		PassQuoteMint: keys.ConditionalMint(quoteVault, keys.Pass),
		FailQuoteMint: keys.ConditionalMint(quoteVault, keys.Fail),
	}
	fee := dao.Params().SwapFeeBps
	m.PassPool = keys.Pool(m.PassBaseMint, m.PassQuoteMint, fee, GovernanceAuthority)
	m.FailPool = keys.Pool(m.FailBaseMint, m.FailQuoteMint, fee, GovernanceAuthority)
	return m
}

// CreateProposal opens a proposal in Initialize state numbered
// params.Number, which must be the DAO's next number. The signer's
// underlying is split into conditional tokens and seeded into the pass and
// fail pools.
func (e *Engine) CreateProposal(c auth.Caller, params ProposalParams) (model.Proposal, error) {
	var rec model.Proposal
	err := e.exec("create_proposal", c, func(t *tx) error {
		prop, err := t.createProposal(c, params)
		if err != nil {
			return err
		}
		rec = prop.Record()
		return nil
	})
	return rec, err
}

func (t *tx) createProposal(c auth.Caller, params ProposalParams) (*governance.Proposal, error) {
	dao := t.st.dao
	m := markets(dao, params.Number)
	prop, err := governance.Create(dao, t.now, governance.Draft{
		Number:         params.Number,
		Proposer:       c.Signer,
		DescriptionURL: params.DescriptionURL,
		BaseAmount:     params.BaseAmount,
		QuoteAmount:    params.QuoteAmount,
		Markets:        m,
	})
	if err != nil {
		return nil, err
	}

	baseVault, err := t.openVault(prop, dao.BaseMint(), c.Signer, params.BaseAmount)
	if err != nil {
		return nil, fmt.Errorf("base vault: %w", err)
	}
	quoteVault, err := t.openVault(prop, dao.QuoteMint(), c.Signer, params.QuoteAmount)
	if err != nil {
		return nil, fmt.Errorf("quote vault: %w", err)
	}

	routed := c.Through(GovernanceAuthority)
	sides := []struct {
		side      keys.Side
		want      common.Address
		baseMint  common.Address
		quoteMint common.Address
	}{
		{keys.Pass, m.PassPool, baseVault.PassMint(), quoteVault.PassMint()},
		{keys.Fail, m.FailPool, baseVault.FailMint(), quoteVault.FailMint()},
	}
	for _, s := range sides {
		p, err := t.createPool(PoolParams{
			BaseMint:           s.baseMint,
			QuoteMint:          s.quoteMint,
			SwapFeeBps:         dao.Params().SwapFeeBps,
			PermissionedCaller: GovernanceAuthority,
		})
		if err != nil {
			return nil, fmt.Errorf("%s pool: %w", s.side, err)
		}
		if p.Address() != s.want {
			return nil, fmt.Errorf("%s pool address %s: %w", s.side, p.Address().Hex(), ErrBadAccounts)
		}
		if _, err := t.createPosition(routed, p.Address()); err != nil {
			return nil, fmt.Errorf("%s position: %w", s.side, err)
		}
		if _, err := t.addLiquidity(routed, p.Address(), params.BaseAmount, params.QuoteAmount); err != nil {
			return nil, fmt.Errorf("%s liquidity: %w", s.side, err)
		}
	}

	t.st.proposals[prop.Number()] = prop
	t.emit(model.EventProposalCreated, prop.Address(), model.ProposalEventData{
		Number:   prop.Number(),
		Proposer: prop.Proposer(),
		State:    prop.State(),
	}, nil)
	return prop, nil
}

func (t *tx) openVault(prop *governance.Proposal, underlying, holder common.Address, amount uint64) (*vault.Vault, error) {
	v, err := vault.Open(t.st.tokens, prop.Address(), underlying)
	if err != nil {
		return nil, err
	}
	if err := v.Mint(t.st.tokens, holder, amount); err != nil {
		return nil, err
	}
	t.st.vaults[v.Address()] = v
	return v, nil
}

// AddInstruction appends an instruction to an unsubmitted proposal.
func (e *Engine) AddInstruction(c auth.Caller, number uint64, ix model.Instruction) error {
	return e.exec("add_instruction", c, func(t *tx) error {
		prop, err := t.st.proposal(number)
		if err != nil {
			return err
		}
		if err := prop.AddInstruction(c, ix); err != nil {
			return err
		}
		t.emit(model.EventInstructionAdded, prop.Address(), model.InstructionEventData{
			Index:     len(prop.Instructions()) - 1,
			ProgramID: ix.ProgramID,
		}, nil)
		return nil
	})
}

// SubmitProposal opens trading. The proposer pays the anti-spam fee in the
// quote mint to the treasury and both oracles restart at the current slot.
func (e *Engine) SubmitProposal(c auth.Caller, number uint64) error {
	return e.exec("submit_proposal", c, func(t *tx) error {
		prop, err := t.st.proposal(number)
		if err != nil {
			return err
		}
		dao := t.st.dao
		fee := dao.ProposalFee()
		if err := prop.Submit(c, dao, t.now); err != nil {
			return err
		}
		if fee > 0 {
			if err := t.st.tokens.Transfer(c.Signer, dao.QuoteMint(), c.Signer, dao.Treasury(), fee); err != nil {
				return fmt.Errorf("proposal fee: %w", err)
			}
		}

		pass, fail, err := t.proposalPools(prop)
		if err != nil {
			return err
		}
		routed := c.Through(GovernanceAuthority)
		end := prop.WindowEnd()
		for _, p := range []*amm.Pool{pass, fail} {
			if err := p.StartLtwapClock(routed, t.now, end); err != nil {
				return err
			}
		}

		t.emit(model.EventProposalSubmitted, prop.Address(), model.ProposalEventData{
			Number:   prop.Number(),
			Proposer: prop.Proposer(),
			State:    prop.State(),
			FeePaid:  fee,
		}, nil)
		t.after = append(t.after, func() {
			t.metrics.Proposal(model.ProposalPending.String())
		})
		return nil
	})
}

// FinalizeProposal resolves a proposal whose trading window has closed.
// Anyone may call it. If the proposal passes its instructions run with the
// treasury as signer; a failing instruction rejects the whole finalize.
func (e *Engine) FinalizeProposal(c auth.Caller, number uint64) (governance.Outcome, error) {
	var out governance.Outcome
	err := e.exec("finalize_proposal", c, func(t *tx) error {
		var err error
		out, err = t.finalize(c, number)
		return err
	})
	return out, err
}

func (t *tx) finalize(c auth.Caller, number uint64) (governance.Outcome, error) {
	prop, err := t.st.proposal(number)
	if err != nil {
		return governance.Outcome{}, err
	}
	if err := prop.CheckFinalizable(t.now); err != nil {
		return governance.Outcome{}, err
	}
	pass, fail, err := t.proposalPools(prop)
	if err != nil {
		return governance.Outcome{}, err
	}

	routed := c.Through(GovernanceAuthority)
	before := []model.Ltwap{pass.LtwapState(), fail.LtwapState()}
	for _, p := range []*amm.Pool{pass, fail} {
		if err := p.UpdateLtwap(routed, t.now); err != nil {
			return governance.Outcome{}, err
		}
	}
	t.emitLtwap(pass, before[0])
	t.emitLtwap(fail, before[1])

	out, err := prop.Finalize(t.st.dao, t.now, pass.Ltwap(), fail.Ltwap())
	if err != nil {
		return governance.Outcome{}, err
	}
	m := prop.Markets()
	for _, addr := range []common.Address{m.BaseVault, m.QuoteVault} {
		v, err := t.st.vault(addr)
		if err != nil {
			return governance.Outcome{}, err
		}
		if err := v.Settle(out.Passed()); err != nil {
			return governance.Outcome{}, fmt.Errorf("settle %s: %w", addr.Hex(), err)
		}
	}
	if out.Passed() {
		if err := t.dispatch(prop); err != nil {
			return governance.Outcome{}, err
		}
	}

	t.emit(model.EventProposalFinalized, prop.Address(), model.ProposalEventData{
		Number:    prop.Number(),
		Proposer:  prop.Proposer(),
		State:     out.State,
		PassLtwap: out.PassLtwap,
		FailLtwap: out.FailLtwap,
		Threshold: out.Threshold.Dec(),
		Expired:   out.Expired,
	}, nil)
	t.observe(pass)
	t.observe(fail)
	state := out.State.String()
	t.after = append(t.after, func() {
		t.metrics.Proposal(state)
	})
	return out, nil
}

func (t *tx) proposalPools(prop *governance.Proposal) (pass, fail *amm.Pool, err error) {
	m := prop.Markets()
	if pass, err = t.st.pool(m.PassPool); err != nil {
		return nil, nil, err
	}
	if fail, err = t.st.pool(m.FailPool); err != nil {
		return nil, nil, err
	}
	return pass, fail, nil
}

func (t *tx) proposalPool(prop *governance.Proposal, side keys.Side) (*amm.Pool, error) {
	pass, fail, err := t.proposalPools(prop)
	if err != nil {
		return nil, err
	}
	if side == keys.Pass {
		return pass, nil
	}
	return fail, nil
}

// ProposalCreatePosition opens the signer's position on one of a
// proposal's markets.
func (e *Engine) ProposalCreatePosition(c auth.Caller, number uint64, side keys.Side) (common.Address, error) {
	var addr common.Address
	err := e.exec("proposal_create_position", c, func(t *tx) error {
		prop, err := t.st.proposal(number)
		if err != nil {
			return err
		}
		p, err := t.proposalPool(prop, side)
		if err != nil {
			return err
		}
		pos, err := t.createPosition(c.Through(GovernanceAuthority), p.Address())
		addr = pos.Address
		return err
	})
	return addr, err
}

// ProposalSwap trades on one of a proposal's markets while it is open.
func (e *Engine) ProposalSwap(c auth.Caller, number uint64, side keys.Side, quoteToBase bool, input, minOutput uint64) (amm.SwapResult, error) {
	var res amm.SwapResult
	err := e.exec("proposal_swap", c, func(t *tx) error {
		prop, err := t.st.proposal(number)
		if err != nil {
			return err
		}
		if err := prop.MarketOpen(t.now); err != nil {
			return err
		}
		p, err := t.proposalPool(prop, side)
		if err != nil {
			return err
		}
		res, err = t.swap(c.Through(GovernanceAuthority), p.Address(), quoteToBase, input, minOutput)
		return err
	})
	return res, err
}

// ProposalAddLiquidity deposits conditional tokens into an open market.
func (e *Engine) ProposalAddLiquidity(c auth.Caller, number uint64, side keys.Side, maxBase, maxQuote uint64) (amm.LiquidityResult, error) {
	var res amm.LiquidityResult
	err := e.exec("proposal_add_liquidity", c, func(t *tx) error {
		prop, err := t.st.proposal(number)
		if err != nil {
			return err
		}
		if err := prop.MarketOpen(t.now); err != nil {
			return err
		}
		p, err := t.proposalPool(prop, side)
		if err != nil {
			return err
		}
		res, err = t.addLiquidity(c.Through(GovernanceAuthority), p.Address(), maxBase, maxQuote)
		return err
	})
	return res, err
}

// ProposalRemoveLiquidity withdraws from a proposal market. The proposer's
// seed liquidity stays locked until the trading window closes.
func (e *Engine) ProposalRemoveLiquidity(c auth.Caller, number uint64, side keys.Side, ownershipBps uint64) (amm.LiquidityResult, error) {
	var res amm.LiquidityResult
	err := e.exec("proposal_remove_liquidity", c, func(t *tx) error {
		prop, err := t.st.proposal(number)
		if err != nil {
			return err
		}
		if err := prop.CheckLiquidityRemoval(c.Signer, t.now); err != nil {
			return err
		}
		p, err := t.proposalPool(prop, side)
		if err != nil {
			return err
		}
		res, err = t.removeLiquidity(c.Through(GovernanceAuthority), p.Address(), ownershipBps)
		return err
	})
	return res, err
}

// ProposalUpdateLtwap advances both of a proposal's oracles.
func (e *Engine) ProposalUpdateLtwap(c auth.Caller, number uint64) error {
	return e.exec("proposal_update_ltwap", c, func(t *tx) error {
		prop, err := t.st.proposal(number)
		if err != nil {
			return err
		}
		pass, fail, err := t.proposalPools(prop)
		if err != nil {
			return err
		}
		routed := c.Through(GovernanceAuthority)
		for _, p := range []*amm.Pool{pass, fail} {
			before := p.LtwapState()
			if err := p.UpdateLtwap(routed, t.now); err != nil {
				return err
			}
			t.emitLtwap(p, before)
			t.observe(p)
		}
		return nil
	})
}
