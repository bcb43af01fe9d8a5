package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"futarchy/internal/auth"
	"futarchy/internal/engine"
	"futarchy/internal/governance"
	"futarchy/internal/keys"
	"futarchy/internal/model"
)

var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrBadStep        = errors.New("malformed step")
)

// opFunc runs one step. A non-zero address is bound to the step's alias.
type opFunc func(r *Runner, s Step) (common.Address, error)

var operations = map[string]opFunc{
	"create_mint":               opCreateMint,
	"mint_to":                   opMintTo,
	"transfer":                  opTransfer,
	"create_pool":               opCreatePool,
	"create_position":           opCreatePosition,
	"swap":                      opSwap,
	"add_liquidity":             opAddLiquidity,
	"remove_liquidity":          opRemoveLiquidity,
	"update_ltwap":              opUpdateLtwap,
	"create_proposal":           opCreateProposal,
	"add_instruction":           opAddInstruction,
	"submit_proposal":           opSubmitProposal,
	"finalize_proposal":         opFinalizeProposal,
	"mint_conditional":          opMintConditional,
	"merge_conditional":         opMergeConditional,
	"redeem_conditional":        opRedeemConditional,
	"proposal_create_position":  opProposalCreatePosition,
	"proposal_swap":             opProposalSwap,
	"proposal_add_liquidity":    opProposalAddLiquidity,
	"proposal_remove_liquidity": opProposalRemoveLiquidity,
	"proposal_update_ltwap":     opProposalUpdateLtwap,
	"check_invariants":          opCheckInvariants,
}

func (r *Runner) addr(name string) (common.Address, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return common.Address{}, fmt.Errorf("empty account: %w", ErrBadStep)
	}
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	if a, ok := r.aliases[name]; ok {
		return a, nil
	}
	dao := r.engine.DAO()
	switch name {
	case "treasury":
		return dao.Treasury, nil
	case "dao":
		return dao.Address, nil
	case "base":
		return dao.BaseMint, nil
	case "quote":
		return dao.QuoteMint, nil
	}
	return common.Address{}, fmt.Errorf("%q: %w", name, ErrUnknownAccount)
}

func (r *Runner) caller(s Step) (auth.Caller, error) {
	signer, err := r.addr(s.Signer)
	if err != nil {
		return auth.Caller{}, fmt.Errorf("signer: %w", err)
	}
	return auth.Direct(signer), nil
}

func side(name string) (keys.Side, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pass":
		return keys.Pass, nil
	case "fail":
		return keys.Fail, nil
	}
	return 0, fmt.Errorf("side %q: %w", name, ErrBadStep)
}

func opCreateMint(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	mint, err := r.addr(s.Address)
	if err != nil {
		return common.Address{}, err
	}
	spec := engine.MintSpec{Address: mint, Decimals: s.Decimals, Symbol: s.Symbol}
	if err := r.engine.CreateMint(c, spec); err != nil {
		return common.Address{}, err
	}
	return mint, nil
}

func opMintTo(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	mint, err := r.addr(s.Mint)
	if err != nil {
		return common.Address{}, err
	}
	to, err := r.addr(s.To)
	if err != nil {
		return common.Address{}, err
	}
	return common.Address{}, r.engine.MintTo(c, mint, to, s.Amount)
}

func opTransfer(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	mint, err := r.addr(s.Mint)
	if err != nil {
		return common.Address{}, err
	}
	to, err := r.addr(s.To)
	if err != nil {
		return common.Address{}, err
	}
	return common.Address{}, r.engine.Transfer(c, mint, to, s.Amount)
}

func opCreatePool(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	base, err := r.addr(s.BaseMint)
	if err != nil {
		return common.Address{}, err
	}
	quote, err := r.addr(s.QuoteMint)
	if err != nil {
		return common.Address{}, err
	}
	params := engine.PoolParams{BaseMint: base, QuoteMint: quote, SwapFeeBps: s.FeeBps}
	if s.Permissioned != "" {
		if params.PermissionedCaller, err = r.addr(s.Permissioned); err != nil {
			return common.Address{}, err
		}
	}
	return r.engine.CreatePool(c, params)
}

func (r *Runner) poolStep(s Step) (auth.Caller, common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return auth.Caller{}, common.Address{}, err
	}
	pool, err := r.addr(s.Pool)
	if err != nil {
		return auth.Caller{}, common.Address{}, fmt.Errorf("pool: %w", err)
	}
	return c, pool, nil
}

func opCreatePosition(r *Runner, s Step) (common.Address, error) {
	c, pool, err := r.poolStep(s)
	if err != nil {
		return common.Address{}, err
	}
	return r.engine.CreatePosition(c, pool)
}

func opSwap(r *Runner, s Step) (common.Address, error) {
	c, pool, err := r.poolStep(s)
	if err != nil {
		return common.Address{}, err
	}
	_, err = r.engine.Swap(c, pool, s.QuoteToBase, s.Input, s.MinOutput)
	return common.Address{}, err
}

func opAddLiquidity(r *Runner, s Step) (common.Address, error) {
	c, pool, err := r.poolStep(s)
	if err != nil {
		return common.Address{}, err
	}
	_, err = r.engine.AddLiquidity(c, pool, s.MaxBase, s.MaxQuote)
	return common.Address{}, err
}

func opRemoveLiquidity(r *Runner, s Step) (common.Address, error) {
	c, pool, err := r.poolStep(s)
	if err != nil {
		return common.Address{}, err
	}
	_, err = r.engine.RemoveLiquidity(c, pool, s.Bps)
	return common.Address{}, err
}

func opUpdateLtwap(r *Runner, s Step) (common.Address, error) {
	c, pool, err := r.poolStep(s)
	if err != nil {
		return common.Address{}, err
	}
	_, err = r.engine.UpdateLtwap(c, pool)
	return common.Address{}, err
}

func opCreateProposal(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	prop, err := r.engine.CreateProposal(c, engine.ProposalParams{
		Number:         s.Proposal,
		DescriptionURL: s.Description,
		BaseAmount:     s.BaseAmount,
		QuoteAmount:    s.QuoteAmount,
	})
	if err != nil {
		return common.Address{}, err
	}
	return prop.Address, nil
}

func opAddInstruction(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	ix, err := r.instruction(s.Instruction)
	if err != nil {
		return common.Address{}, err
	}
	return common.Address{}, r.engine.AddInstruction(c, s.Proposal, ix)
}

func (r *Runner) instruction(spec *InstructionSpec) (model.Instruction, error) {
	if spec == nil {
		return model.Instruction{}, fmt.Errorf("instruction is required: %w", ErrBadStep)
	}
	dao := r.engine.DAO()
	switch spec.Kind {
	case "transfer":
		mint := dao.QuoteMint
		if spec.Mint != "" {
			var err error
			if mint, err = r.addr(spec.Mint); err != nil {
				return model.Instruction{}, err
			}
		}
		to, err := r.addr(spec.To)
		if err != nil {
			return model.Instruction{}, err
		}
		return engine.TransferInstruction(mint, dao.Treasury, to, spec.Amount)
	case "update_dao":
		if spec.Params == nil {
			return model.Instruction{}, fmt.Errorf("update_dao needs params: %w", ErrBadStep)
		}
		return engine.UpdateDAOInstruction(dao.Treasury, spec.Params.apply(daoParams(dao)))
	}
	return model.Instruction{}, fmt.Errorf("instruction kind %q: %w", spec.Kind, ErrBadStep)
}

func daoParams(dao model.DAO) governance.Params {
	return governance.Params{
		PassThresholdBps:      dao.PassThresholdBps,
		ProposalDurationSlots: dao.ProposalDurationSlots,
		FinalizeWindowSlots:   dao.FinalizeWindowSlots,
		MinBaseLiquidity:      dao.MinBaseLiquidity,
		MinQuoteLiquidity:     dao.MinQuoteLiquidity,
		SwapFeeBps:            dao.SwapFeeBps,
		LtwapDecimals:         dao.LtwapDecimals,
		ProposalFeeBase:       dao.ProposalFeeBase,
	}
}

func (p *ParamsSpec) apply(params governance.Params) governance.Params {
	set := func(dst *uint64, v *uint64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&params.PassThresholdBps, p.PassThresholdBps)
	set(&params.ProposalDurationSlots, p.ProposalDurationSlots)
	set(&params.FinalizeWindowSlots, p.FinalizeWindowSlots)
	set(&params.MinBaseLiquidity, p.MinBaseLiquidity)
	set(&params.MinQuoteLiquidity, p.MinQuoteLiquidity)
	set(&params.SwapFeeBps, p.SwapFeeBps)
	set(&params.ProposalFeeBase, p.ProposalFeeBase)
	if p.LtwapDecimals != nil {
		params.LtwapDecimals = *p.LtwapDecimals
	}
	return params
}

func opSubmitProposal(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	return common.Address{}, r.engine.SubmitProposal(c, s.Proposal)
}

func opFinalizeProposal(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	_, err = r.engine.FinalizeProposal(c, s.Proposal)
	return common.Address{}, err
}

func opMintConditional(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	return common.Address{}, r.engine.MintConditional(c, s.Proposal, s.BaseAmount, s.QuoteAmount)
}

func opMergeConditional(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	return common.Address{}, r.engine.MergeConditional(c, s.Proposal, s.BaseAmount, s.QuoteAmount)
}

func opRedeemConditional(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	_, err = r.engine.RedeemConditional(c, s.Proposal)
	return common.Address{}, err
}

func (r *Runner) marketStep(s Step) (auth.Caller, keys.Side, error) {
	c, err := r.caller(s)
	if err != nil {
		return auth.Caller{}, 0, err
	}
	sd, err := side(s.Side)
	if err != nil {
		return auth.Caller{}, 0, err
	}
	return c, sd, nil
}

func opProposalCreatePosition(r *Runner, s Step) (common.Address, error) {
	c, sd, err := r.marketStep(s)
	if err != nil {
		return common.Address{}, err
	}
	return r.engine.ProposalCreatePosition(c, s.Proposal, sd)
}

func opProposalSwap(r *Runner, s Step) (common.Address, error) {
	c, sd, err := r.marketStep(s)
	if err != nil {
		return common.Address{}, err
	}
	_, err = r.engine.ProposalSwap(c, s.Proposal, sd, s.QuoteToBase, s.Input, s.MinOutput)
	return common.Address{}, err
}

func opProposalAddLiquidity(r *Runner, s Step) (common.Address, error) {
	c, sd, err := r.marketStep(s)
	if err != nil {
		return common.Address{}, err
	}
	_, err = r.engine.ProposalAddLiquidity(c, s.Proposal, sd, s.MaxBase, s.MaxQuote)
	return common.Address{}, err
}

func opProposalRemoveLiquidity(r *Runner, s Step) (common.Address, error) {
	c, sd, err := r.marketStep(s)
	if err != nil {
		return common.Address{}, err
	}
	_, err = r.engine.ProposalRemoveLiquidity(c, s.Proposal, sd, s.Bps)
	return common.Address{}, err
}

func opProposalUpdateLtwap(r *Runner, s Step) (common.Address, error) {
	c, err := r.caller(s)
	if err != nil {
		return common.Address{}, err
	}
	return common.Address{}, r.engine.ProposalUpdateLtwap(c, s.Proposal)
}

func opCheckInvariants(r *Runner, _ Step) (common.Address, error) {
	return common.Address{}, r.engine.CheckInvariants()
}
