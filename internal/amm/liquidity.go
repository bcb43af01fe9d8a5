package amm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"futarchy/internal/auth"
	"futarchy/internal/fixedpoint"
)

// LiquidityResult reports token amounts moved and ownership changed.
type LiquidityResult struct {
	BaseAmount     uint64
	QuoteAmount    uint64
	Ownership      uint64
	TotalOwnership uint64
	BaseReserve    uint64
	QuoteReserve   uint64
}

// AddLiquidity deposits at most maxBase and maxQuote at the current ratio and
// credits owner's position with proportional ownership. The first deposit
// sets the ratio.
func (p *Pool) AddLiquidity(c auth.Caller, now uint64, owner common.Address, maxBase, maxQuote uint64) (LiquidityResult, error) {
	if err := p.authorize(c); err != nil {
		return LiquidityResult{}, err
	}
	if maxBase == 0 || maxQuote == 0 {
		return LiquidityResult{}, ErrZeroLiquidity
	}
	pos, ok := p.positions[owner]
	if !ok {
		return LiquidityResult{}, fmt.Errorf("owner %s: %w", owner.Hex(), ErrPositionNotFound)
	}

	nextOracle, err := p.accrue(now)
	if err != nil {
		return LiquidityResult{}, err
	}

	var baseAmount, quoteAmount, minted uint64
	if p.totalOwnership == 0 {
		baseAmount, quoteAmount = maxBase, maxQuote
		minted = max(maxBase, maxQuote)
	} else {
		baseAmount, quoteAmount, err = p.depositAmounts(maxBase, maxQuote)
		if err != nil {
			return LiquidityResult{}, err
		}
		minted, err = fixedpoint.MulDiv(baseAmount, p.totalOwnership, p.baseReserve)
		if err != nil {
			return LiquidityResult{}, fmt.Errorf("ownership: %w", err)
		}
	}
	if minted == 0 || baseAmount == 0 || quoteAmount == 0 {
		return LiquidityResult{}, ErrInsufficientLiquidityMinted
	}

	newBase, err := fixedpoint.Add(p.baseReserve, baseAmount)
	if err != nil {
		return LiquidityResult{}, fmt.Errorf("base reserve: %w", err)
	}
	newQuote, err := fixedpoint.Add(p.quoteReserve, quoteAmount)
	if err != nil {
		return LiquidityResult{}, fmt.Errorf("quote reserve: %w", err)
	}
	newTotal, err := fixedpoint.Add(p.totalOwnership, minted)
	if err != nil {
		return LiquidityResult{}, fmt.Errorf("total ownership: %w", err)
	}
	newOwnership, err := fixedpoint.Add(pos.ownership, minted)
	if err != nil {
		return LiquidityResult{}, fmt.Errorf("position ownership: %w", err)
	}

	p.oracle = nextOracle
	p.baseReserve, p.quoteReserve = newBase, newQuote
	p.totalOwnership = newTotal
	pos.ownership = newOwnership

	return LiquidityResult{
		BaseAmount:     baseAmount,
		QuoteAmount:    quoteAmount,
		Ownership:      minted,
		TotalOwnership: newTotal,
		BaseReserve:    newBase,
		QuoteReserve:   newQuote,
	}, nil
}

func (p *Pool) depositAmounts(maxBase, maxQuote uint64) (uint64, uint64, error) {
	quote, err := fixedpoint.MulDiv(maxBase, p.quoteReserve, p.baseReserve)
	if err != nil {
		return 0, 0, fmt.Errorf("quote for base: %w", err)
	}
	if quote <= maxQuote {
		return maxBase, quote, nil
	}
	base, err := fixedpoint.MulDiv(maxQuote, p.baseReserve, p.quoteReserve)
	if err != nil {
		return 0, 0, fmt.Errorf("base for quote: %w", err)
	}
	if base > maxBase {
		return 0, 0, ErrAddLiquidityCalculation
	}
	return base, maxQuote, nil
}

// RemoveLiquidity burns ownershipBps/10000 of owner's position and returns
// the proportional share of both reserves.
func (p *Pool) RemoveLiquidity(c auth.Caller, now uint64, owner common.Address, ownershipBps uint64) (LiquidityResult, error) {
	if err := p.authorize(c); err != nil {
		return LiquidityResult{}, err
	}
	if ownershipBps == 0 || ownershipBps > fixedpoint.BPSScale {
		return LiquidityResult{}, fmt.Errorf("bps %d: %w", ownershipBps, ErrInvalidBps)
	}
	pos, ok := p.positions[owner]
	if !ok {
		return LiquidityResult{}, fmt.Errorf("owner %s: %w", owner.Hex(), ErrPositionNotFound)
	}
	if pos.ownership == 0 {
		return LiquidityResult{}, ErrNoOwnership
	}

	nextOracle, err := p.accrue(now)
	if err != nil {
		return LiquidityResult{}, err
	}

	burned := pos.ownership
	if ownershipBps < fixedpoint.BPSScale {
		burned, err = fixedpoint.OfBps(pos.ownership, ownershipBps)
		if err != nil {
			return LiquidityResult{}, fmt.Errorf("burned ownership: %w", err)
		}
	}
	if burned == 0 {
		return LiquidityResult{}, ErrInsufficientLiquidityBurned
	}

	baseAmount, err := fixedpoint.MulDiv(p.baseReserve, burned, p.totalOwnership)
	if err != nil {
		return LiquidityResult{}, fmt.Errorf("base share: %w", err)
	}
	quoteAmount, err := fixedpoint.MulDiv(p.quoteReserve, burned, p.totalOwnership)
	if err != nil {
		return LiquidityResult{}, fmt.Errorf("quote share: %w", err)
	}

	p.oracle = nextOracle
	p.baseReserve -= baseAmount
	p.quoteReserve -= quoteAmount
	p.totalOwnership -= burned
	pos.ownership -= burned

	return LiquidityResult{
		BaseAmount:     baseAmount,
		QuoteAmount:    quoteAmount,
		Ownership:      burned,
		TotalOwnership: p.totalOwnership,
		BaseReserve:    p.baseReserve,
		QuoteReserve:   p.quoteReserve,
	}, nil
}
