package amm

import (
	"fmt"

	"futarchy/internal/auth"
	"futarchy/internal/fixedpoint"
)

// SwapResult reports the outcome of a swap.
type SwapResult struct {
	Input        uint64
	Output       uint64
	Fee          uint64
	BaseReserve  uint64
	QuoteReserve uint64
}

// Swap trades input of one side for the other. The fee is taken from the
// input before solving k, and the full input is kept in the pool.
func (p *Pool) Swap(c auth.Caller, now uint64, quoteToBase bool, input, minOutput uint64) (SwapResult, error) {
	if err := p.authorize(c); err != nil {
		return SwapResult{}, err
	}
	if input == 0 {
		return SwapResult{}, ErrZeroInput
	}
	if p.totalOwnership == 0 {
		return SwapResult{}, ErrEmptyPool
	}

	nextOracle, err := p.accrue(now)
	if err != nil {
		return SwapResult{}, err
	}

	inputLessFee, err := fixedpoint.LessBps(input, p.cfg.SwapFeeBps)
	if err != nil {
		return SwapResult{}, fmt.Errorf("apply fee: %w", err)
	}

	k := fixedpoint.Product(p.baseReserve, p.quoteReserve)

	inReserve, outReserve := p.baseReserve, p.quoteReserve
	if quoteToBase {
		inReserve, outReserve = p.quoteReserve, p.baseReserve
	}

	tempIn, err := fixedpoint.Add(inReserve, inputLessFee)
	if err != nil {
		return SwapResult{}, fmt.Errorf("input reserve: %w", err)
	}
	newIn, err := fixedpoint.Add(inReserve, input)
	if err != nil {
		return SwapResult{}, fmt.Errorf("input reserve: %w", err)
	}
	newOut, err := fixedpoint.DivWide(k, tempIn)
	if err != nil {
		return SwapResult{}, fmt.Errorf("solve reserve: %w", err)
	}
	// newOut <= outReserve since tempIn >= inReserve.
	output := outReserve - newOut

	newBase, newQuote := newOut, newIn
	if !quoteToBase {
		newBase, newQuote = newIn, newOut
	}
	if fixedpoint.Product(newBase, newQuote).Lt(k) {
		return SwapResult{}, ErrSwapInvariant
	}
	if output == 0 {
		return SwapResult{}, ErrZeroOutput
	}
	if output < minOutput {
		return SwapResult{}, fmt.Errorf("output %d, minimum %d: %w", output, minOutput, ErrSlippage)
	}

	p.oracle = nextOracle
	p.baseReserve = newBase
	p.quoteReserve = newQuote

	return SwapResult{
		Input:        input,
		Output:       output,
		Fee:          input - inputLessFee,
		BaseReserve:  newBase,
		QuoteReserve: newQuote,
	}, nil
}
