package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"futarchy/internal/amm"
	"futarchy/internal/auth"
	"futarchy/internal/model"
)

// CreateMint registers a mint whose authority is the signer.
func (e *Engine) CreateMint(c auth.Caller, spec MintSpec) error {
	return e.exec("create_mint", c, func(t *tx) error {
		if err := t.st.tokens.CreateMint(spec.Address, spec.Decimals, c.Signer, spec.Symbol); err != nil {
			return err
		}
		t.emit(model.EventMintCreated, spec.Address, model.MintEventData{
			Authority: c.Signer, Decimals: spec.Decimals, Symbol: spec.Symbol,
		}, nil)
		return nil
	})
}

// MintTo issues amount of mint to to. The signer must be the mint authority.
func (e *Engine) MintTo(c auth.Caller, mint, to common.Address, amount uint64) error {
	return e.exec("mint_to", c, func(t *tx) error {
		if err := t.st.tokens.MintTo(c.Signer, mint, to, amount); err != nil {
			return err
		}
		t.emit(model.EventMinted, mint, model.TokenEventData{To: to, Amount: amount}, nil)
		return nil
	})
}

// Transfer moves the signer's tokens to another owner.
func (e *Engine) Transfer(c auth.Caller, mint, to common.Address, amount uint64) error {
	return e.exec("transfer", c, func(t *tx) error {
		if err := t.st.tokens.Transfer(c.Signer, mint, c.Signer, to, amount); err != nil {
			return err
		}
		t.emit(model.EventTransferred, mint, model.TokenEventData{From: c.Signer, To: to, Amount: amount}, nil)
		return nil
	})
}

// PoolParams describes a pool to create.
type PoolParams struct {
	BaseMint           common.Address
	QuoteMint          common.Address
	SwapFeeBps         uint64
	PermissionedCaller common.Address
}

// CreatePool creates an empty pool and returns its address.
func (e *Engine) CreatePool(c auth.Caller, params PoolParams) (common.Address, error) {
	var addr common.Address
	err := e.exec("create_pool", c, func(t *tx) error {
		p, err := t.createPool(params)
		if err != nil {
			return err
		}
		addr = p.Address()
		return nil
	})
	return addr, err
}

func (t *tx) createPool(params PoolParams) (*amm.Pool, error) {
	baseDecimals, err := t.st.tokens.Decimals(params.BaseMint)
	if err != nil {
		return nil, fmt.Errorf("base mint: %w", err)
	}
	quoteDecimals, err := t.st.tokens.Decimals(params.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("quote mint: %w", err)
	}
	p, err := amm.New(amm.Config{
		BaseMint:           params.BaseMint,
		QuoteMint:          params.QuoteMint,
		BaseDecimals:       baseDecimals,
		QuoteDecimals:      quoteDecimals,
		SwapFeeBps:         params.SwapFeeBps,
		PermissionedCaller: params.PermissionedCaller,
		LtwapDecimals:      t.st.dao.Params().LtwapDecimals,
		CreatedAt:          t.now,
	}, t.bounds)
	if err != nil {
		return nil, err
	}
	if _, ok := t.st.pools[p.Address()]; ok {
		return nil, fmt.Errorf("pool %s: %w", p.Address().Hex(), ErrPoolExists)
	}
	t.st.pools[p.Address()] = p
	meta := p.Meta()
	t.emit(model.EventPoolCreated, p.Address(), meta, &meta)
	return p, nil
}

// CreatePosition opens the signer's position on a pool.
func (e *Engine) CreatePosition(c auth.Caller, pool common.Address) (common.Address, error) {
	var addr common.Address
	err := e.exec("create_position", c, func(t *tx) error {
		pos, err := t.createPosition(c, pool)
		addr = pos.Address
		return err
	})
	return addr, err
}

func (t *tx) createPosition(c auth.Caller, poolAddr common.Address) (model.Position, error) {
	p, err := t.st.pool(poolAddr)
	if err != nil {
		return model.Position{}, err
	}
	pos, err := p.CreatePosition(c, c.Signer)
	if err != nil {
		return model.Position{}, err
	}
	t.emit(model.EventPositionCreated, poolAddr, pos, nil)
	return pos, nil
}

// Swap trades the signer's input tokens for the other side of the pool.
func (e *Engine) Swap(c auth.Caller, pool common.Address, quoteToBase bool, input, minOutput uint64) (amm.SwapResult, error) {
	var res amm.SwapResult
	err := e.exec("swap", c, func(t *tx) error {
		var err error
		res, err = t.swap(c, pool, quoteToBase, input, minOutput)
		return err
	})
	return res, err
}

func (t *tx) swap(c auth.Caller, poolAddr common.Address, quoteToBase bool, input, minOutput uint64) (amm.SwapResult, error) {
	p, err := t.st.pool(poolAddr)
	if err != nil {
		return amm.SwapResult{}, err
	}
	before := p.LtwapState()
	res, err := p.Swap(c, t.now, quoteToBase, input, minOutput)
	if err != nil {
		return amm.SwapResult{}, err
	}

	inMint, outMint := p.BaseMint(), p.QuoteMint()
	if quoteToBase {
		inMint, outMint = outMint, inMint
	}
	if err := t.st.tokens.Transfer(c.Signer, inMint, c.Signer, poolAddr, input); err != nil {
		return amm.SwapResult{}, fmt.Errorf("pay input: %w", err)
	}
	if err := t.st.tokens.Transfer(poolAddr, outMint, poolAddr, c.Signer, res.Output); err != nil {
		return amm.SwapResult{}, fmt.Errorf("pay output: %w", err)
	}

	t.emitLtwap(p, before)
	meta := p.Meta()
	t.emit(model.EventSwap, poolAddr, model.SwapEventData{
		Trader:       c.Signer,
		QuoteToBase:  quoteToBase,
		InputAmount:  input,
		OutputAmount: res.Output,
		FeeAmount:    res.Fee,
		BaseReserve:  res.BaseReserve,
		QuoteReserve: res.QuoteReserve,
	}, &meta)
	t.observe(p)
	t.after = append(t.after, func() {
		t.metrics.Swap(poolAddr.Hex(), input)
	})
	return res, nil
}

// AddLiquidity deposits the signer's tokens into a pool.
func (e *Engine) AddLiquidity(c auth.Caller, pool common.Address, maxBase, maxQuote uint64) (amm.LiquidityResult, error) {
	var res amm.LiquidityResult
	err := e.exec("add_liquidity", c, func(t *tx) error {
		var err error
		res, err = t.addLiquidity(c, pool, maxBase, maxQuote)
		return err
	})
	return res, err
}

func (t *tx) addLiquidity(c auth.Caller, poolAddr common.Address, maxBase, maxQuote uint64) (amm.LiquidityResult, error) {
	p, err := t.st.pool(poolAddr)
	if err != nil {
		return amm.LiquidityResult{}, err
	}
	before := p.LtwapState()
	res, err := p.AddLiquidity(c, t.now, c.Signer, maxBase, maxQuote)
	if err != nil {
		return amm.LiquidityResult{}, err
	}
	if err := t.st.tokens.Transfer(c.Signer, p.BaseMint(), c.Signer, poolAddr, res.BaseAmount); err != nil {
		return amm.LiquidityResult{}, fmt.Errorf("deposit base: %w", err)
	}
	if err := t.st.tokens.Transfer(c.Signer, p.QuoteMint(), c.Signer, poolAddr, res.QuoteAmount); err != nil {
		return amm.LiquidityResult{}, fmt.Errorf("deposit quote: %w", err)
	}
	t.emitLtwap(p, before)
	t.emitLiquidity(model.EventAddLiquidity, p, c.Signer, res)
	return res, nil
}

// RemoveLiquidity withdraws ownershipBps of the signer's position.
func (e *Engine) RemoveLiquidity(c auth.Caller, pool common.Address, ownershipBps uint64) (amm.LiquidityResult, error) {
	var res amm.LiquidityResult
	err := e.exec("remove_liquidity", c, func(t *tx) error {
		var err error
		res, err = t.removeLiquidity(c, pool, ownershipBps)
		return err
	})
	return res, err
}

func (t *tx) removeLiquidity(c auth.Caller, poolAddr common.Address, ownershipBps uint64) (amm.LiquidityResult, error) {
	p, err := t.st.pool(poolAddr)
	if err != nil {
		return amm.LiquidityResult{}, err
	}
	before := p.LtwapState()
	res, err := p.RemoveLiquidity(c, t.now, c.Signer, ownershipBps)
	if err != nil {
		return amm.LiquidityResult{}, err
	}
	if err := t.st.tokens.Transfer(poolAddr, p.BaseMint(), poolAddr, c.Signer, res.BaseAmount); err != nil {
		return amm.LiquidityResult{}, fmt.Errorf("withdraw base: %w", err)
	}
	if err := t.st.tokens.Transfer(poolAddr, p.QuoteMint(), poolAddr, c.Signer, res.QuoteAmount); err != nil {
		return amm.LiquidityResult{}, fmt.Errorf("withdraw quote: %w", err)
	}
	t.emitLtwap(p, before)
	t.emitLiquidity(model.EventRemoveLiquidity, p, c.Signer, res)
	return res, nil
}

// UpdateLtwap advances a pool's oracle to the current slot.
func (e *Engine) UpdateLtwap(c auth.Caller, pool common.Address) (uint64, error) {
	var latest uint64
	err := e.exec("update_ltwap", c, func(t *tx) error {
		p, err := t.st.pool(pool)
		if err != nil {
			return err
		}
		before := p.LtwapState()
		if err := p.UpdateLtwap(c, t.now); err != nil {
			return err
		}
		t.emitLtwap(p, before)
		latest = p.Ltwap()
		return nil
	})
	return latest, err
}

func (t *tx) emitLiquidity(name string, p *amm.Pool, owner common.Address, res amm.LiquidityResult) {
	meta := p.Meta()
	t.emit(name, p.Address(), model.LiquidityEventData{
		Owner:          owner,
		BaseAmount:     res.BaseAmount,
		QuoteAmount:    res.QuoteAmount,
		Ownership:      res.Ownership,
		TotalOwnership: res.TotalOwnership,
		BaseReserve:    res.BaseReserve,
		QuoteReserve:   res.QuoteReserve,
	}, &meta)
	t.observe(p)
}

// emitLtwap records an oracle event if the pool's oracle advanced.
func (t *tx) emitLtwap(p *amm.Pool, before model.Ltwap) {
	after := p.LtwapState()
	if after == before {
		return
	}
	meta := p.Meta()
	t.emit(model.EventLtwapUpdate, p.Address(), model.LtwapEventData{
		Latest:         after.Latest,
		NumeratorAgg:   after.NumeratorAgg,
		DenominatorAgg: after.DenominatorAgg,
		LastUpdate:     after.LastUpdate,
	}, &meta)
}

// observe schedules metric updates for a pool touched by the operation.
func (t *tx) observe(p *amm.Pool) {
	addr := p.Address().Hex()
	latest := p.Ltwap()
	t.after = append(t.after, func() {
		t.metrics.Ltwap(addr, latest)
	})
}
