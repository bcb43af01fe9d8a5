// Package amm implements a constant-product pool with proportional liquidity
// positions and a liquidity time-weighted average price oracle.
package amm

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"futarchy/internal/auth"
	"futarchy/internal/fixedpoint"
	"futarchy/internal/keys"
	"futarchy/internal/model"
)

// FeeBounds is the accepted swap fee range [Min, Max).
type FeeBounds struct {
	Min uint64
	Max uint64
}

// DefaultFeeBounds accepts fees of 100 to 999 bps.
var DefaultFeeBounds = FeeBounds{Min: 100, Max: 1000}

// Check returns ErrInvalidSwapFee unless fee lies within b.
func (b FeeBounds) Check(fee uint64) error {
	if fee == 0 || fee >= fixedpoint.BPSScale || fee < b.Min || fee >= b.Max {
		return fmt.Errorf("fee %d bps: %w", fee, ErrInvalidSwapFee)
	}
	return nil
}

// Config describes a new pool.
type Config struct {
	BaseMint           common.Address
	QuoteMint          common.Address
	BaseDecimals       uint8
	QuoteDecimals      uint8
	SwapFeeBps         uint64
	PermissionedCaller common.Address
	LtwapDecimals      uint8
	CreatedAt          uint64
}

// Pool holds the reserves of one trading pair. All mutation goes through its
// methods; callers never write reserves or ownership directly.
type Pool struct {
	address        common.Address
	cfg            Config
	baseReserve    uint64
	quoteReserve   uint64
	totalOwnership uint64
	positions      map[common.Address]*position
	oracle         oracle
}

type position struct {
	address   common.Address
	ownership uint64
}

// New validates cfg and returns an empty pool. Its oracle clock starts at
// cfg.CreatedAt.
func New(cfg Config, bounds FeeBounds) (*Pool, error) {
	if cfg.BaseMint == cfg.QuoteMint {
		return nil, ErrSameMint
	}
	if err := bounds.Check(cfg.SwapFeeBps); err != nil {
		return nil, err
	}
	for _, d := range []uint8{cfg.BaseDecimals, cfg.QuoteDecimals, cfg.LtwapDecimals} {
		if _, err := fixedpoint.DecimalScale(d); err != nil {
			return nil, fmt.Errorf("decimals %d: %w", d, err)
		}
	}
	return &Pool{
		address:   keys.Pool(cfg.BaseMint, cfg.QuoteMint, cfg.SwapFeeBps, cfg.PermissionedCaller),
		cfg:       cfg,
		positions: make(map[common.Address]*position),
		oracle:    newOracle(cfg.LtwapDecimals, cfg.CreatedAt),
	}, nil
}

func (p *Pool) Address() common.Address            { return p.address }
func (p *Pool) BaseMint() common.Address           { return p.cfg.BaseMint }
func (p *Pool) QuoteMint() common.Address          { return p.cfg.QuoteMint }
func (p *Pool) SwapFeeBps() uint64                 { return p.cfg.SwapFeeBps }
func (p *Pool) PermissionedCaller() common.Address { return p.cfg.PermissionedCaller }
func (p *Pool) TotalOwnership() uint64             { return p.totalOwnership }

func (p *Pool) Reserves() (base, quote uint64) {
	return p.baseReserve, p.quoteReserve
}

// Ltwap returns the most recent average price scaled by 10^LtwapDecimals.
func (p *Pool) Ltwap() uint64 {
	return p.oracle.latest
}

func (p *Pool) Meta() model.PoolMeta {
	return model.PoolMeta{
		BaseMint:      p.cfg.BaseMint,
		QuoteMint:     p.cfg.QuoteMint,
		BaseDecimals:  p.cfg.BaseDecimals,
		QuoteDecimals: p.cfg.QuoteDecimals,
		SwapFeeBps:    p.cfg.SwapFeeBps,
	}
}

func (p *Pool) authorize(c auth.Caller) error {
	if !c.Permits(p.cfg.PermissionedCaller) {
		return ErrUnauthorized
	}
	return nil
}

// CreatePosition opens a zero-ownership position for owner.
func (p *Pool) CreatePosition(c auth.Caller, owner common.Address) (model.Position, error) {
	if err := p.authorize(c); err != nil {
		return model.Position{}, err
	}
	if _, ok := p.positions[owner]; ok {
		return model.Position{}, fmt.Errorf("owner %s: %w", owner.Hex(), ErrPositionExists)
	}
	pos := &position{address: keys.Position(p.address, owner)}
	p.positions[owner] = pos
	return model.Position{Address: pos.address, Owner: owner}, nil
}

func (p *Pool) Position(owner common.Address) (model.Position, bool) {
	pos, ok := p.positions[owner]
	if !ok {
		return model.Position{}, false
	}
	return model.Position{Address: pos.address, Owner: owner, Ownership: pos.ownership}, true
}

// CheckOwnership verifies that positions sum to total ownership.
func (p *Pool) CheckOwnership() error {
	var sum uint64
	for _, pos := range p.positions {
		next, err := fixedpoint.Add(sum, pos.ownership)
		if err != nil {
			return fmt.Errorf("sum ownership: %w", err)
		}
		sum = next
	}
	if sum != p.totalOwnership {
		return fmt.Errorf("positions %d, total %d: %w", sum, p.totalOwnership, ErrOwnershipMismatch)
	}
	return nil
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	out := *p
	out.positions = make(map[common.Address]*position, len(p.positions))
	for owner, pos := range p.positions {
		cp := *pos
		out.positions[owner] = &cp
	}
	return &out
}

// Record exports the pool for persistence.
func (p *Pool) Record() model.Pool {
	positions := make([]model.Position, 0, len(p.positions))
	for owner, pos := range p.positions {
		positions = append(positions, model.Position{Address: pos.address, Owner: owner, Ownership: pos.ownership})
	}
	sort.Slice(positions, func(i, j int) bool {
		return bytes.Compare(positions[i].Owner.Bytes(), positions[j].Owner.Bytes()) < 0
	})
	return model.Pool{
		Address:            p.address,
		BaseMint:           p.cfg.BaseMint,
		QuoteMint:          p.cfg.QuoteMint,
		BaseDecimals:       p.cfg.BaseDecimals,
		QuoteDecimals:      p.cfg.QuoteDecimals,
		BaseReserve:        p.baseReserve,
		QuoteReserve:       p.quoteReserve,
		TotalOwnership:     p.totalOwnership,
		SwapFeeBps:         p.cfg.SwapFeeBps,
		PermissionedCaller: p.cfg.PermissionedCaller,
		CreatedAt:          p.cfg.CreatedAt,
		Ltwap:              p.oracle.record(),
		Positions:          positions,
	}
}

// FromRecord rebuilds a pool from its persisted form.
func FromRecord(rec model.Pool) (*Pool, error) {
	o, err := oracleFromRecord(rec.Ltwap)
	if err != nil {
		return nil, err
	}
	p := &Pool{
		address: rec.Address,
		cfg: Config{
			BaseMint:           rec.BaseMint,
			QuoteMint:          rec.QuoteMint,
			BaseDecimals:       rec.BaseDecimals,
			QuoteDecimals:      rec.QuoteDecimals,
			SwapFeeBps:         rec.SwapFeeBps,
			PermissionedCaller: rec.PermissionedCaller,
			LtwapDecimals:      rec.Ltwap.Decimals,
			CreatedAt:          rec.CreatedAt,
		},
		baseReserve:    rec.BaseReserve,
		quoteReserve:   rec.QuoteReserve,
		totalOwnership: rec.TotalOwnership,
		positions:      make(map[common.Address]*position, len(rec.Positions)),
		oracle:         o,
	}
	for _, pos := range rec.Positions {
		p.positions[pos.Owner] = &position{address: pos.Address, ownership: pos.Ownership}
	}
	if err := p.CheckOwnership(); err != nil {
		return nil, err
	}
	return p, nil
}
