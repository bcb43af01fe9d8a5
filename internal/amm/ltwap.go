package amm

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"futarchy/internal/auth"
	"futarchy/internal/model"
)

// pricePrecision is the number of fractional digits kept for each
// instantaneous price. Prices are truncated, never rounded up.
const pricePrecision int32 = 24

type oracle struct {
	decimals    uint8
	numerator   decimal.Decimal
	denominator decimal.Decimal
	lastUpdate  uint64
	windowEnd   uint64
	latest      uint64
}

func newOracle(decimals uint8, now uint64) oracle {
	return oracle{
		decimals:    decimals,
		numerator:   decimal.Zero,
		denominator: decimal.Zero,
		lastUpdate:  now,
	}
}

func units(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}

func spotPrice(base, quote uint64, baseDecimals, quoteDecimals uint8) decimal.Decimal {
	if base == 0 {
		return decimal.Zero
	}
	price, _ := units(quote, quoteDecimals).QuoRem(units(base, baseDecimals), pricePrecision)
	return price
}

// advance accrues the reserves in effect since the last update. Accrual stops
// at windowEnd when one is set.
func (o oracle) advance(now, base, quote uint64, baseDecimals, quoteDecimals uint8) (oracle, error) {
	if now < o.lastUpdate {
		return o, fmt.Errorf("now %d, last update %d: %w", now, o.lastUpdate, ErrClockMovedBackwards)
	}
	effective := now
	if o.windowEnd != 0 && effective > o.windowEnd {
		effective = o.windowEnd
	}
	if effective <= o.lastUpdate {
		return o, nil
	}

	elapsed := decimal.NewFromBigInt(new(big.Int).SetUint64(effective-o.lastUpdate), 0)
	weight := units(quote, quoteDecimals).Mul(elapsed)
	price := spotPrice(base, quote, baseDecimals, quoteDecimals)

	next := o
	next.numerator = o.numerator.Add(weight.Mul(price))
	next.denominator = o.denominator.Add(weight)
	next.lastUpdate = effective
	next.latest = next.average()
	return next, nil
}

// average returns numerator/denominator scaled to the display precision,
// truncated and saturating at MaxUint64.
func (o oracle) average() uint64 {
	if o.denominator.IsZero() {
		return 0
	}
	q, _ := o.numerator.Shift(int32(o.decimals)).QuoRem(o.denominator, 0)
	v := q.BigInt()
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}

func (o oracle) record() model.Ltwap {
	return model.Ltwap{
		Decimals:       o.decimals,
		NumeratorAgg:   o.numerator.String(),
		DenominatorAgg: o.denominator.String(),
		LastUpdate:     o.lastUpdate,
		WindowEnd:      o.windowEnd,
		Latest:         o.latest,
	}
}

func oracleFromRecord(rec model.Ltwap) (oracle, error) {
	num, err := decimal.NewFromString(rec.NumeratorAgg)
	if err != nil {
		return oracle{}, fmt.Errorf("numerator %q: %w", rec.NumeratorAgg, ErrInvalidAggregate)
	}
	den, err := decimal.NewFromString(rec.DenominatorAgg)
	if err != nil {
		return oracle{}, fmt.Errorf("denominator %q: %w", rec.DenominatorAgg, ErrInvalidAggregate)
	}
	if num.IsNegative() || den.IsNegative() {
		return oracle{}, ErrInvalidAggregate
	}
	return oracle{
		decimals:    rec.Decimals,
		numerator:   num,
		denominator: den,
		lastUpdate:  rec.LastUpdate,
		windowEnd:   rec.WindowEnd,
		latest:      rec.Latest,
	}, nil
}

// LtwapState exports the oracle state.
func (p *Pool) LtwapState() model.Ltwap {
	return p.oracle.record()
}

// SpotPrice returns quote units per base unit scaled by 10^LtwapDecimals.
func (p *Pool) SpotPrice() uint64 {
	o := oracle{
		decimals:    p.cfg.LtwapDecimals,
		numerator:   spotPrice(p.baseReserve, p.quoteReserve, p.cfg.BaseDecimals, p.cfg.QuoteDecimals),
		denominator: decimal.New(1, 0),
	}
	return o.average()
}

func (p *Pool) accrue(now uint64) (oracle, error) {
	return p.oracle.advance(now, p.baseReserve, p.quoteReserve, p.cfg.BaseDecimals, p.cfg.QuoteDecimals)
}

// UpdateLtwap advances the oracle to now without touching reserves.
func (p *Pool) UpdateLtwap(c auth.Caller, now uint64) error {
	if err := p.authorize(c); err != nil {
		return err
	}
	next, err := p.accrue(now)
	if err != nil {
		return err
	}
	p.oracle = next
	return nil
}

// StartLtwapClock discards prior accrual and restarts the oracle at now.
// When end is non-zero no time after end is accrued.
func (p *Pool) StartLtwapClock(c auth.Caller, now, end uint64) error {
	if err := p.authorize(c); err != nil {
		return err
	}
	if now < p.oracle.lastUpdate {
		return fmt.Errorf("now %d, last update %d: %w", now, p.oracle.lastUpdate, ErrClockMovedBackwards)
	}
	o := newOracle(p.cfg.LtwapDecimals, now)
	o.windowEnd = end
	p.oracle = o
	return nil
}
