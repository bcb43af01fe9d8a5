package amm

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"futarchy/internal/auth"
	"futarchy/internal/fixedpoint"
)

var (
	baseMint  = common.HexToAddress("0xb0")
	quoteMint = common.HexToAddress("0xc0")
	alice     = common.HexToAddress("0x01")
	bob       = common.HexToAddress("0x02")
	carol     = common.HexToAddress("0x03")
	governor  = common.HexToAddress("0x99")
)

func testConfig() Config {
	return Config{
		BaseMint:      baseMint,
		QuoteMint:     quoteMint,
		BaseDecimals:  6,
		QuoteDecimals: 6,
		SwapFeeBps:    300,
		LtwapDecimals: 9,
	}
}

func newSeededPool(t *testing.T, base, quote uint64) *Pool {
	t.Helper()
	p, err := New(testConfig(), DefaultFeeBounds)
	require.NoError(t, err)
	_, err = p.CreatePosition(auth.Direct(alice), alice)
	require.NoError(t, err)
	_, err = p.AddLiquidity(auth.Direct(alice), 0, alice, base, quote)
	require.NoError(t, err)
	return p
}

func TestNewValidation(t *testing.T) {
	cfg := testConfig()
	cfg.QuoteMint = cfg.BaseMint
	_, err := New(cfg, DefaultFeeBounds)
	require.ErrorIs(t, err, ErrSameMint)

	for _, fee := range []uint64{0, 99, 1000, fixedpoint.BPSScale} {
		cfg = testConfig()
		cfg.SwapFeeBps = fee
		_, err = New(cfg, DefaultFeeBounds)
		require.ErrorIs(t, err, ErrInvalidSwapFee, "fee %d", fee)
	}

	cfg = testConfig()
	cfg.BaseDecimals = 20
	_, err = New(cfg, DefaultFeeBounds)
	require.ErrorIs(t, err, fixedpoint.ErrUnsupportedDecimals)

	cfg = testConfig()
	cfg.SwapFeeBps = 999
	p, err := New(cfg, DefaultFeeBounds)
	require.NoError(t, err)
	require.Zero(t, p.TotalOwnership())
}

func TestSwapQuoteToBase(t *testing.T) {
	p := newSeededPool(t, 1_000_000, 2_000_000)
	k := fixedpoint.Product(1_000_000, 2_000_000)

	res, err := p.Swap(auth.Direct(bob), 1, true, 100_000, 46_257)
	require.NoError(t, err)
	require.Equal(t, uint64(46_257), res.Output)
	require.Equal(t, uint64(3_000), res.Fee)

	base, quote := p.Reserves()
	require.Equal(t, uint64(953_743), base)
	require.Equal(t, uint64(2_100_000), quote)

	newK := fixedpoint.Product(base, quote)
	require.Equal(t, "2002860300000", newK.Dec())
	require.False(t, newK.Lt(k))
}

func TestSwapBaseToQuote(t *testing.T) {
	p := newSeededPool(t, 1_000_000, 2_000_000)

	res, err := p.Swap(auth.Direct(bob), 1, false, 50_000, 0)
	require.NoError(t, err)
	// temp base = 1,048,500; new quote = floor(2e12 / 1,048,500) = 1,907,486
	require.Equal(t, uint64(92_514), res.Output)

	base, quote := p.Reserves()
	require.Equal(t, uint64(1_050_000), base)
	require.Equal(t, uint64(1_907_486), quote)
}

func TestSwapRejects(t *testing.T) {
	p := newSeededPool(t, 1_000_000, 2_000_000)

	_, err := p.Swap(auth.Direct(bob), 1, true, 0, 0)
	require.ErrorIs(t, err, ErrZeroInput)

	_, err = p.Swap(auth.Direct(bob), 1, true, 100_000, 46_258)
	require.ErrorIs(t, err, ErrSlippage)

	base, quote := p.Reserves()
	require.Equal(t, uint64(1_000_000), base)
	require.Equal(t, uint64(2_000_000), quote)
	require.Zero(t, p.LtwapState().LastUpdate)

	empty, err := New(testConfig(), DefaultFeeBounds)
	require.NoError(t, err)
	_, err = empty.Swap(auth.Direct(bob), 1, true, 10, 0)
	require.ErrorIs(t, err, ErrEmptyPool)
}

func TestSwapInvariantViolation(t *testing.T) {
	p := newSeededPool(t, 1, 1)

	_, err := p.Swap(auth.Direct(bob), 1, true, 10, 0)
	require.ErrorIs(t, err, ErrSwapInvariant)

	base, quote := p.Reserves()
	require.Equal(t, uint64(1), base)
	require.Equal(t, uint64(1), quote)
}

func TestSwapMonotonicK(t *testing.T) {
	p := newSeededPool(t, 5_000_000_000, 7_000_000_000)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		base, quote := p.Reserves()
		before := fixedpoint.Product(base, quote)

		input := uint64(rng.Int63n(1_000_000_000)) + 1
		_, err := p.Swap(auth.Direct(bob), uint64(i), rng.Intn(2) == 0, input, 0)
		if err != nil {
			// tiny trades can round against the pool and are rejected
			require.True(t, errors.Is(err, ErrZeroOutput) || errors.Is(err, ErrSwapInvariant), "step %d: %v", i, err)
			continue
		}

		base, quote = p.Reserves()
		require.False(t, fixedpoint.Product(base, quote).Lt(before), "step %d", i)
	}
}

func TestPermissionedPool(t *testing.T) {
	cfg := testConfig()
	cfg.PermissionedCaller = governor
	p, err := New(cfg, DefaultFeeBounds)
	require.NoError(t, err)

	_, err = p.CreatePosition(auth.Direct(alice), alice)
	require.ErrorIs(t, err, ErrUnauthorized)

	routed := auth.Direct(alice).Through(governor)
	_, err = p.CreatePosition(routed, alice)
	require.NoError(t, err)
	_, err = p.AddLiquidity(routed, 0, alice, 100, 100)
	require.NoError(t, err)

	_, err = p.Swap(auth.Direct(bob), 1, true, 10, 0)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = p.RemoveLiquidity(auth.Direct(alice), 1, alice, 10_000)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, p.UpdateLtwap(auth.Direct(alice), 1), ErrUnauthorized)
}

func TestPositions(t *testing.T) {
	p, err := New(testConfig(), DefaultFeeBounds)
	require.NoError(t, err)

	pos, err := p.CreatePosition(auth.Direct(alice), alice)
	require.NoError(t, err)
	require.Zero(t, pos.Ownership)
	require.Equal(t, alice, pos.Owner)

	_, err = p.CreatePosition(auth.Direct(alice), alice)
	require.ErrorIs(t, err, ErrPositionExists)

	_, err = p.AddLiquidity(auth.Direct(bob), 0, bob, 1, 1)
	require.ErrorIs(t, err, ErrPositionNotFound)
}

func TestAddLiquidity(t *testing.T) {
	p, err := New(testConfig(), DefaultFeeBounds)
	require.NoError(t, err)
	for _, owner := range []common.Address{alice, bob} {
		_, err = p.CreatePosition(auth.Direct(owner), owner)
		require.NoError(t, err)
	}

	_, err = p.AddLiquidity(auth.Direct(alice), 0, alice, 0, 10)
	require.ErrorIs(t, err, ErrZeroLiquidity)

	res, err := p.AddLiquidity(auth.Direct(alice), 0, alice, 1_000, 2_000)
	require.NoError(t, err)
	require.Equal(t, uint64(2_000), res.Ownership)
	require.Equal(t, uint64(2_000), p.TotalOwnership())

	// quote implied by 100 base is 200, above the cap, so base is derived from quote.
	res, err = p.AddLiquidity(auth.Direct(bob), 0, bob, 100, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(50), res.BaseAmount)
	require.Equal(t, uint64(100), res.QuoteAmount)
	require.Equal(t, uint64(100), res.Ownership)

	res, err = p.AddLiquidity(auth.Direct(bob), 0, bob, 10, 1_000)
	require.NoError(t, err)
	require.Equal(t, uint64(10), res.BaseAmount)
	require.Equal(t, uint64(20), res.QuoteAmount)
	require.Equal(t, uint64(20), res.Ownership)

	pos, ok := p.Position(bob)
	require.True(t, ok)
	require.Equal(t, uint64(120), pos.Ownership)
	require.NoError(t, p.CheckOwnership())

	base, quote := p.Reserves()
	require.Equal(t, uint64(1_060), base)
	require.Equal(t, uint64(2_120), quote)
}

func TestAddLiquidityDust(t *testing.T) {
	p := newSeededPool(t, 1_000_000, 1_000)
	_, err := p.CreatePosition(auth.Direct(bob), bob)
	require.NoError(t, err)

	// one base unit implies zero quote
	_, err = p.AddLiquidity(auth.Direct(bob), 0, bob, 1, 1_000)
	require.ErrorIs(t, err, ErrInsufficientLiquidityMinted)
}

func TestRemoveLiquidity(t *testing.T) {
	p := newSeededPool(t, 1_000_000, 2_000_000)
	_, err := p.CreatePosition(auth.Direct(bob), bob)
	require.NoError(t, err)

	for _, bps := range []uint64{0, 10_001} {
		_, err = p.RemoveLiquidity(auth.Direct(alice), 1, alice, bps)
		require.ErrorIs(t, err, ErrInvalidBps)
	}
	_, err = p.RemoveLiquidity(auth.Direct(bob), 1, bob, 5_000)
	require.ErrorIs(t, err, ErrNoOwnership)
	_, err = p.RemoveLiquidity(auth.Direct(carol), 1, carol, 5_000)
	require.ErrorIs(t, err, ErrPositionNotFound)

	res, err := p.RemoveLiquidity(auth.Direct(alice), 1, alice, 2_500)
	require.NoError(t, err)
	require.Equal(t, uint64(500_000), res.Ownership)
	require.Equal(t, uint64(250_000), res.BaseAmount)
	require.Equal(t, uint64(500_000), res.QuoteAmount)
	require.Equal(t, uint64(1_500_000), p.TotalOwnership())

	res, err = p.RemoveLiquidity(auth.Direct(alice), 2, alice, 10_000)
	require.NoError(t, err)
	require.Equal(t, uint64(750_000), res.BaseAmount)
	require.Equal(t, uint64(1_500_000), res.QuoteAmount)
	require.Zero(t, p.TotalOwnership())

	base, quote := p.Reserves()
	require.Zero(t, base)
	require.Zero(t, quote)
	pos, _ := p.Position(alice)
	require.Zero(t, pos.Ownership)
}

func TestOwnershipConservation(t *testing.T) {
	p, err := New(testConfig(), DefaultFeeBounds)
	require.NoError(t, err)
	owners := []common.Address{alice, bob, carol}
	for _, owner := range owners {
		_, err = p.CreatePosition(auth.Direct(owner), owner)
		require.NoError(t, err)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1_000; i++ {
		owner := owners[rng.Intn(len(owners))]
		if rng.Intn(3) == 0 {
			_, err = p.RemoveLiquidity(auth.Direct(owner), uint64(i), owner, uint64(rng.Int63n(10_000))+1)
		} else {
			_, err = p.AddLiquidity(auth.Direct(owner), uint64(i), owner, uint64(rng.Int63n(1_000_000))+1, uint64(rng.Int63n(3_000_000))+1)
		}
		if err != nil {
			require.True(t, errors.Is(err, ErrNoOwnership) ||
				errors.Is(err, ErrInsufficientLiquidityBurned) ||
				errors.Is(err, ErrInsufficientLiquidityMinted), "step %d: %v", i, err)
		}
		require.NoError(t, p.CheckOwnership(), "step %d", i)
	}
}

func TestLtwapUpdatedBeforeMutation(t *testing.T) {
	p := newSeededPool(t, 1_000_000, 2_000_000)
	require.Equal(t, uint64(2_000_000_000), p.SpotPrice())

	_, err := p.Swap(auth.Direct(bob), 100, true, 100_000, 0)
	require.NoError(t, err)
	// only the pre-swap price has been in effect
	require.Equal(t, uint64(2_000_000_000), p.Ltwap())
	require.Equal(t, uint64(100), p.LtwapState().LastUpdate)

	after := p.SpotPrice()
	require.Greater(t, after, uint64(2_000_000_000))

	require.NoError(t, p.UpdateLtwap(auth.Direct(bob), 200))
	require.Greater(t, p.Ltwap(), uint64(2_000_000_000))
	require.Less(t, p.Ltwap(), after)

	// weights are quote units times slots: 2*100 and 2.1*100
	want := decimal.RequireFromString("2").Mul(decimal.NewFromInt(200)).
		Add(spotPrice(953_743, 2_100_000, 6, 6).Mul(decimal.NewFromInt(210))).
		Shift(9)
	q, _ := want.QuoRem(decimal.NewFromInt(410), 0)
	require.Equal(t, q.BigInt().Uint64(), p.Ltwap())
}

func TestLtwapClockBackwards(t *testing.T) {
	p := newSeededPool(t, 1_000_000, 2_000_000)
	require.NoError(t, p.UpdateLtwap(auth.Direct(bob), 50))

	err := p.UpdateLtwap(auth.Direct(bob), 49)
	require.ErrorIs(t, err, ErrClockMovedBackwards)
	_, err = p.Swap(auth.Direct(bob), 49, true, 100, 0)
	require.ErrorIs(t, err, ErrClockMovedBackwards)
}

func TestLtwapWindowClamp(t *testing.T) {
	p := newSeededPool(t, 1_000_000, 2_000_000)
	require.NoError(t, p.UpdateLtwap(auth.Direct(bob), 5))

	require.NoError(t, p.StartLtwapClock(auth.Direct(bob), 10, 20))
	require.Zero(t, p.Ltwap())

	require.NoError(t, p.UpdateLtwap(auth.Direct(bob), 50))
	require.Equal(t, uint64(20), p.LtwapState().LastUpdate)
	require.Equal(t, uint64(2_000_000_000), p.Ltwap())

	_, err := p.Swap(auth.Direct(bob), 60, true, 500_000, 0)
	require.NoError(t, err)
	require.NoError(t, p.UpdateLtwap(auth.Direct(bob), 70))
	require.Equal(t, uint64(2_000_000_000), p.Ltwap())
}

func TestLtwapBounded(t *testing.T) {
	p := newSeededPool(t, 40_000_000, 90_000_000)
	rng := rand.New(rand.NewSource(11))

	low, high := p.SpotPrice(), p.SpotPrice()
	now := uint64(0)
	for i := 0; i < 300; i++ {
		now += uint64(rng.Int63n(50)) + 1
		price := p.SpotPrice()
		low, high = min(low, price), max(high, price)

		_, err := p.Swap(auth.Direct(bob), now, rng.Intn(2) == 0, uint64(rng.Int63n(5_000_000))+10_000, 0)
		require.NoError(t, err)

		require.GreaterOrEqual(t, p.Ltwap(), low, "step %d", i)
		require.LessOrEqual(t, p.Ltwap(), high, "step %d", i)
	}
}

func TestLtwapSaturates(t *testing.T) {
	o := oracle{
		decimals:    9,
		numerator:   decimal.RequireFromString("1e30"),
		denominator: decimal.NewFromInt(1),
	}
	require.Equal(t, uint64(math.MaxUint64), o.average())

	o.denominator = decimal.Zero
	require.Zero(t, o.average())
}

func TestCloneAndRecord(t *testing.T) {
	p := newSeededPool(t, 1_000_000, 2_000_000)
	_, err := p.Swap(auth.Direct(bob), 10, true, 100_000, 0)
	require.NoError(t, err)

	draft := p.Clone()
	_, err = draft.RemoveLiquidity(auth.Direct(alice), 11, alice, 10_000)
	require.NoError(t, err)
	require.Equal(t, uint64(2_000_000), p.TotalOwnership())

	restored, err := FromRecord(p.Record())
	require.NoError(t, err)
	require.Equal(t, p.Record(), restored.Record())

	rec := p.Record()
	rec.TotalOwnership++
	_, err = FromRecord(rec)
	require.ErrorIs(t, err, ErrOwnershipMismatch)

	rec = p.Record()
	rec.Ltwap.NumeratorAgg = "nope"
	_, err = FromRecord(rec)
	require.ErrorIs(t, err, ErrInvalidAggregate)
}
