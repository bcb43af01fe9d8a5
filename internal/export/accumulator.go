package export

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"futarchy/internal/model"
)

// Accumulator holds aggregate values for one pool window.
type Accumulator struct {
	PoolAddress  string
	PoolMeta     model.PoolMeta
	WindowStart  uint64
	WindowEnd    uint64
	SwapCount    uint64
	VolumeBase   *uint256.Int
	VolumeQuote  *uint256.Int
	FeeBase      *uint256.Int
	FeeQuote     *uint256.Int
	BaseReserve  uint64
	QuoteReserve uint64
	Ltwap        uint64
	HasLtwap     bool
	FirstSlot    uint64
	LastSlot     uint64
}

func NewAccumulator(record model.TypedEventRecord, windowStart, windowEnd uint64) *Accumulator {
	acc := &Accumulator{
		PoolAddress: record.Address,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeBase:  new(uint256.Int),
		VolumeQuote: new(uint256.Int),
		FeeBase:     new(uint256.Int),
		FeeQuote:    new(uint256.Int),
		FirstSlot:   record.Slot,
		LastSlot:    record.Slot,
	}
	if record.PoolMeta != nil {
		acc.PoolMeta = *record.PoolMeta
	}
	return acc
}

// Carry starts the next window from the closing reserves of prev.
func (a *Accumulator) Carry(prev *Accumulator) {
	if prev == nil {
		return
	}
	a.BaseReserve = prev.BaseReserve
	a.QuoteReserve = prev.QuoteReserve
	a.Ltwap = prev.Ltwap
	a.HasLtwap = prev.HasLtwap
	if a.PoolMeta == (model.PoolMeta{}) {
		a.PoolMeta = prev.PoolMeta
	}
}

func (a *Accumulator) AddEvent(record model.TypedEventRecord) error {
	if record.Slot >= a.LastSlot {
		a.LastSlot = record.Slot
	}
	if record.Slot < a.FirstSlot {
		a.FirstSlot = record.Slot
	}
	if record.PoolMeta != nil {
		a.PoolMeta = *record.PoolMeta
	}

	switch record.EventName {
	case model.EventSwap:
		var swap model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		a.applySwap(swap)
	case model.EventAddLiquidity, model.EventRemoveLiquidity:
		var liq model.LiquidityEventData
		if err := json.Unmarshal(record.Decoded, &liq); err != nil {
			return fmt.Errorf("decode liquidity: %w", err)
		}
		a.BaseReserve = liq.BaseReserve
		a.QuoteReserve = liq.QuoteReserve
	case model.EventLtwapUpdate:
		var ltwap model.LtwapEventData
		if err := json.Unmarshal(record.Decoded, &ltwap); err != nil {
			return fmt.Errorf("decode ltwap: %w", err)
		}
		a.Ltwap = ltwap.Latest
		a.HasLtwap = true
	}
	return nil
}

func (a *Accumulator) applySwap(swap model.SwapEventData) {
	in, out := a.VolumeBase, a.VolumeQuote
	fee := a.FeeBase
	if swap.QuoteToBase {
		in, out = a.VolumeQuote, a.VolumeBase
		fee = a.FeeQuote
	}
	in.Add(in, uint256.NewInt(swap.InputAmount))
	out.Add(out, uint256.NewInt(swap.OutputAmount))
	fee.Add(fee, uint256.NewInt(swap.FeeAmount))
	a.BaseReserve = swap.BaseReserve
	a.QuoteReserve = swap.QuoteReserve
	a.SwapCount++
}
