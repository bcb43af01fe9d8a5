package export

import (
	"strconv"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const ratioScale = 18

func units(value *uint256.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value.ToBig(), -int32(decimals))
}

func formatTokenAmount(value *uint256.Int, decimals uint8) string {
	return units(value, decimals).String()
}

func formatReserve(value uint64, decimals uint8) string {
	return formatTokenAmount(uint256.NewInt(value), decimals)
}

// closePrice is quote units per base unit at the window's closing reserves.
func closePrice(base, quote uint64, baseDecimals, quoteDecimals uint8) *string {
	if base == 0 {
		return nil
	}
	price := units(uint256.NewInt(quote), quoteDecimals).
		DivRound(units(uint256.NewInt(base), baseDecimals), ratioScale)
	val := price.String()
	return &val
}

// feeRate is the quote-side fee earned relative to the closing quote reserve.
func feeRate(feeQuote *uint256.Int, quoteReserve uint64) *string {
	if feeQuote == nil || feeQuote.IsZero() || quoteReserve == 0 {
		return nil
	}
	rate := decimal.NewFromBigInt(feeQuote.ToBig(), 0).
		DivRound(decimal.NewFromBigInt(uint256.NewInt(quoteReserve).ToBig(), 0), ratioScale)
	val := rate.String()
	return &val
}

func formatLtwap(acc *Accumulator) *string {
	if !acc.HasLtwap {
		return nil
	}
	val := strconv.FormatUint(acc.Ltwap, 10)
	return &val
}
