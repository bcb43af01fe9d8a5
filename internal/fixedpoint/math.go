// Package fixedpoint provides overflow-checked integer helpers for settlement
// math. Intermediate products are carried in 256 bits so that a*b/c never
// overflows before the division.
package fixedpoint

import (
	"math"

	"github.com/holiman/uint256"
)

// BPSScale is the basis-point denominator.
const BPSScale uint64 = 10_000

// MaxDecimals is the largest decimal count whose scale fits in a uint64.
const MaxDecimals uint8 = 19

var decimalScales = func() [MaxDecimals + 1]uint64 {
	var out [MaxDecimals + 1]uint64
	out[0] = 1
	for i := 1; i <= int(MaxDecimals); i++ {
		out[i] = out[i-1] * 10
	}
	return out
}()

// DecimalScale returns 10^decimals.
func DecimalScale(decimals uint8) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, ErrUnsupportedDecimals
	}
	return decimalScales[decimals], nil
}

func Add(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

func Mul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxUint64/b {
		return 0, ErrOverflow
	}
	return a * b, nil
}

// MulDiv computes floor(a*b/c) with a 256-bit intermediate.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrDivideByZero
	}
	x := uint256.NewInt(a)
	x.Mul(x, uint256.NewInt(b))
	x.Div(x, uint256.NewInt(c))
	if !x.IsUint64() {
		return 0, ErrOverflow
	}
	return x.Uint64(), nil
}

// Product returns a*b as a 256-bit integer. The result cannot overflow.
func Product(a, b uint64) *uint256.Int {
	x := uint256.NewInt(a)
	return x.Mul(x, uint256.NewInt(b))
}

// DivWide computes floor(n/d) for a 256-bit numerator.
func DivWide(n *uint256.Int, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	q := new(uint256.Int).Div(n, uint256.NewInt(d))
	if !q.IsUint64() {
		return 0, ErrOverflow
	}
	return q.Uint64(), nil
}

// LessBps returns amount*(BPSScale-bps)/BPSScale.
func LessBps(amount, bps uint64) (uint64, error) {
	if bps > BPSScale {
		return 0, ErrUnderflow
	}
	return MulDiv(amount, BPSScale-bps, BPSScale)
}

// OfBps returns amount*bps/BPSScale.
func OfBps(amount, bps uint64) (uint64, error) {
	return MulDiv(amount, bps, BPSScale)
}

// ShlSaturating returns v<<n, or math.MaxUint64 if any bit would be lost.
func ShlSaturating(v uint64, n uint64) uint64 {
	if v == 0 {
		return 0
	}
	if n >= 64 || v > math.MaxUint64>>n {
		return math.MaxUint64
	}
	return v << n
}
