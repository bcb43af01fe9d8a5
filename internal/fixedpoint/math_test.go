package fixedpoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecimalScale(t *testing.T) {
	scale, err := DecimalScale(0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), scale)

	scale, err = DecimalScale(6)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), scale)

	scale, err = DecimalScale(19)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000_000_000_000_000_000), scale)

	_, err = DecimalScale(20)
	require.ErrorIs(t, err, ErrUnsupportedDecimals)
}

func TestCheckedOps(t *testing.T) {
	_, err := Add(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrOverflow)

	_, err = Sub(1, 2)
	require.ErrorIs(t, err, ErrUnderflow)

	_, err = Mul(math.MaxUint64, 2)
	require.ErrorIs(t, err, ErrOverflow)

	v, err := Mul(0, math.MaxUint64)
	require.NoError(t, err)
	require.Zero(t, v)
}

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c uint64
		want    uint64
		err     error
	}{
		{name: "floor", a: 10, b: 10, c: 3, want: 33},
		{name: "wide intermediate", a: math.MaxUint64, b: math.MaxUint64, c: math.MaxUint64, want: math.MaxUint64},
		{name: "result overflow", a: math.MaxUint64, b: 2, c: 1, err: ErrOverflow},
		{name: "zero divisor", a: 1, b: 1, c: 0, err: ErrDivideByZero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.a, tt.b, tt.c)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLessBps(t *testing.T) {
	v, err := LessBps(100_000, 300)
	require.NoError(t, err)
	require.Equal(t, uint64(97_000), v)

	_, err = LessBps(1, BPSScale+1)
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestProduct(t *testing.T) {
	k := Product(1_000_000, 2_000_000)
	require.Equal(t, "2000000000000", k.Dec())

	wide := Product(math.MaxUint64, math.MaxUint64)
	require.False(t, wide.IsUint64())
}

func TestShlSaturating(t *testing.T) {
	require.Equal(t, uint64(0), ShlSaturating(0, 100))
	require.Equal(t, uint64(8), ShlSaturating(1, 3))
	require.Equal(t, uint64(math.MaxUint64), ShlSaturating(1, 64))
	require.Equal(t, uint64(math.MaxUint64), ShlSaturating(math.MaxUint64/2+1, 1))
}

func TestDivWide(t *testing.T) {
	q, err := DivWide(Product(1_000_000, 2_000_000), 2_097_000)
	require.NoError(t, err)
	require.Equal(t, uint64(953_743), q)

	_, err = DivWide(Product(1, 1), 0)
	require.ErrorIs(t, err, ErrDivideByZero)

	_, err = DivWide(Product(math.MaxUint64, math.MaxUint64), 1)
	require.ErrorIs(t, err, ErrOverflow)
}
