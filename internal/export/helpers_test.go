package export

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func jsonRaw(v interface{}) (json.RawMessage, error) {
	return json.Marshal(v)
}

func TestFormatTokenAmount(t *testing.T) {
	require.Equal(t, "0", formatTokenAmount(nil, 6))
	require.Equal(t, "1.5", formatTokenAmount(uint256.NewInt(1_500_000), 6))
	require.Equal(t, "42", formatTokenAmount(uint256.NewInt(42), 0))
}

func TestClosePrice(t *testing.T) {
	require.Nil(t, closePrice(0, 10, 6, 6))
	price := closePrice(1_000_000, 2_000_000, 6, 6)
	require.NotNil(t, price)
	require.Equal(t, "2", *price)
}

func TestWindowStart(t *testing.T) {
	require.Equal(t, uint64(0), windowStart(49, 50))
	require.Equal(t, uint64(50), windowStart(50, 50))
}
