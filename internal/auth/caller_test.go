package auth

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestPermits(t *testing.T) {
	user := common.HexToAddress("0x01")
	program := common.HexToAddress("0x02")

	require.True(t, Direct(user).Permits(common.Address{}))
	require.False(t, Direct(user).Permits(program))
	require.True(t, Direct(user).Through(program).Permits(program))
	require.False(t, Direct(user).Through(user).Permits(program))
}

func TestRouted(t *testing.T) {
	user := common.HexToAddress("0x01")
	program := common.HexToAddress("0x02")

	require.False(t, Direct(user).Routed())
	routed := Direct(user).Through(program)
	require.True(t, routed.Routed())
	require.Equal(t, program, routed.Via())
	require.Equal(t, user, routed.Signer)
}
