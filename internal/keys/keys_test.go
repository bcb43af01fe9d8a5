package keys

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	baseMint  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	quoteMint = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestPoolDeterministic(t *testing.T) {
	a := Pool(baseMint, quoteMint, 300, common.Address{})
	b := Pool(baseMint, quoteMint, 300, common.Address{})
	require.Equal(t, a, b)

	require.NotEqual(t, a, Pool(quoteMint, baseMint, 300, common.Address{}))
	require.NotEqual(t, a, Pool(baseMint, quoteMint, 301, common.Address{}))
	require.NotEqual(t, a, Pool(baseMint, quoteMint, 300, baseMint))
}

func TestProposalChain(t *testing.T) {
	dao := DAO(baseMint, quoteMint)
	p10 := Proposal(dao, 10)
	p11 := Proposal(dao, 11)
	require.NotEqual(t, p10, p11)

	vault := Vault(p10, baseMint)
	pass := ConditionalMint(vault, Pass)
	fail := ConditionalMint(vault, Fail)
	require.NotEqual(t, pass, fail)
	require.NotEqual(t, vault, Vault(p10, quoteMint))
	require.NotEqual(t, Treasury(dao), dao)
}

func TestSideString(t *testing.T) {
	require.Equal(t, "pass", Pass.String())
	require.Equal(t, "fail", Fail.String())
}
