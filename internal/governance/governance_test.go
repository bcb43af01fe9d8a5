package governance

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"futarchy/internal/auth"
	"futarchy/internal/model"
)

var (
	metaMint = common.HexToAddress("0xa1")
	usdcMint = common.HexToAddress("0xa2")
	proposer = common.HexToAddress("0x01")
	trader   = common.HexToAddress("0x02")
)

func testParams() Params {
	p := DefaultParams()
	p.ProposalDurationSlots = 100
	p.FinalizeWindowSlots = 50
	p.MinQuoteLiquidity = 10
	p.ProposalFeeBase = 1_000
	return p
}

func newDAO(t *testing.T) *DAO {
	t.Helper()
	dao, err := NewDAO(metaMint, usdcMint, 10, testParams())
	require.NoError(t, err)
	return dao
}

func newProposal(t *testing.T, dao *DAO) *Proposal {
	t.Helper()
	p, err := Create(dao, 5, Draft{
		Number:         dao.NextProposalNumber(),
		Proposer:       proposer,
		DescriptionURL: "https://example.org/p",
		BaseAmount:     10,
		QuoteAmount:    100,
	})
	require.NoError(t, err)
	return p
}

func TestDecide(t *testing.T) {
	passed, threshold := Decide(106, 100, 500)
	require.True(t, passed)
	require.Equal(t, uint64(105), threshold.Uint64())

	passed, _ = Decide(104, 100, 500)
	require.False(t, passed)

	passed, _ = Decide(105, 100, 500)
	require.False(t, passed)

	passed, threshold = Decide(math.MaxUint64, math.MaxUint64, 500)
	require.False(t, passed)
	require.False(t, threshold.IsUint64())

	passed, _ = Decide(1, 0, 500)
	require.True(t, passed)
	passed, _ = Decide(0, 0, 500)
	require.False(t, passed)
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	require.Equal(t, uint64(3*216_000), p.ProposalDurationSlots)
	require.Equal(t, uint64(216_000), p.FinalizeWindowSlots)

	p.ProposalDurationSlots = 0
	require.ErrorIs(t, p.Validate(), ErrInvalidParams)
}

func TestProposalSequence(t *testing.T) {
	dao := newDAO(t)
	require.Equal(t, uint64(10), dao.NextProposalNumber())

	_, err := Create(dao, 0, Draft{Number: 11, Proposer: proposer, BaseAmount: 10, QuoteAmount: 100})
	require.ErrorIs(t, err, ErrNonConsecutiveProposalNumber)

	p := newProposal(t, dao)
	require.Equal(t, uint64(10), p.Number())
	require.Equal(t, Address(dao, 10), p.Address())
	require.Equal(t, uint64(11), dao.NextProposalNumber())

	_, err = Create(dao, 0, Draft{Number: 10, Proposer: proposer, BaseAmount: 10, QuoteAmount: 100})
	require.ErrorIs(t, err, ErrNonConsecutiveProposalNumber)
}

func TestCreateValidation(t *testing.T) {
	dao := newDAO(t)

	long := make([]byte, MaxDescriptionLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := Create(dao, 0, Draft{Number: 10, Proposer: proposer, DescriptionURL: string(long), BaseAmount: 10, QuoteAmount: 100})
	require.ErrorIs(t, err, ErrDescriptionTooLong)

	_, err = Create(dao, 0, Draft{Number: 10, Proposer: proposer, BaseAmount: 10, QuoteAmount: 9})
	require.ErrorIs(t, err, ErrInsufficientUnderlying)

	// rejected creations do not consume a number
	require.Equal(t, uint64(10), dao.NextProposalNumber())
}

func TestInstructionsFreezeOnSubmit(t *testing.T) {
	dao := newDAO(t)
	p := newProposal(t, dao)
	ix := model.Instruction{ProgramID: common.HexToAddress("0xee"), Data: []byte{1, 2}}

	require.ErrorIs(t, p.AddInstruction(auth.Direct(trader), ix), ErrUnauthorized)
	require.ErrorIs(t, p.AddInstruction(auth.Direct(proposer), model.Instruction{}), ErrInvalidInstruction)
	require.NoError(t, p.AddInstruction(auth.Direct(proposer), ix))

	ix.Data[0] = 9
	require.Equal(t, byte(1), p.Instructions()[0].Data[0])

	require.ErrorIs(t, p.Submit(auth.Direct(trader), dao, 20), ErrUnauthorized)
	require.NoError(t, p.Submit(auth.Direct(proposer), dao, 20))
	require.Equal(t, model.ProposalPending, p.State())
	require.Equal(t, uint64(120), p.WindowEnd())
	require.Equal(t, uint64(1), dao.ActiveProposals())

	require.ErrorIs(t, p.AddInstruction(auth.Direct(proposer), ix), ErrInstructionsFrozen)
	require.ErrorIs(t, p.Submit(auth.Direct(proposer), dao, 21), ErrProposalNotInitialized)
	require.Len(t, p.Instructions(), 1)
}

func TestProposalFeeDoubles(t *testing.T) {
	dao := newDAO(t)
	require.Equal(t, uint64(1_000), dao.ProposalFee())

	for i := 0; i < 3; i++ {
		p := newProposal(t, dao)
		require.NoError(t, p.Submit(auth.Direct(proposer), dao, 0))
	}
	require.Equal(t, uint64(8_000), dao.ProposalFee())

	dao.activeProposals = 64
	require.Equal(t, uint64(math.MaxUint64), dao.ProposalFee())
}

func TestMarketWindow(t *testing.T) {
	dao := newDAO(t)
	p := newProposal(t, dao)
	require.ErrorIs(t, p.MarketOpen(10), ErrMarketClosed)
	require.ErrorIs(t, p.CheckLiquidityRemoval(proposer, 10), ErrProposerLiquidityLocked)

	require.NoError(t, p.Submit(auth.Direct(proposer), dao, 20))
	require.NoError(t, p.MarketOpen(20))
	require.NoError(t, p.MarketOpen(119))
	require.ErrorIs(t, p.MarketOpen(120), ErrMarketClosed)

	require.ErrorIs(t, p.CheckLiquidityRemoval(proposer, 119), ErrProposerLiquidityLocked)
	require.NoError(t, p.CheckLiquidityRemoval(trader, 119))
	require.NoError(t, p.CheckLiquidityRemoval(proposer, 120))
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name      string
		now       uint64
		pass      uint64
		fail      uint64
		wantState model.ProposalState
		expired   bool
	}{
		{name: "pass beats threshold", now: 120, pass: 106, fail: 100, wantState: model.ProposalPassed},
		{name: "below threshold", now: 120, pass: 104, fail: 100, wantState: model.ProposalFailed},
		{name: "last slot of grace window", now: 169, pass: 106, fail: 100, wantState: model.ProposalPassed},
		{name: "expired", now: 170, pass: 106, fail: 100, wantState: model.ProposalFailed, expired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dao := newDAO(t)
			p := newProposal(t, dao)
			require.NoError(t, p.Submit(auth.Direct(proposer), dao, 20))

			out, err := p.Finalize(dao, tt.now, tt.pass, tt.fail)
			require.NoError(t, err)
			require.Equal(t, tt.wantState, out.State)
			require.Equal(t, tt.expired, out.Expired)
			require.Equal(t, tt.wantState, p.State())
			require.Zero(t, dao.ActiveProposals())

			_, err = p.Finalize(dao, tt.now+1, tt.pass, tt.fail)
			require.ErrorIs(t, err, ErrProposalAlreadyFinalized)
		})
	}
}

func TestFinalizeTooEarly(t *testing.T) {
	dao := newDAO(t)
	p := newProposal(t, dao)

	_, err := p.Finalize(dao, 500, 1, 1)
	require.ErrorIs(t, err, ErrProposalNotPending)

	require.NoError(t, p.Submit(auth.Direct(proposer), dao, 20))
	_, err = p.Finalize(dao, 119, 200, 100)
	require.ErrorIs(t, err, ErrProposalTooYoung)
	require.Equal(t, model.ProposalPending, p.State())
	require.Equal(t, uint64(1), dao.ActiveProposals())
}

func TestDAOUpdate(t *testing.T) {
	dao := newDAO(t)
	params := dao.Params()
	params.PassThresholdBps = 1_000

	require.ErrorIs(t, dao.Update(auth.Direct(proposer), params), ErrUnauthorized)
	require.NoError(t, dao.Update(auth.Direct(dao.Treasury()), params))
	require.Equal(t, uint64(1_000), dao.Params().PassThresholdBps)

	params.SwapFeeBps = 0
	require.ErrorIs(t, dao.Update(auth.Direct(dao.Treasury()), params), ErrInvalidParams)
}

func TestRecordRoundTrip(t *testing.T) {
	dao := newDAO(t)
	p := newProposal(t, dao)
	require.NoError(t, p.AddInstruction(auth.Direct(proposer), model.Instruction{
		ProgramID: common.HexToAddress("0xee"),
		Accounts:  []model.AccountMeta{{Pubkey: dao.Treasury(), IsSigner: true, IsWritable: true}},
		Data:      []byte{7},
	}))

	require.Equal(t, p.Record(), ProposalFromRecord(p.Record()).Record())

	restored, err := DAOFromRecord(dao.Record())
	require.NoError(t, err)
	require.Equal(t, dao.Record(), restored.Record())

	draft := p.Clone()
	require.NoError(t, draft.Submit(auth.Direct(proposer), dao, 30))
	require.Equal(t, model.ProposalInitialize, p.State())
}
