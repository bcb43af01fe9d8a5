package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"futarchy/internal/auth"
	"futarchy/internal/engine"
	"futarchy/internal/governance"
	"futarchy/internal/model"
	"futarchy/internal/storage"
)

var (
	metaMint = common.HexToAddress("0xa1")
	usdcMint = common.HexToAddress("0xa2")
	admin    = common.HexToAddress("0xad")
	trader   = common.HexToAddress("0x02")
)

type memorySink struct {
	pools     []model.PoolSummary
	proposals []model.ProposalSummary
	windows   []model.PoolWindowMetrics
}

func (s *memorySink) UpsertPools(ctx context.Context, pools []model.PoolSummary) error {
	s.pools = append(s.pools, pools...)
	return nil
}

func (s *memorySink) UpsertProposals(ctx context.Context, proposals []model.ProposalSummary) error {
	s.proposals = append(s.proposals, proposals...)
	return nil
}

func (s *memorySink) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	s.windows = append(s.windows, metrics...)
	return nil
}

// writeJournal runs a short trading session and returns the journal path.
func writeJournal(t *testing.T) (string, common.Address) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	clock := engine.NewManualClock(1)
	e, err := engine.New(engine.Config{
		BaseMint:            engine.MintSpec{Address: metaMint, Decimals: 6},
		QuoteMint:           engine.MintSpec{Address: usdcMint, Decimals: 6},
		MintAuthority:       admin,
		FirstProposalNumber: 10,
		Governance:          governance.DefaultParams(),
	}, clock, storage.NewJsonlStorage(path), nil, nil)
	require.NoError(t, err)

	c := auth.Direct(trader)
	require.NoError(t, e.MintTo(auth.Direct(admin), metaMint, trader, 10_000_000))
	require.NoError(t, e.MintTo(auth.Direct(admin), usdcMint, trader, 10_000_000))
	pool, err := e.CreatePool(c, engine.PoolParams{BaseMint: metaMint, QuoteMint: usdcMint, SwapFeeBps: 300})
	require.NoError(t, err)
	_, err = e.CreatePosition(c, pool)
	require.NoError(t, err)
	_, err = e.AddLiquidity(c, pool, 1_000_000, 2_000_000)
	require.NoError(t, err)

	require.NoError(t, clock.Set(10))
	_, err = e.Swap(c, pool, true, 100_000, 1)
	require.NoError(t, err)

	require.NoError(t, clock.Set(60))
	_, err = e.Swap(c, pool, false, 50_000, 1)
	require.NoError(t, err)
	return path, pool
}

func TestExporterWindows(t *testing.T) {
	path, pool := writeJournal(t)
	sink := &memorySink{}
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	x := NewExporter(Config{WindowSlots: 50, StateStore: state}, sink, nil)

	stats, err := x.Run(context.Background(), path)
	require.NoError(t, err)
	require.Zero(t, stats.Failed)
	require.Equal(t, 2, stats.Windows)

	require.Len(t, sink.pools, 1)
	require.Equal(t, pool.Hex(), sink.pools[0].Address)
	require.Equal(t, uint64(1), sink.pools[0].FirstSeenSlot)

	require.Len(t, sink.windows, 2)
	first, second := sink.windows[0], sink.windows[1]
	if first.WindowStart > second.WindowStart {
		first, second = second, first
	}
	require.Equal(t, uint64(0), first.WindowStart)
	require.Equal(t, uint64(50), first.WindowEnd)
	require.Equal(t, uint64(1), first.SwapCount)
	require.Equal(t, "0.1", first.VolumeQuote)
	require.Equal(t, "0.046257", first.VolumeBase)
	require.Equal(t, "0.003", first.FeeQuote)
	require.Equal(t, "0", first.FeeBase)
	require.Equal(t, "0.953743", first.CloseBaseRes)
	require.Equal(t, "2.1", first.CloseQuoteRes)
	require.NotNil(t, first.ClosePrice)
	require.NotNil(t, first.LtwapClose)
	require.NotNil(t, first.FeeRate)

	require.Equal(t, uint64(50), second.WindowStart)
	require.Equal(t, uint64(1), second.SwapCount)
	require.Equal(t, "0.0015", second.FeeBase)
	require.Nil(t, second.FeeRate)

	last, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(60), last)

	// A second run resumes after the saved slot.
	again := &memorySink{}
	stats, err = NewExporter(Config{WindowSlots: 50, StateStore: state}, again, nil).Run(context.Background(), path)
	require.NoError(t, err)
	require.Zero(t, stats.Windows)
	require.Equal(t, stats.Total, stats.Skipped)
}

func TestExporterIgnoresReplayedEvents(t *testing.T) {
	path, _ := writeJournal(t)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.SplitAfter(bytes.TrimSpace(raw), []byte("\n"))
	require.Greater(t, len(lines), 3)

	// Append the last three records again, as a resumed run would.
	tail := bytes.Join(lines[len(lines)-3:], nil)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write(append([]byte("\n"), tail...))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	sink := &memorySink{}
	stats, err := NewExporter(Config{WindowSlots: 50}, sink, nil).Run(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Replayed)
	require.Zero(t, stats.Failed)

	require.Len(t, sink.windows, 2)
	var swaps uint64
	for _, w := range sink.windows {
		swaps += w.SwapCount
	}
	require.Equal(t, uint64(2), swaps)
}

type failingProposals struct {
	memorySink
}

func (s *failingProposals) UpsertProposals(context.Context, []model.ProposalSummary) error {
	return errors.New("proposals table locked")
}

func TestExporterFinalFlushError(t *testing.T) {
	path, _ := writeJournal(t)
	raw, err := jsonRaw(model.ProposalEventData{Number: 10, State: model.ProposalInitialize})
	require.NoError(t, err)
	line, err := json.Marshal(model.TypedEventRecord{Seq: 1_000, Slot: 70, Address: "0x10", EventName: model.EventProposalCreated, Decoded: raw})
	require.NoError(t, err)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write(append(line, '\n'))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	sink := &failingProposals{}
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	_, err = NewExporter(Config{WindowSlots: 50, StateStore: state}, sink, nil).Run(context.Background(), path)
	require.ErrorContains(t, err, "proposals table locked")

	_, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExporterRejectsZeroWindow(t *testing.T) {
	_, err := NewExporter(Config{}, &memorySink{}, nil).Run(context.Background(), "missing.jsonl")
	require.Error(t, err)
}

func TestProposalSummaries(t *testing.T) {
	x := NewExporter(Config{WindowSlots: 10}, &memorySink{}, nil)
	events := []struct {
		slot uint64
		data model.ProposalEventData
		name string
	}{
		{5, model.ProposalEventData{Number: 10, State: model.ProposalInitialize}, model.EventProposalCreated},
		{6, model.ProposalEventData{Number: 10, State: model.ProposalPending, FeePaid: 9}, model.EventProposalSubmitted},
		{90, model.ProposalEventData{Number: 10, State: model.ProposalPassed, PassLtwap: 3, FailLtwap: 2}, model.EventProposalFinalized},
	}
	for _, ev := range events {
		raw, err := jsonRaw(ev.data)
		require.NoError(t, err)
		require.NoError(t, x.applyProposalEvent(model.TypedEventRecord{Slot: ev.slot, EventName: ev.name, Address: "0x10", Decoded: raw}))
	}
	got := x.proposals[10]
	require.Equal(t, model.ProposalPassed, got.State)
	require.Equal(t, uint64(9), got.FeePaid)
	require.Equal(t, uint64(90), got.LastSlot)
}
