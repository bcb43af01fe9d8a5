// Package export folds the engine's event journal into per-pool slot
// window metrics and proposal summaries.
package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"futarchy/internal/model"
)

// Config controls export behavior.
type Config struct {
	WindowSlots   uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Sink receives exported rows. postgres.Store and FileSink implement it.
type Sink interface {
	UpsertPools(ctx context.Context, pools []model.PoolSummary) error
	UpsertProposals(ctx context.Context, proposals []model.ProposalSummary) error
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Stats summarizes one export run.
type Stats struct {
	Total     int
	Windows   int
	Proposals int
	Skipped   int
	Replayed  int
	Failed    int
}

// Exporter aggregates journal events into window metrics.
type Exporter struct {
	cfg          Config
	sink         Sink
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	closed       map[string]*Accumulator
	poolSeen     map[string]model.PoolSummary
	proposals    map[uint64]model.ProposalSummary
}

func NewExporter(cfg Config, sink Sink, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
		closed:       make(map[string]*Accumulator),
		poolSeen:     make(map[string]model.PoolSummary),
		proposals:    make(map[uint64]model.ProposalSummary),
	}
}

// Run exports a journal JSONL file.
func (x *Exporter) Run(ctx context.Context, inputPath string) (Stats, error) {
	if x.sink == nil {
		return Stats{}, fmt.Errorf("sink is nil")
	}
	if x.cfg.WindowSlots == 0 {
		return Stats{}, fmt.Errorf("window slots must be > 0")
	}
	if x.cfg.BatchSize <= 0 {
		x.cfg.BatchSize = 1000
	}

	startSlot, resume, err := x.loadStartSlot(ctx)
	if err != nil {
		return Stats{}, err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, x.cfg.BatchSize)
	var pools []model.PoolSummary
	maxSlot := startSlot
	var lastSeq uint64
	var stats Stats

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.Failed++
			x.logger.Warn("decode journal event", zap.Error(err))
			continue
		}
		// A resumed simulation re-journals the steps after its last
		// checkpoint with the same sequence numbers.
		if record.Seq != 0 && record.Seq <= lastSeq {
			stats.Replayed++
			continue
		}
		if record.Seq > lastSeq {
			lastSeq = record.Seq
		}
		if resume && record.Slot <= startSlot {
			stats.Skipped++
			continue
		}
		if record.Slot > maxSlot {
			maxSlot = record.Slot
		}

		if record.PoolMeta == nil {
			if err := x.applyProposalEvent(record); err != nil {
				stats.Failed++
				x.logger.Warn("export proposal event", zap.Error(err), zap.String("event", record.EventName))
			}
			continue
		}

		start := windowStart(record.Slot, x.cfg.WindowSlots)
		key := poolKey(record.Address)
		acc := x.accumulators[key]
		if acc != nil && acc.WindowStart != start {
			metrics, pool := x.flushAccumulator(acc)
			if metrics != nil {
				batch = append(batch, *metrics)
			}
			if pool != nil {
				pools = append(pools, *pool)
			}
			x.closed[key] = acc
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(record, start, start+x.cfg.WindowSlots)
			acc.Carry(x.closed[key])
			x.accumulators[key] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			stats.Failed++
			x.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", record.Address), zap.String("event", record.EventName))
			continue
		}

		if len(batch) >= x.cfg.BatchSize {
			stats.Windows += len(batch)
			if err := x.flushBatches(ctx, batch, pools); err != nil {
				return stats, err
			}
			batch = batch[:0]
			pools = pools[:0]
			if err := x.saveState(ctx); err != nil {
				return stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}

	for key, acc := range x.accumulators {
		metrics, pool := x.flushAccumulator(acc)
		if metrics != nil {
			batch = append(batch, *metrics)
		}
		if pool != nil {
			pools = append(pools, *pool)
		}
		x.closed[key] = acc
	}
	x.accumulators = make(map[string]*Accumulator)

	stats.Windows += len(batch)
	stats.Proposals = len(x.proposals)
	// Window rows and proposal rows land in separate tables.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return x.flushBatches(gctx, batch, pools) })
	g.Go(func() error { return x.flushProposals(gctx) })
	if err := g.Wait(); err != nil {
		return stats, err
	}

	x.cfg.RecomputeFrom = maxSlot
	if err := x.saveState(ctx); err != nil {
		return stats, err
	}

	x.logger.Info("export complete",
		zap.Int("total", stats.Total),
		zap.Int("windows", stats.Windows),
		zap.Int("proposals", stats.Proposals),
		zap.Int("skipped", stats.Skipped),
		zap.Int("replayed", stats.Replayed),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (x *Exporter) applyProposalEvent(record model.TypedEventRecord) error {
	switch record.EventName {
	case model.EventProposalCreated, model.EventProposalSubmitted, model.EventProposalFinalized:
	default:
		return nil
	}
	var data model.ProposalEventData
	if err := json.Unmarshal(record.Decoded, &data); err != nil {
		return fmt.Errorf("decode proposal: %w", err)
	}
	prev, ok := x.proposals[data.Number]
	if ok && prev.LastSlot > record.Slot {
		return nil
	}
	if ok && data.FeePaid == 0 {
		data.FeePaid = prev.FeePaid
	}
	x.proposals[data.Number] = model.ProposalSummary{
		Address:           record.Address,
		LastSlot:          record.Slot,
		ProposalEventData: data,
	}
	return nil
}

func (x *Exporter) loadStartSlot(ctx context.Context) (uint64, bool, error) {
	if x.cfg.RecomputeFrom > 0 {
		return x.cfg.RecomputeFrom - 1, true, nil
	}
	if x.cfg.StateStore == nil {
		return 0, false, nil
	}
	return x.cfg.StateStore.Load(ctx)
}

func (x *Exporter) saveState(ctx context.Context) error {
	if x.cfg.StateStore == nil {
		return nil
	}
	if len(x.accumulators) == 0 {
		return x.cfg.StateStore.Save(ctx, x.cfg.RecomputeFrom)
	}

	safe := minOpenWindowStart(x.accumulators)
	if safe > 0 {
		safe--
	}
	if safe == 0 {
		safe = x.cfg.RecomputeFrom
	}
	return x.cfg.StateStore.Save(ctx, safe)
}

func (x *Exporter) flushBatches(ctx context.Context, batch []model.PoolWindowMetrics, pools []model.PoolSummary) error {
	if len(pools) > 0 {
		if err := x.sink.UpsertPools(ctx, pools); err != nil {
			return err
		}
	}
	if len(batch) > 0 {
		if err := x.sink.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (x *Exporter) flushProposals(ctx context.Context) error {
	if len(x.proposals) == 0 {
		return nil
	}
	out := make([]model.ProposalSummary, 0, len(x.proposals))
	for _, p := range x.proposals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return x.sink.UpsertProposals(ctx, out)
}

func (x *Exporter) flushAccumulator(acc *Accumulator) (*model.PoolWindowMetrics, *model.PoolSummary) {
	if acc == nil {
		return nil, nil
	}
	meta := acc.PoolMeta
	if meta == (model.PoolMeta{}) {
		x.logger.Warn("missing pool meta", zap.String("pool", acc.PoolAddress))
		return nil, nil
	}

	metrics := &model.PoolWindowMetrics{
		PoolAddress:     acc.PoolAddress,
		WindowSizeSlots: int64(x.cfg.WindowSlots),
		WindowStart:     acc.WindowStart,
		WindowEnd:       acc.WindowEnd,
		SwapCount:       acc.SwapCount,
		VolumeBase:      formatTokenAmount(acc.VolumeBase, meta.BaseDecimals),
		VolumeQuote:     formatTokenAmount(acc.VolumeQuote, meta.QuoteDecimals),
		FeeBase:         formatTokenAmount(acc.FeeBase, meta.BaseDecimals),
		FeeQuote:        formatTokenAmount(acc.FeeQuote, meta.QuoteDecimals),
		CloseBaseRes:    formatReserve(acc.BaseReserve, meta.BaseDecimals),
		CloseQuoteRes:   formatReserve(acc.QuoteReserve, meta.QuoteDecimals),
		ClosePrice:      closePrice(acc.BaseReserve, acc.QuoteReserve, meta.BaseDecimals, meta.QuoteDecimals),
		LtwapClose:      formatLtwap(acc),
		FeeRate:         feeRate(acc.FeeQuote, acc.QuoteReserve),
	}
	return metrics, x.registerPool(acc)
}

func (x *Exporter) registerPool(acc *Accumulator) *model.PoolSummary {
	key := poolKey(acc.PoolAddress)
	pool := model.PoolSummary{
		Address:       acc.PoolAddress,
		Meta:          acc.PoolMeta,
		FirstSeenSlot: acc.FirstSlot,
	}
	if existing, ok := x.poolSeen[key]; ok && existing.FirstSeenSlot <= pool.FirstSeenSlot {
		return nil
	}
	x.poolSeen[key] = pool
	return &pool
}

func windowStart(slot, windowSlots uint64) uint64 {
	return slot - (slot % windowSlots)
}

func poolKey(address string) string {
	return strings.ToLower(address)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
